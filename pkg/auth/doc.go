// Package auth provides the credential primitives of the identity core:
// bcrypt password hashing and JWT bearer token issuance/validation.
package auth
