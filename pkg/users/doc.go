// Package users implements the user aggregate and its use-case orchestration:
// account creation, credential verification, password lifecycle, and the
// time-bound single-use verification code shared by the email verification
// and password reset flows.
package users
