// Package rbac defines the static role catalog used for project membership.
//
// The catalog maps each role to the set of actions it permits. In the current
// scope it is consulted for role validation only; request-level authorization
// enforcement is handled at the API boundary.
package rbac
