// Package api implements the HTTP surface of the service: authentication
// flows (signup, login, email verification, password reset), tenant and user
// administration, and project membership management.
//
// Handlers decode request DTOs, delegate to the domain services, and map
// domain errors onto HTTP statuses through httputil.WriteDomainError. All
// responses are JSON.
package api
