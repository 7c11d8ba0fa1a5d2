package api

import "github.com/keygate/keygate/pkg/rbac"

// SignupRequest creates a new account within a tenant.
type SignupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	TenantID int64  `json:"tenant_id"`
}

// LoginRequest exchanges credentials for a bearer token.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries an issued bearer token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// VerifyEmailRequest submits a verification code for the caller's account.
type VerifyEmailRequest struct {
	Code string `json:"code"`
}

// RequestPasswordResetRequest starts a password reset for an email address.
type RequestPasswordResetRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest completes a password reset with the emailed code.
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// ChangePasswordRequest replaces the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// CodeResponse acknowledges a code issuance. Code is only populated in dev
// mode, where codes are returned inline instead of dispatched out of band.
type CodeResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// CreateTenantRequest creates a tenant.
type CreateTenantRequest struct {
	Name string `json:"name"`
}

// CreateProjectRequest creates a project owned by the caller.
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateProjectRequest applies a partial update; nil fields are unchanged.
type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// InviteMemberRequest adds a user to a project with a role.
type InviteMemberRequest struct {
	UserID int64     `json:"user_id"`
	Role   rbac.Role `json:"role"`
}

// ChangeRoleRequest changes a member's project role.
type ChangeRoleRequest struct {
	Role rbac.Role `json:"role"`
}
