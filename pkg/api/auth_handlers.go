package api

import (
	"net/http"

	"github.com/keygate/keygate/pkg/apperrors"
	"github.com/keygate/keygate/pkg/auth"
	"github.com/keygate/keygate/pkg/httputil"
	"github.com/keygate/keygate/pkg/middleware"
)

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") ||
		!httputil.RequireNonEmpty(w, req.Name, "name") ||
		!httputil.RequireNonEmpty(w, req.Password, "password") {
		return
	}

	// Self-service signup can never grant admin
	user, err := s.users.CreateUser(r.Context(), req.Email, req.Name, req.Password, req.TenantID, false)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	s.recordSignup()
	httputil.WriteCreated(w, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") ||
		!httputil.RequireNonEmpty(w, req.Password, "password") {
		return
	}

	user, err := s.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.recordLogin(loginStatus(err))
		// Unknown email and wrong password are indistinguishable to the
		// caller: both come back as a credential failure.
		if apperrors.Is(err, apperrors.KindNotFound) || apperrors.Is(err, apperrors.KindInvalidPassword) {
			httputil.WriteUnauthorized(w, "invalid email or password")
			return
		}
		httputil.WriteDomainError(w, err)
		return
	}

	token, err := s.issuer.Issue(auth.Claims{
		UserID:   user.ID,
		Email:    user.Email,
		TenantID: user.TenantID,
		IsAdmin:  user.IsAdmin,
	}, s.cfg.TokenTTL)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	s.recordLogin("success")
	httputil.WriteSuccess(w, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.cfg.TokenTTL.Seconds()),
	})
}

// handleLogout acknowledges a logout. Tokens are stateless with no
// revocation list; the client discards its copy.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]string{"message": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)

	user, err := s.users.GetUser(r.Context(), claims.UserID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

func (s *Server) handleSendVerificationCode(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)

	code, err := s.users.GenerateEmailCode(r.Context(), claims.UserID, s.cfg.CodeTTL)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	s.recordCodeIssued("email_verification")
	httputil.WriteSuccess(w, s.codeResponse("verification code sent", code))
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)

	var req VerifyEmailRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Code, "code") {
		return
	}

	user, err := s.users.VerifyEmail(r.Context(), claims.UserID, req.Code)
	if err != nil {
		s.recordCodeConsumed("email_verification", codeResult(err))
		httputil.WriteDomainError(w, err)
		return
	}

	s.recordCodeConsumed("email_verification", "ok")
	httputil.WriteSuccess(w, user)
}

func (s *Server) handleRequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req RequestPasswordResetRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}

	code, err := s.users.RequestPasswordReset(r.Context(), req.Email, s.cfg.CodeTTL)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	s.recordCodeIssued("password_reset")
	httputil.WriteSuccess(w, s.codeResponse("password reset code sent", code))
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") ||
		!httputil.RequireNonEmpty(w, req.Code, "code") ||
		!httputil.RequireNonEmpty(w, req.NewPassword, "new_password") {
		return
	}

	user, err := s.users.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword)
	if err != nil {
		s.recordCodeConsumed("password_reset", codeResult(err))
		httputil.WriteDomainError(w, err)
		return
	}

	s.recordCodeConsumed("password_reset", "ok")
	httputil.WriteSuccess(w, user)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)

	var req ChangePasswordRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.CurrentPassword, "current_password") ||
		!httputil.RequireNonEmpty(w, req.NewPassword, "new_password") {
		return
	}

	user, err := s.users.ChangePassword(r.Context(), claims.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

// codeResponse inlines the code only in dev mode; in production the code
// travels out of band and the response just acknowledges the request.
func (s *Server) codeResponse(message, code string) CodeResponse {
	resp := CodeResponse{Message: message}
	if s.cfg.DevMode {
		resp.Code = code
	}
	return resp
}

func (s *Server) recordLogin(status string) {
	if s.metrics != nil {
		s.metrics.RecordLogin(status)
	}
}

func (s *Server) recordSignup() {
	if s.metrics != nil {
		s.metrics.RecordSignup()
	}
}

func (s *Server) recordCodeIssued(purpose string) {
	if s.metrics != nil {
		s.metrics.RecordCodeIssued(purpose)
	}
}

func (s *Server) recordCodeConsumed(purpose, result string) {
	if s.metrics != nil {
		s.metrics.RecordCodeConsumed(purpose, result)
	}
}

func loginStatus(err error) string {
	switch apperrors.KindOf(err) {
	case apperrors.KindNotFound:
		return "not_found"
	case apperrors.KindInvalidPassword:
		return "invalid_password"
	default:
		return "error"
	}
}

func codeResult(err error) string {
	switch apperrors.KindOf(err) {
	case apperrors.KindCodeNotGenerated:
		return "not_generated"
	case apperrors.KindCodeExpired:
		return "expired"
	case apperrors.KindCodeMismatch:
		return "mismatch"
	default:
		return "error"
	}
}
