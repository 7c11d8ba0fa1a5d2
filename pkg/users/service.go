package users

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/keygate/keygate/pkg/apperrors"
	"github.com/keygate/keygate/pkg/auth"
)

// Store is the persistence gateway for users. Lookups return (nil, nil) when
// the user is absent; existence checks return booleans.
type Store interface {
	Save(ctx context.Context, user *User) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, skip, limit int) ([]*User, error)
	GetByTenantID(ctx context.Context, tenantID int64, skip, limit int) ([]*User, error)
	GetAdminUsers(ctx context.Context, skip, limit int) ([]*User, error)
	Delete(ctx context.Context, id int64) (bool, error)
	ClearExpiredCodes(ctx context.Context, now time.Time) (int64, error)
}

// Service orchestrates user entity operations with the persistence gateway.
type Service struct {
	store  Store
	hasher *auth.PasswordHasher
	logger *logrus.Logger
}

// NewService creates a user service.
func NewService(store Store, hasher *auth.PasswordHasher, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{store: store, hasher: hasher, logger: logger}
}

// ListUsers returns a page of all users.
func (s *Service) ListUsers(ctx context.Context, skip, limit int) ([]*User, error) {
	return s.store.List(ctx, skip, limit)
}

// CreateUser creates a new unverified user. The email must be unused
// system-wide; the storage layer's unique constraint is the authoritative
// guard, this check is the fast error path.
func (s *Service) CreateUser(ctx context.Context, email, name, password string, tenantID int64, isAdmin bool) (*User, error) {
	exists, err := s.store.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, apperrors.New(apperrors.KindAlreadyExists, "user with email %q already exists", email)
	}

	user, err := NewUser(email, name, password, tenantID, isAdmin, s.hasher)
	if err != nil {
		return nil, err
	}

	saved, err := s.store.Save(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":   saved.ID,
		"tenant_id": saved.TenantID,
	}).Info("user created")

	return saved, nil
}

// GetUser returns a user by id.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "user %d not found", id)
	}
	return user, nil
}

// GetUserByEmail returns a user by email address.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "user with email %q not found", email)
	}
	return user, nil
}

// ListByTenant returns a page of users belonging to a tenant.
func (s *Service) ListByTenant(ctx context.Context, tenantID int64, skip, limit int) ([]*User, error) {
	return s.store.GetByTenantID(ctx, tenantID, skip, limit)
}

// ListAdmins returns a page of admin users.
func (s *Service) ListAdmins(ctx context.Context, skip, limit int) ([]*User, error) {
	return s.store.GetAdminUsers(ctx, skip, limit)
}

// Authenticate verifies an email/password pair and returns the matching user.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := user.VerifyPassword(s.hasher, password); err != nil {
		return nil, err
	}

	return user, nil
}

// DeleteUser hard-deletes a user.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.New(apperrors.KindNotFound, "user %d not found", id)
	}

	s.logger.WithField("user_id", id).Info("user deleted")
	return nil
}

// ChangePassword verifies the current password and replaces it.
func (s *Service) ChangePassword(ctx context.Context, id int64, current, newPassword string) (*User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := user.ChangePassword(s.hasher, current, newPassword); err != nil {
		return nil, err
	}

	return s.store.Save(ctx, user)
}

// GenerateEmailCode generates a verification code for the user and persists
// it. The code value is returned to the caller; dispatching it to the user is
// an external collaborator's concern.
func (s *Service) GenerateEmailCode(ctx context.Context, id int64, ttl time.Duration) (string, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return "", err
	}

	code, err := user.GenerateEmailCode(ttl)
	if err != nil {
		return "", err
	}

	if _, err := s.store.Save(ctx, user); err != nil {
		return "", err
	}

	s.logger.WithField("user_id", id).Info("verification code generated")
	return code, nil
}

// VerifyEmail consumes the pending code and marks the email verified.
func (s *Service) VerifyEmail(ctx context.Context, id int64, code string) (*User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	verifyErr := user.VerifyEmail(code)
	if verifyErr != nil {
		// An expired code clears the slot; persist that so resubmission
		// cannot revive it.
		if apperrors.Is(verifyErr, apperrors.KindCodeExpired) {
			if _, err := s.store.Save(ctx, user); err != nil {
				return nil, err
			}
		}
		return nil, verifyErr
	}

	return s.store.Save(ctx, user)
}

// RequestPasswordReset returns a reset code for the user identified by email.
// If a non-expired code is already pending it is returned unchanged, making
// repeated requests idempotent within the validity window. If the pending
// code has expired the request fails with CodeExpired.
func (s *Service) RequestPasswordReset(ctx context.Context, email string, ttl time.Duration) (string, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	if user.EmailCode != "" && user.EmailCodeExpiresAt != nil {
		if time.Now().Before(*user.EmailCodeExpiresAt) {
			return user.EmailCode, nil
		}
		return "", apperrors.New(apperrors.KindCodeExpired, "verification code has expired")
	}

	code, err := user.GenerateEmailCode(ttl)
	if err != nil {
		return "", err
	}

	if _, err := s.store.Save(ctx, user); err != nil {
		return "", err
	}

	s.logger.WithField("user_id", user.ID).Info("password reset requested")
	return code, nil
}

// ResetPassword consumes the pending reset code and replaces the password.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) (*User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	resetErr := user.ResetPassword(s.hasher, code, newPassword)
	if resetErr != nil {
		if apperrors.Is(resetErr, apperrors.KindCodeExpired) {
			if _, err := s.store.Save(ctx, user); err != nil {
				return nil, err
			}
		}
		return nil, resetErr
	}

	saved, err := s.store.Save(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("user_id", user.ID).Info("password reset completed")
	return saved, nil
}
