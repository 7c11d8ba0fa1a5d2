package users

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/keygate/keygate/pkg/apperrors"
	"github.com/keygate/keygate/pkg/auth"
)

// DefaultCodeTTL is how long a freshly generated verification code stays valid.
const DefaultCodeTTL = 30 * time.Minute

// codeBytes is the number of random bytes in a verification code (16 hex chars).
const codeBytes = 8

// User is the aggregate root for a tenant-scoped account. It owns credential
// state, email verification state, and the single shared verification code
// slot used by both the email verification and password reset flows.
//
// Invariant: EmailCode and EmailCodeExpiresAt are both empty or both set.
type User struct {
	ID                 int64      `json:"id"`
	Email              string     `json:"email"`
	Name               string     `json:"name"`
	PasswordHash       string     `json:"-"`
	TenantID           int64      `json:"tenant_id"`
	IsAdmin            bool       `json:"is_admin"`
	EmailVerified      bool       `json:"email_verified"`
	EmailCode          string     `json:"-"`
	EmailCodeExpiresAt *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// NewUser creates an unverified user with a hashed password.
func NewUser(email, name, password string, tenantID int64, isAdmin bool, hasher *auth.PasswordHasher) (*User, error) {
	digest, err := hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	now := time.Now()
	return &User{
		Email:        email,
		Name:         name,
		PasswordHash: digest,
		TenantID:     tenantID,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// VerifyPassword checks candidate against the stored hash.
func (u *User) VerifyPassword(hasher *auth.PasswordHasher, candidate string) error {
	if !hasher.Verify(candidate, u.PasswordHash) {
		return apperrors.New(apperrors.KindInvalidPassword, "invalid password")
	}
	return nil
}

// ChangePassword replaces the password hash after verifying the current password.
func (u *User) ChangePassword(hasher *auth.PasswordHasher, current, newPassword string) error {
	if err := u.VerifyPassword(hasher, current); err != nil {
		return err
	}

	digest, err := hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}

	u.PasswordHash = digest
	u.touch()
	return nil
}

// GenerateEmailCode produces a new random verification code valid for ttl,
// overwriting any prior pending code. Only one code may be outstanding at a
// time; the slot is shared between email verification and password reset.
func (u *User) GenerateEmailCode(ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}

	buf := make([]byte, codeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}

	expiresAt := time.Now().Add(ttl)
	u.EmailCode = hex.EncodeToString(buf)
	u.EmailCodeExpiresAt = &expiresAt
	u.touch()

	return u.EmailCode, nil
}

// CodePending reports whether a non-expired verification code is outstanding.
func (u *User) CodePending(now time.Time) bool {
	return u.EmailCode != "" && u.EmailCodeExpiresAt != nil && now.Before(*u.EmailCodeExpiresAt)
}

// VerifyEmail consumes the pending code and marks the email address verified.
func (u *User) VerifyEmail(code string) error {
	if err := u.consumeCode(code); err != nil {
		return err
	}

	u.EmailVerified = true
	u.touch()
	return nil
}

// ResetPassword consumes the pending code and replaces the password hash.
func (u *User) ResetPassword(hasher *auth.PasswordHasher, code, newPassword string) error {
	// Hash before consuming so a bad password leaves the code slot intact
	digest, err := hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	if err := u.consumeCode(code); err != nil {
		return err
	}

	u.PasswordHash = digest
	u.touch()
	return nil
}

// consumeCode validates code against the pending slot and clears it on match.
// An expired code is cleared as a side effect: it can never be reused even if
// resubmitted. A mismatched code leaves the slot pending so the caller can
// retry until expiry.
func (u *User) consumeCode(code string) error {
	if u.EmailCode == "" || u.EmailCodeExpiresAt == nil {
		return apperrors.New(apperrors.KindCodeNotGenerated, "verification code has not been generated")
	}

	if time.Now().After(*u.EmailCodeExpiresAt) {
		u.clearCode()
		return apperrors.New(apperrors.KindCodeExpired, "verification code has expired")
	}

	if u.EmailCode != code {
		return apperrors.New(apperrors.KindCodeMismatch, "verification code does not match")
	}

	u.clearCode()
	return nil
}

func (u *User) clearCode() {
	u.EmailCode = ""
	u.EmailCodeExpiresAt = nil
	u.touch()
}

func (u *User) touch() {
	u.UpdatedAt = time.Now()
}
