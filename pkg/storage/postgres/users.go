package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/keygate/keygate/pkg/users"
)

// UserStore implements users.Store on PostgreSQL.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a user store over an open connection pool.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, email, name, password_hash, tenant_id, is_admin, email_verified, email_code, email_code_expires_at, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*users.User, error) {
	var u users.User
	var code sql.NullString
	var codeExpires sql.NullTime

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.TenantID,
		&u.IsAdmin,
		&u.EmailVerified,
		&code,
		&codeExpires,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if code.Valid {
		u.EmailCode = code.String
	}
	if codeExpires.Valid {
		t := codeExpires.Time
		u.EmailCodeExpiresAt = &t
	}
	return &u, nil
}

func nullableCode(u *users.User) (sql.NullString, sql.NullTime) {
	var code sql.NullString
	var expires sql.NullTime
	if u.EmailCode != "" {
		code = sql.NullString{String: u.EmailCode, Valid: true}
	}
	if u.EmailCodeExpiresAt != nil {
		expires = sql.NullTime{Time: *u.EmailCodeExpiresAt, Valid: true}
	}
	return code, expires
}

// Save inserts the user when ID is zero, otherwise updates the existing row.
// A duplicate email surfaces as AlreadyExists.
func (s *UserStore) Save(ctx context.Context, user *users.User) (*users.User, error) {
	code, expires := nullableCode(user)

	if user.ID == 0 {
		query := `
			INSERT INTO users (email, name, password_hash, tenant_id, is_admin, email_verified, email_code, email_code_expires_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id
		`
		err := s.db.QueryRowContext(ctx, query,
			user.Email, user.Name, user.PasswordHash, user.TenantID,
			user.IsAdmin, user.EmailVerified, code, expires,
			user.CreatedAt, user.UpdatedAt,
		).Scan(&user.ID)
		if err != nil {
			return nil, translateUnique(err, "user with email %q already exists", user.Email)
		}
		return user, nil
	}

	query := `
		UPDATE users
		SET email = $1, name = $2, password_hash = $3, tenant_id = $4,
		    is_admin = $5, email_verified = $6, email_code = $7,
		    email_code_expires_at = $8, updated_at = $9
		WHERE id = $10
	`
	_, err := s.db.ExecContext(ctx, query,
		user.Email, user.Name, user.PasswordHash, user.TenantID,
		user.IsAdmin, user.EmailVerified, code, expires,
		user.UpdatedAt, user.ID,
	)
	if err != nil {
		return nil, translateUnique(err, "user with email %q already exists", user.Email)
	}
	return user, nil
}

// GetByID returns the user or (nil, nil) when absent.
func (s *UserStore) GetByID(ctx context.Context, id int64) (*users.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail returns the user with the given email or (nil, nil).
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)

	user, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// ExistsByEmail reports whether any user has the given email.
func (s *UserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// List returns a page of users ordered by id.
func (s *UserStore) List(ctx context.Context, skip, limit int) ([]*users.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users ORDER BY id LIMIT $1 OFFSET $2`, userColumns)
	return s.queryUsers(ctx, query, limit, skip)
}

// GetByTenantID returns a page of the tenant's users ordered by id.
func (s *UserStore) GetByTenantID(ctx context.Context, tenantID int64, skip, limit int) ([]*users.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE tenant_id = $1 ORDER BY id LIMIT $2 OFFSET $3`, userColumns)
	return s.queryUsers(ctx, query, tenantID, limit, skip)
}

// GetAdminUsers returns a page of admin users ordered by id.
func (s *UserStore) GetAdminUsers(ctx context.Context, skip, limit int) ([]*users.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE is_admin ORDER BY id LIMIT $1 OFFSET $2`, userColumns)
	return s.queryUsers(ctx, query, limit, skip)
}

// Delete removes a user, reporting whether a row was deleted.
func (s *UserStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClearExpiredCodes clears every verification code slot that expired before
// now and returns the number of rows touched.
func (s *UserStore) ClearExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE users
		SET email_code = NULL, email_code_expires_at = NULL, updated_at = $1
		WHERE email_code IS NOT NULL AND email_code_expires_at < $1
	`
	res, err := s.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired codes: %w", err)
	}
	return res.RowsAffected()
}

func (s *UserStore) queryUsers(ctx context.Context, query string, args ...interface{}) ([]*users.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var out []*users.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
