package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/keygate/keygate/pkg/tenants"
)

// TenantStore implements tenants.Store on PostgreSQL. Deleting a tenant
// cascades to its users and projects through foreign key constraints.
type TenantStore struct {
	db *sql.DB
}

// NewTenantStore creates a tenant store over an open connection pool.
func NewTenantStore(db *sql.DB) *TenantStore {
	return &TenantStore{db: db}
}

// Save inserts the tenant when ID is zero, otherwise updates the row.
func (s *TenantStore) Save(ctx context.Context, tenant *tenants.Tenant) (*tenants.Tenant, error) {
	if tenant.ID == 0 {
		query := `
			INSERT INTO tenants (name, created_at, updated_at)
			VALUES ($1, $2, $3)
			RETURNING id
		`
		err := s.db.QueryRowContext(ctx, query, tenant.Name, tenant.CreatedAt, tenant.UpdatedAt).Scan(&tenant.ID)
		if err != nil {
			return nil, translateUnique(err, "tenant %q already exists", tenant.Name)
		}
		return tenant, nil
	}

	query := `UPDATE tenants SET name = $1, updated_at = $2 WHERE id = $3`
	if _, err := s.db.ExecContext(ctx, query, tenant.Name, tenant.UpdatedAt, tenant.ID); err != nil {
		return nil, translateUnique(err, "tenant %q already exists", tenant.Name)
	}
	return tenant, nil
}

// GetByID returns the tenant or (nil, nil) when absent.
func (s *TenantStore) GetByID(ctx context.Context, id int64) (*tenants.Tenant, error) {
	query := `SELECT id, name, created_at, updated_at FROM tenants WHERE id = $1`

	var t tenants.Tenant
	err := s.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &t, nil
}

// GetByName returns the tenant with the given name or (nil, nil).
func (s *TenantStore) GetByName(ctx context.Context, name string) (*tenants.Tenant, error) {
	query := `SELECT id, name, created_at, updated_at FROM tenants WHERE name = $1`

	var t tenants.Tenant
	err := s.db.QueryRowContext(ctx, query, name).Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get tenant by name: %w", err)
	}
	return &t, nil
}

// ExistsByName reports whether any tenant has the given name.
func (s *TenantStore) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM tenants WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check tenant name: %w", err)
	}
	return exists, nil
}

// List returns a page of tenants ordered by id.
func (s *TenantStore) List(ctx context.Context, skip, limit int) ([]*tenants.Tenant, error) {
	query := `SELECT id, name, created_at, updated_at FROM tenants ORDER BY id LIMIT $1 OFFSET $2`

	rows, err := s.db.QueryContext(ctx, query, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var out []*tenants.Tenant
	for rows.Next() {
		var t tenants.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// Delete removes a tenant. Users and projects under the tenant go with it
// via ON DELETE CASCADE.
func (s *TenantStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete tenant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
