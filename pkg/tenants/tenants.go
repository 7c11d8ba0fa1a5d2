// Package tenants implements the tenant aggregate: the isolated
// organizational unit that owns users and projects.
package tenants

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/keygate/keygate/pkg/apperrors"
)

// Tenant is an isolated organizational unit. Deleting a tenant cascades to
// its users and projects; the cascade is enforced at the storage layer.
type Tenant struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTenant creates a tenant with the given name.
func NewTenant(name string) *Tenant {
	now := time.Now()
	return &Tenant{Name: name, CreatedAt: now, UpdatedAt: now}
}

// Store is the persistence gateway for tenants.
type Store interface {
	Save(ctx context.Context, tenant *Tenant) (*Tenant, error)
	GetByID(ctx context.Context, id int64) (*Tenant, error)
	GetByName(ctx context.Context, name string) (*Tenant, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	List(ctx context.Context, skip, limit int) ([]*Tenant, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Service orchestrates tenant operations with the persistence gateway.
type Service struct {
	store  Store
	logger *logrus.Logger
}

// NewService creates a tenant service.
func NewService(store Store, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{store: store, logger: logger}
}

// CreateTenant creates a tenant with a system-wide unique name.
func (s *Service) CreateTenant(ctx context.Context, name string) (*Tenant, error) {
	exists, err := s.store.ExistsByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check tenant name: %w", err)
	}
	if exists {
		return nil, apperrors.New(apperrors.KindAlreadyExists, "tenant %q already exists", name)
	}

	saved, err := s.store.Save(ctx, NewTenant(name))
	if err != nil {
		return nil, err
	}

	s.logger.WithField("tenant_id", saved.ID).Info("tenant created")
	return saved, nil
}

// GetTenant returns a tenant by id.
func (s *Service) GetTenant(ctx context.Context, id int64) (*Tenant, error) {
	tenant, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "tenant %d not found", id)
	}
	return tenant, nil
}

// GetTenantByName returns a tenant by name.
func (s *Service) GetTenantByName(ctx context.Context, name string) (*Tenant, error) {
	tenant, err := s.store.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "tenant %q not found", name)
	}
	return tenant, nil
}

// ListTenants returns a page of tenants.
func (s *Service) ListTenants(ctx context.Context, skip, limit int) ([]*Tenant, error) {
	return s.store.List(ctx, skip, limit)
}

// DeleteTenant hard-deletes a tenant. The storage layer cascades the delete
// to the tenant's users and projects; this is deliberate and irreversible.
func (s *Service) DeleteTenant(ctx context.Context, id int64) error {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.New(apperrors.KindNotFound, "tenant %d not found", id)
	}

	s.logger.WithField("tenant_id", id).Warn("tenant deleted with cascade")
	return nil
}
