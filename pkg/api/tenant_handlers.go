package api

import (
	"net/http"

	"github.com/keygate/keygate/pkg/httputil"
)

func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	tenant, err := s.tenants.CreateTenant(r.Context(), req.Name)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteCreated(w, tenant)
}

func (s *Server) handleListTenants(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := httputil.ParsePagination(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	list, err := s.tenants.ListTenants(r.Context(), skip, limit)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

func (s *Server) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	tenant, err := s.tenants.GetTenant(r.Context(), id)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, tenant)
}

// handleDeleteTenant removes a tenant along with all of its users and
// projects. The cascade is irreversible.
func (s *Server) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.tenants.DeleteTenant(r.Context(), id); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
