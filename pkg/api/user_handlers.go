package api

import (
	"net/http"

	"github.com/keygate/keygate/pkg/httputil"
	"github.com/keygate/keygate/pkg/middleware"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := httputil.ParsePagination(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	list, err := s.users.ListUsers(r.Context(), skip, limit)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

func (s *Server) handleListAdmins(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := httputil.ParsePagination(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	list, err := s.users.ListAdmins(r.Context(), skip, limit)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

// handleGetUser serves a single user. Non-admin callers may only read their
// own record.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	claims := middleware.GetClaims(r)
	if !claims.IsAdmin && claims.UserID != id {
		httputil.WriteForbidden(w, "cannot access another user's record")
		return
	}

	user, err := s.users.GetUser(r.Context(), id)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

func (s *Server) handleGetUserByEmail(w http.ResponseWriter, r *http.Request) {
	email, err := httputil.ParsePathString(r, "email")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	user, err := s.users.GetUserByEmail(r.Context(), email)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.users.DeleteUser(r.Context(), id); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) handleListTenantUsers(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	skip, limit, err := httputil.ParsePagination(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	list, err := s.users.ListByTenant(r.Context(), tenantID, skip, limit)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

// handleListUserProjects serves the projects a user belongs to. Non-admin
// callers may only list their own.
func (s *Server) handleListUserProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	claims := middleware.GetClaims(r)
	if !claims.IsAdmin && claims.UserID != userID {
		httputil.WriteForbidden(w, "cannot access another user's projects")
		return
	}

	list, err := s.projects.ListByUser(r.Context(), userID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}
