package api

import (
	"net/http"

	"github.com/keygate/keygate/pkg/httputil"
	"github.com/keygate/keygate/pkg/middleware"
	"github.com/keygate/keygate/pkg/projects"
)

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)

	var req CreateProjectRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	project, err := s.projects.CreateProject(r.Context(), req.Name, req.Description, claims.UserID, claims.TenantID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteCreated(w, project)
}

// handleListProjects serves projects scoped by the "scope" query parameter:
// "owned" for projects the caller owns, "member" for projects the caller
// belongs to, and the default of the caller's whole tenant.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)

	var (
		list []*projects.Project
		err  error
	)
	switch r.URL.Query().Get("scope") {
	case "owned":
		list, err = s.projects.ListByOwner(r.Context(), claims.UserID)
	case "member":
		list, err = s.projects.ListByUser(r.Context(), claims.UserID)
	default:
		list, err = s.projects.ListByTenant(r.Context(), claims.TenantID)
	}
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	project, err := s.projects.GetProject(r.Context(), id)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, project)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req UpdateProjectRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	project, err := s.projects.UpdateProject(r.Context(), id, req.Name, req.Description)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, project)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.projects.DeleteProject(r.Context(), id); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) handleInviteMember(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)

	projectID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req InviteMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.UserID == 0 {
		httputil.WriteValidationError(w, "user_id is required")
		return
	}

	member, err := s.projects.InviteUser(r.Context(), projectID, req.UserID, req.Role, claims.UserID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteCreated(w, member)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	projectID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	members, err := s.projects.ListMembers(r.Context(), projectID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, members)
}

func (s *Server) handleChangeMemberRole(w http.ResponseWriter, r *http.Request) {
	memberID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req ChangeRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	member, err := s.projects.ChangeMemberRole(r.Context(), memberID, req.Role)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, member)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	memberID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.projects.RemoveMember(r.Context(), memberID); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
