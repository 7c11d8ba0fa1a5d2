package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/keygate/keygate/pkg/auth"
	"github.com/keygate/keygate/pkg/middleware"
	"github.com/keygate/keygate/pkg/observability"
	"github.com/keygate/keygate/pkg/projects"
	"github.com/keygate/keygate/pkg/tenants"
	"github.com/keygate/keygate/pkg/users"
)

// Config holds the API server's behavioral settings.
type Config struct {
	TokenTTL time.Duration
	CodeTTL  time.Duration

	// DevMode returns verification codes inline in API responses instead
	// of dispatching them out of band. Never enable in production.
	DevMode bool
}

// Server wires the domain services into HTTP routes.
type Server struct {
	cfg      Config
	users    *users.Service
	tenants  *tenants.Service
	projects *projects.Service
	issuer   *auth.TokenIssuer

	loginLimiter *middleware.RateLimiter
	metrics      *observability.Metrics
	logger       *logrus.Logger

	router *mux.Router
}

// NewServer creates the API server and registers all routes. The rate
// limiter and metrics may be nil, in which case those concerns are skipped.
func NewServer(
	cfg Config,
	usersSvc *users.Service,
	tenantsSvc *tenants.Service,
	projectsSvc *projects.Service,
	issuer *auth.TokenIssuer,
	loginLimiter *middleware.RateLimiter,
	metrics *observability.Metrics,
	logger *logrus.Logger,
) *Server {
	if logger == nil {
		logger = logrus.New()
	}

	s := &Server{
		cfg:          cfg,
		users:        usersSvc,
		tenants:      tenantsSvc,
		projects:     projectsSvc,
		issuer:       issuer,
		loginLimiter: loginLimiter,
		metrics:      metrics,
		logger:       logger,
	}
	s.router = s.buildRouter()
	return s
}

// Handler returns the fully assembled HTTP handler: routing wrapped in
// request ID, logging, recovery, and metrics middleware.
func (s *Server) Handler() http.Handler {
	chain := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RequestLogger(s.logger),
		middleware.Recovery(s.logger),
	}
	return middleware.Chain(chain...)(s.router)
}

func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()

	if s.metrics != nil {
		r.Use(s.metrics.HTTPMetricsMiddleware)
	}

	authMW := middleware.NewAuthMiddleware(s.issuer, false)

	// Public authentication routes
	public := r.PathPrefix("/auth").Subrouter()
	public.HandleFunc("/signup", s.handleSignup).Methods("POST")
	public.HandleFunc("/request-password-reset", s.handleRequestPasswordReset).Methods("POST")
	public.HandleFunc("/reset-password", s.handleResetPassword).Methods("POST")

	login := http.HandlerFunc(s.handleLogin)
	if s.loginLimiter != nil {
		public.Handle("/login", s.loginLimiter.Handler(login)).Methods("POST")
	} else {
		public.Handle("/login", login).Methods("POST")
	}

	// Authenticated self-service routes
	me := r.PathPrefix("/auth").Subrouter()
	me.Use(authMW.Handler)
	me.HandleFunc("/me", s.handleMe).Methods("GET")
	me.HandleFunc("/logout", s.handleLogout).Methods("POST")
	me.HandleFunc("/send-verification-code", s.handleSendVerificationCode).Methods("POST")
	me.HandleFunc("/verify-email", s.handleVerifyEmail).Methods("POST")
	me.HandleFunc("/change-password", s.handleChangePassword).Methods("POST")

	// Authenticated API routes
	apiRoutes := r.PathPrefix("/").Subrouter()
	apiRoutes.Use(authMW.Handler)

	// Tenants: admin only
	apiRoutes.Handle("/tenants", middleware.RequireAdmin(http.HandlerFunc(s.handleCreateTenant))).Methods("POST")
	apiRoutes.Handle("/tenants", middleware.RequireAdmin(http.HandlerFunc(s.handleListTenants))).Methods("GET")
	apiRoutes.Handle("/tenants/{id}", middleware.RequireAdmin(http.HandlerFunc(s.handleGetTenant))).Methods("GET")
	apiRoutes.Handle("/tenants/{id}", middleware.RequireAdmin(http.HandlerFunc(s.handleDeleteTenant))).Methods("DELETE")
	apiRoutes.Handle("/tenants/{id}/users", middleware.RequireAdmin(http.HandlerFunc(s.handleListTenantUsers))).Methods("GET")

	// Users
	apiRoutes.Handle("/users", middleware.RequireAdmin(http.HandlerFunc(s.handleListUsers))).Methods("GET")
	apiRoutes.Handle("/users/admins", middleware.RequireAdmin(http.HandlerFunc(s.handleListAdmins))).Methods("GET")
	apiRoutes.Handle("/users/by-email/{email}", middleware.RequireAdmin(http.HandlerFunc(s.handleGetUserByEmail))).Methods("GET")
	apiRoutes.HandleFunc("/users/{id}", s.handleGetUser).Methods("GET")
	apiRoutes.Handle("/users/{id}", middleware.RequireAdmin(http.HandlerFunc(s.handleDeleteUser))).Methods("DELETE")
	apiRoutes.HandleFunc("/users/{id}/projects", s.handleListUserProjects).Methods("GET")

	// Projects and membership
	apiRoutes.HandleFunc("/projects", s.handleCreateProject).Methods("POST")
	apiRoutes.HandleFunc("/projects", s.handleListProjects).Methods("GET")
	apiRoutes.HandleFunc("/projects/{id}", s.handleGetProject).Methods("GET")
	apiRoutes.HandleFunc("/projects/{id}", s.handleUpdateProject).Methods("PATCH")
	apiRoutes.HandleFunc("/projects/{id}", s.handleDeleteProject).Methods("DELETE")
	apiRoutes.HandleFunc("/projects/{id}/members", s.handleInviteMember).Methods("POST")
	apiRoutes.HandleFunc("/projects/{id}/members", s.handleListMembers).Methods("GET")
	apiRoutes.HandleFunc("/members/{id}/role", s.handleChangeMemberRole).Methods("PUT")
	apiRoutes.HandleFunc("/members/{id}", s.handleRemoveMember).Methods("DELETE")

	return r
}
