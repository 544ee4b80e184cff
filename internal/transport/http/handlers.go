// @title ChronicleHub API
// @version 1.0.0
// @description Multi-tenant activity logging service
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://www.swagger.io/support
// @contact.email support@chroniclehub.dev

// @license.name Apache 2.0
// @license.url https://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey APIKeyAuth
// @in header
// @name X-API-Key

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/activity"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/apikey"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/audit"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/auth"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/observability/metrics"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/session"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/tenant"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	tenantService   *tenant.Service
	keyService      *apikey.Service
	sessionService  *session.Service
	activityService *activity.Service
	gate            *auth.Gate
	auditLogger     audit.Logger
	metrics         *metrics.Metrics
}

// NewHandler creates a new HTTP handler
func NewHandler(
	tenantService *tenant.Service,
	keyService *apikey.Service,
	sessionService *session.Service,
	activityService *activity.Service,
	gate *auth.Gate,
	auditLogger audit.Logger,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		tenantService:   tenantService,
		keyService:      keyService,
		sessionService:  sessionService,
		activityService: activityService,
		gate:            gate,
		auditLogger:     auditLogger,
		metrics:         m,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(MetricsMiddleware(h.metrics))
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Token endpoints authenticate by the refresh token in the body,
		// not through the gate.
		r.Post("/auth/refresh", h.RefreshToken)
		r.Post("/auth/logout", h.Logout)

		// Routes without a tenant in the path
		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate)

			r.With(RequireUser).Post("/auth/logout-all", h.LogoutAll)
			r.With(RequireUser).Post("/tenants", h.CreateTenant)
			r.With(RequireUser).Get("/tenants", h.ListTenants)
		})

		// Tenant-scoped routes. The gate resolves the caller's role within
		// the routed tenant; authorization is enforced per route.
		r.Route("/tenants/{tenantID}", func(r chi.Router) {
			// Lifecycle endpoints authenticate without tenant scope so an
			// owner can still reach an inactive tenant. The handlers check
			// ownership themselves.
			r.Group(func(r chi.Router) {
				r.Use(h.AuthenticateUnscoped, RequireUser)
				r.Post("/deactivate", h.DeactivateTenant)
				r.Post("/reactivate", h.ReactivateTenant)
			})

			r.Group(func(r chi.Router) {
				r.Use(h.Authenticate)

				r.With(RequireRole(tenant.RoleMember)).Get("/", h.GetTenant)

				r.Route("/members", func(r chi.Router) {
					r.With(RequireRole(tenant.RoleMember)).Get("/", h.ListMembers)
					r.With(RequireRole(tenant.RoleAdmin)).Post("/", h.AddMember)
					r.With(RequireRole(tenant.RoleAdmin)).Put("/{userID}", h.ChangeMemberRole)
					r.With(RequireRole(tenant.RoleAdmin)).Delete("/{userID}", h.RemoveMember)
				})

				r.Route("/keys", func(r chi.Router) {
					r.Use(RequireRole(tenant.RoleAdmin))
					r.Post("/", h.CreateKey)
					r.Get("/", h.ListKeys)
					r.Delete("/{keyID}", h.RevokeKey)
				})

				r.Route("/events", func(r chi.Router) {
					r.Use(RequireMemberOrKey)
					r.Post("/", h.RecordEvent)
					r.Get("/", h.ListEvents)
					r.Get("/{eventID}", h.GetEvent)
				})
			})
		})
	})

	return r
}

// HealthCheck returns the health status
// @Summary Health Check
// @Description Checks if the service is up and running
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "chroniclehub",
	})
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func getIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
