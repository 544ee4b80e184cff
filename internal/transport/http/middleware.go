// Copyright 2026 The ChronicleHub Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/auth"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/observability/logger"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/observability/metrics"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/tenant"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			slog.InfoContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// MetricsMiddleware records request duration against the matched route.
func MetricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				// The route pattern is only known once routing has run.
				route := chi.RouteContext(r.Context()).RoutePattern()
				if route == "" {
					route = r.URL.Path
				}
				m.RequestObserved(r.Context(), route, ww.Status(), time.Since(start).Seconds()*1000)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// Authenticate resolves request credentials through the gate and stores the
// resulting identity in the request context. Credential precedence follows
// the gate: X-API-Key first, then the Authorization bearer token. The
// tenant scope is the tenantID route parameter when the route carries one;
// a tenant named anywhere else is ignored.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return h.authenticate(next, true)
}

// AuthenticateUnscoped authenticates the credential without binding it to
// the routed tenant. Lifecycle endpoints need this: the gate refuses an
// inactive tenant's scope, yet an owner must still reach reactivation.
func (h *Handler) AuthenticateUnscoped(next http.Handler) http.Handler {
	return h.authenticate(next, false)
}

func (h *Handler) authenticate(next http.Handler, scoped bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cred := auth.Credential{
			APIKey:      r.Header.Get("X-API-Key"),
			AccessToken: bearerToken(r),
			RemoteAddr:  getIPAddress(r),
		}
		if scoped {
			cred.TenantID = chi.URLParam(r, "tenantID")
		}

		ident, err := h.gate.Authenticate(r.Context(), cred)
		if err != nil {
			h.rejectAuth(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), ident)))
	})
}

// rejectAuth translates a gate verdict into an HTTP response. Credential
// rejections map to 401, an inactive tenant to 403, and anything else is
// an infrastructure failure surfaced as 500.
func (h *Handler) rejectAuth(w http.ResponseWriter, r *http.Request, err error) {
	if !auth.IsRejection(err) {
		slog.ErrorContext(r.Context(), "authentication infrastructure failure", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "authentication unavailable")
		return
	}

	h.metrics.AuthRejected(r.Context(), err.Error())

	if errors.Is(err, auth.ErrTenantInactive) {
		respondError(w, http.StatusForbidden, "tenant is inactive")
		return
	}
	respondError(w, http.StatusUnauthorized, "authentication failed")
}

// RequireUser admits only session principals. API key callers carry no
// user and are refused.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := GetIdentity(r.Context())
		if ident == nil {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if ident.UserID == "" {
			respondError(w, http.StatusForbidden, "a user credential is required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireRole admits session principals holding at least min within the
// routed tenant. API key callers never satisfy a role check.
func RequireRole(min tenant.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := GetIdentity(r.Context())
			if ident == nil {
				respondError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if ident.UserID == "" || !ident.Role.AtLeast(min) {
				respondError(w, http.StatusForbidden, "insufficient role")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireMemberOrKey admits tenant members and the tenant's own API keys.
// An API key presented against another tenant's path is refused; the key's
// tenant binding cannot be widened by the request.
func RequireMemberOrKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := GetIdentity(r.Context())
		if ident == nil {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		if ident.IsAPIKey {
			if ident.TenantID != chi.URLParam(r, "tenantID") {
				respondError(w, http.StatusForbidden, "api key belongs to a different tenant")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if !ident.Role.AtLeast(tenant.RoleMember) {
			respondError(w, http.StatusForbidden, "not a member of this tenant")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
