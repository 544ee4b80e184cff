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
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/observability/logger"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/session"
)

// RefreshRequest carries the refresh token presented for rotation or logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshToken rotates a refresh token
// @Summary Refresh tokens
// @Description Exchange a refresh token for a new access and refresh token pair. The presented token is consumed; reusing it revokes the whole chain.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh Token"
// @Success 200 {object} session.TokenPair
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /auth/refresh [post]
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		respondError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := h.sessionService.Rotate(r.Context(), req.RefreshToken, getIPAddress(r))
	if err != nil {
		h.respondTokenError(w, r, err)
		return
	}

	h.metrics.TokenRotated(r.Context())
	respondJSON(w, http.StatusOK, pair)
}

// Logout revokes a refresh token
// @Summary Logout
// @Description Revoke the presented refresh token. Succeeds whether or not the token was still live.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh Token"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		respondError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	if err := h.sessionService.Revoke(r.Context(), req.RefreshToken, getIPAddress(r)); err != nil {
		// Revoking an unknown token discloses nothing and costs nothing.
		if !errors.Is(err, session.ErrTokenNotFound) {
			slog.ErrorContext(r.Context(), "failed to revoke refresh token", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "token service unavailable")
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// LogoutAll revokes every live refresh token of the caller
// @Summary Logout everywhere
// @Description Revoke all live refresh tokens belonging to the authenticated user
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /auth/logout-all [post]
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	revoked, err := h.sessionService.RevokeAllForUser(r.Context(), userID, getIPAddress(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to revoke user tokens",
			logger.Error(err),
			logger.UserID(userID),
		)
		respondError(w, http.StatusInternalServerError, "token service unavailable")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"revoked": revoked})
}

// respondTokenError maps refresh token verdicts onto HTTP statuses. Every
// credential verdict reads the same to the caller; only infrastructure
// failures are distinguished.
func (h *Handler) respondTokenError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrTokenReuse):
		h.metrics.ReuseDetected(r.Context())
		respondError(w, http.StatusUnauthorized, "invalid refresh token")
	case errors.Is(err, session.ErrTokenNotFound),
		errors.Is(err, session.ErrTokenExpired),
		errors.Is(err, session.ErrTokenRevoked):
		respondError(w, http.StatusUnauthorized, "invalid refresh token")
	default:
		slog.ErrorContext(r.Context(), "failed to rotate refresh token", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "token service unavailable")
	}
}
