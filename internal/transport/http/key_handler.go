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
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/apikey"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/observability/logger"
)

// CreateKeyRequest represents API key creation data. TTL is a Go duration
// string; empty means the key never expires.
type CreateKeyRequest struct {
	Name string `json:"name" binding:"required" example:"ci-bot"`
	TTL  string `json:"ttl" example:"720h"`
}

// CreateKeyResponse carries the only copy of the plaintext key that will
// ever leave the service.
type CreateKeyResponse struct {
	Key       *apikey.Key `json:"key"`
	Plaintext string      `json:"plaintext"`
}

// CreateKey issues a new API key
// @Summary Create API Key
// @Description Issue a new API key for the tenant. The plaintext is returned once and never again.
// @Tags APIKey
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Param request body CreateKeyRequest true "Key Data"
// @Success 201 {object} CreateKeyResponse
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /tenants/{tenantID}/keys [post]
func (h *Handler) CreateKey(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req CreateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	var ttl time.Duration
	if req.TTL != "" {
		parsed, err := time.ParseDuration(req.TTL)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "ttl must be a positive duration")
			return
		}
		ttl = parsed
	}

	key, plaintext, err := h.keyService.Issue(r.Context(), tenantID, req.Name, ttl)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue api key",
			logger.Error(err),
			logger.TenantID(tenantID),
		)
		respondError(w, http.StatusInternalServerError, "failed to issue api key")
		return
	}

	h.metrics.KeyIssued(r.Context(), tenantID)
	respondJSON(w, http.StatusCreated, CreateKeyResponse{Key: key, Plaintext: plaintext})
}

// ListKeys lists a tenant's API keys
// @Summary List API Keys
// @Description List the tenant's API keys. Secret hashes are never included.
// @Tags APIKey
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Success 200 {array} apikey.Key
// @Failure 403 {object} map[string]string
// @Router /tenants/{tenantID}/keys [get]
func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keyService.List(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list api keys", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list api keys")
		return
	}

	respondJSON(w, http.StatusOK, keys)
}

// RevokeKey revokes an API key
// @Summary Revoke API Key
// @Description Revoke an API key permanently. Revoking an already revoked key is a no-op.
// @Tags APIKey
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Param keyID path string true "Key ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /tenants/{tenantID}/keys/{keyID} [delete]
func (h *Handler) RevokeKey(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	keyID := chi.URLParam(r, "keyID")

	if err := h.keyService.Revoke(r.Context(), tenantID, keyID, GetUserID(r.Context())); err != nil {
		if errors.Is(err, apikey.ErrKeyNotFound) {
			respondError(w, http.StatusNotFound, "api key not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to revoke api key",
			logger.Error(err),
			logger.KeyID(keyID),
		)
		respondError(w, http.StatusInternalServerError, "failed to revoke api key")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}
