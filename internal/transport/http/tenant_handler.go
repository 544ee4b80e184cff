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
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/observability/logger"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/tenant"
)

// CreateTenantRequest represents tenant creation data
type CreateTenantRequest struct {
	Name string `json:"name" binding:"required" example:"Acme Corporation"`
	Slug string `json:"slug" binding:"required" example:"acme"`
}

// CreateTenant handles tenant creation
// @Summary Create Tenant
// @Description Create a new tenant; the caller becomes its first owner
// @Tags Tenant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTenantRequest true "Tenant Data"
// @Success 201 {object} tenant.Tenant
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /tenants [post]
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Slug == "" {
		respondError(w, http.StatusBadRequest, "name and slug are required")
		return
	}
	if !tenant.ValidSlug(req.Slug) {
		respondError(w, http.StatusBadRequest, "invalid slug")
		return
	}

	t, err := h.tenantService.CreateTenant(r.Context(), req.Name, req.Slug, GetUserID(r.Context()))
	if err != nil {
		if errors.Is(err, tenant.ErrSlugTaken) {
			respondError(w, http.StatusConflict, "slug already in use")
			return
		}
		slog.ErrorContext(r.Context(), "failed to create tenant", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to create tenant")
		return
	}

	respondJSON(w, http.StatusCreated, t)
}

// ListTenants lists the caller's tenants
// @Summary List Tenants
// @Description List the tenants the authenticated user is a member of
// @Tags Tenant
// @Produce json
// @Security BearerAuth
// @Success 200 {array} tenant.Tenant
// @Failure 401 {object} map[string]string
// @Router /tenants [get]
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.tenantService.ListTenantsForUser(r.Context(), GetUserID(r.Context()))
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list tenants", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list tenants")
		return
	}

	respondJSON(w, http.StatusOK, tenants)
}

// GetTenant returns a single tenant
// @Summary Get Tenant
// @Description Fetch a tenant the caller is a member of
// @Tags Tenant
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Success 200 {object} tenant.Tenant
// @Failure 404 {object} map[string]string
// @Router /tenants/{tenantID} [get]
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.tenantService.GetTenant(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			respondError(w, http.StatusNotFound, "tenant not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to load tenant", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load tenant")
		return
	}

	respondJSON(w, http.StatusOK, t)
}

// DeactivateTenant suspends a tenant
// @Summary Deactivate Tenant
// @Description Suspend a tenant; its API keys and memberships stop validating immediately
// @Tags Tenant
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /tenants/{tenantID}/deactivate [post]
func (h *Handler) DeactivateTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if !h.requireOwner(w, r, tenantID) {
		return
	}

	if err := h.tenantService.Deactivate(r.Context(), tenantID, GetUserID(r.Context())); err != nil {
		h.respondTenantError(w, r, "failed to deactivate tenant", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": tenant.StatusInactive})
}

// ReactivateTenant returns a suspended tenant to service
// @Summary Reactivate Tenant
// @Description Reactivate a suspended tenant; credentials not individually revoked or expired become usable again
// @Tags Tenant
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /tenants/{tenantID}/reactivate [post]
func (h *Handler) ReactivateTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if !h.requireOwner(w, r, tenantID) {
		return
	}

	if err := h.tenantService.Reactivate(r.Context(), tenantID, GetUserID(r.Context())); err != nil {
		h.respondTenantError(w, r, "failed to reactivate tenant", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": tenant.StatusActive})
}

// requireOwner resolves the caller's role straight from the membership
// store, skipping the gate's tenant-status check. Lifecycle endpoints stay
// reachable while a tenant is inactive. Writes the refusal itself and
// reports whether the caller may proceed.
func (h *Handler) requireOwner(w http.ResponseWriter, r *http.Request, tenantID string) bool {
	role, err := h.tenantService.ResolveRole(r.Context(), GetUserID(r.Context()), tenantID)
	if err != nil && !errors.Is(err, tenant.ErrMembershipNotFound) {
		slog.ErrorContext(r.Context(), "failed to resolve caller role", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to resolve caller role")
		return false
	}
	if !role.AtLeast(tenant.RoleOwner) {
		respondError(w, http.StatusForbidden, "only an owner can manage the tenant lifecycle")
		return false
	}
	return true
}

// ListMembers lists tenant memberships
// @Summary List Members
// @Description List all members of a tenant with their roles
// @Tags Tenant
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Success 200 {array} tenant.Membership
// @Failure 403 {object} map[string]string
// @Router /tenants/{tenantID}/members [get]
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.tenantService.ListMembers(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list members", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list members")
		return
	}

	respondJSON(w, http.StatusOK, members)
}

// AddMemberRequest represents membership creation data
type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required" example:"u-42"`
	Role   string `json:"role" binding:"required" example:"member"`
}

// AddMember adds a user to a tenant
// @Summary Add Member
// @Description Add a user to a tenant with a role. Granting owner requires the caller to be an owner.
// @Tags Tenant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Param request body AddMemberRequest true "Membership Data"
// @Success 201 {object} tenant.Membership
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /tenants/{tenantID}/members [post]
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	role := tenant.Role(strings.ToLower(req.Role))
	if !role.Valid() {
		respondError(w, http.StatusBadRequest, "invalid role")
		return
	}
	if role == tenant.RoleOwner && !callerIsOwner(r) {
		respondError(w, http.StatusForbidden, "only an owner can grant owner")
		return
	}

	m, err := h.tenantService.AddMember(r.Context(), tenantID, req.UserID, role, GetUserID(r.Context()))
	if err != nil {
		h.respondTenantError(w, r, "failed to add member", err)
		return
	}

	respondJSON(w, http.StatusCreated, m)
}

// ChangeRoleRequest represents a role change
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required" example:"admin"`
}

// ChangeMemberRole changes a member's role
// @Summary Change Member Role
// @Description Change a member's role. Promoting to or demoting from owner requires the caller to be an owner.
// @Tags Tenant
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Param userID path string true "User ID"
// @Param request body ChangeRoleRequest true "Role Data"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /tenants/{tenantID}/members/{userID} [put]
func (h *Handler) ChangeMemberRole(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	userID := chi.URLParam(r, "userID")

	var req ChangeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role := tenant.Role(strings.ToLower(req.Role))
	if !role.Valid() {
		respondError(w, http.StatusBadRequest, "invalid role")
		return
	}

	current, err := h.tenantService.ResolveRole(r.Context(), userID, tenantID)
	if err != nil {
		h.respondTenantError(w, r, "failed to resolve member role", err)
		return
	}
	if (role == tenant.RoleOwner || current == tenant.RoleOwner) && !callerIsOwner(r) {
		respondError(w, http.StatusForbidden, "only an owner can change owner roles")
		return
	}

	if err := h.tenantService.ChangeRole(r.Context(), tenantID, userID, role, GetUserID(r.Context())); err != nil {
		h.respondTenantError(w, r, "failed to change role", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"role": string(role)})
}

// RemoveMember removes a user from a tenant
// @Summary Remove Member
// @Description Remove a member from a tenant. Removing an owner requires the caller to be an owner.
// @Tags Tenant
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Param userID path string true "User ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /tenants/{tenantID}/members/{userID} [delete]
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	userID := chi.URLParam(r, "userID")

	current, err := h.tenantService.ResolveRole(r.Context(), userID, tenantID)
	if err != nil {
		h.respondTenantError(w, r, "failed to resolve member role", err)
		return
	}
	if current == tenant.RoleOwner && !callerIsOwner(r) {
		respondError(w, http.StatusForbidden, "only an owner can remove an owner")
		return
	}

	if err := h.tenantService.RemoveMember(r.Context(), tenantID, userID, GetUserID(r.Context())); err != nil {
		h.respondTenantError(w, r, "failed to remove member", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// respondTenantError maps tenant service sentinels onto HTTP statuses.
func (h *Handler) respondTenantError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, tenant.ErrTenantNotFound):
		respondError(w, http.StatusNotFound, "tenant not found")
	case errors.Is(err, tenant.ErrMembershipNotFound):
		respondError(w, http.StatusNotFound, "member not found")
	case errors.Is(err, tenant.ErrMemberExists):
		respondError(w, http.StatusConflict, "user is already a member")
	case errors.Is(err, tenant.ErrLastOwner):
		respondError(w, http.StatusConflict, "tenant must keep at least one owner")
	case errors.Is(err, tenant.ErrInvalidRole):
		respondError(w, http.StatusBadRequest, "invalid role")
	default:
		slog.ErrorContext(r.Context(), msg, logger.Error(err))
		respondError(w, http.StatusInternalServerError, msg)
	}
}

func callerIsOwner(r *http.Request) bool {
	ident := GetIdentity(r.Context())
	return ident != nil && ident.Role.AtLeast(tenant.RoleOwner)
}
