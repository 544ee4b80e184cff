package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/activity"
	"github.com/JoshLikesToCode/ChronicleHub-sub001/internal/observability/logger"
)

// RecordEventRequest represents an activity event submission. The actor is
// taken from the authenticated identity, never from the request body.
type RecordEventRequest struct {
	Action     string         `json:"action" binding:"required" example:"deploy.started"`
	Target     string         `json:"target" example:"service/api"`
	Metadata   map[string]any `json:"metadata"`
	OccurredAt *time.Time     `json:"occurred_at"`
}

// RecordEvent records an activity event
// @Summary Record Event
// @Description Record an activity event for the tenant
// @Tags Activity
// @Accept json
// @Produce json
// @Security APIKeyAuth
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Param request body RecordEventRequest true "Event Data"
// @Success 201 {object} activity.Event
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /tenants/{tenantID}/events [post]
func (h *Handler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req RecordEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Action == "" {
		respondError(w, http.StatusBadRequest, "action is required")
		return
	}

	event := &activity.Event{
		TenantID: tenantID,
		Action:   req.Action,
		Target:   req.Target,
		Metadata: req.Metadata,
	}
	if req.OccurredAt != nil {
		event.OccurredAt = req.OccurredAt.UTC()
	}

	ident := GetIdentity(r.Context())
	if ident.IsAPIKey {
		event.Source = activity.SourceAPIKey
		event.Actor = ident.KeyID
	} else {
		event.Source = activity.SourceUser
		event.Actor = ident.UserID
	}

	if err := h.activityService.Record(r.Context(), event); err != nil {
		slog.ErrorContext(r.Context(), "failed to record event",
			logger.Error(err),
			logger.TenantID(tenantID),
			logger.Action(req.Action),
		)
		respondError(w, http.StatusInternalServerError, "failed to record event")
		return
	}

	h.metrics.EventRecorded(r.Context(), tenantID)
	respondJSON(w, http.StatusCreated, event)
}

// ListEvents lists a tenant's activity events
// @Summary List Events
// @Description List the tenant's activity events, newest first. Supports action, actor and time range filters.
// @Tags Activity
// @Produce json
// @Security APIKeyAuth
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Param action query string false "Filter by action"
// @Param actor query string false "Filter by actor"
// @Param since query string false "RFC 3339 lower bound"
// @Param until query string false "RFC 3339 upper bound"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} activity.Event
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /tenants/{tenantID}/events [get]
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	filter, err := eventFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := h.activityService.List(r.Context(), tenantID, filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list events",
			logger.Error(err),
			logger.TenantID(tenantID),
		)
		respondError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	respondJSON(w, http.StatusOK, events)
}

// GetEvent returns a single activity event
// @Summary Get Event
// @Description Fetch a single activity event by ID
// @Tags Activity
// @Produce json
// @Security APIKeyAuth
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Param eventID path string true "Event ID"
// @Success 200 {object} activity.Event
// @Failure 404 {object} map[string]string
// @Router /tenants/{tenantID}/events/{eventID} [get]
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	eventID := chi.URLParam(r, "eventID")

	event, err := h.activityService.Get(r.Context(), tenantID, eventID)
	if err != nil {
		if errors.Is(err, activity.ErrEventNotFound) {
			respondError(w, http.StatusNotFound, "event not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to load event",
			logger.Error(err),
			logger.EventID(eventID),
		)
		respondError(w, http.StatusInternalServerError, "failed to load event")
		return
	}

	respondJSON(w, http.StatusOK, event)
}

// eventFilter builds an activity filter from list query parameters.
func eventFilter(r *http.Request) (activity.Filter, error) {
	q := r.URL.Query()
	filter := activity.Filter{
		Action: q.Get("action"),
		Actor:  q.Get("actor"),
	}

	if raw := q.Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, errors.New("since must be RFC 3339")
		}
		filter.Since = t.UTC()
	}
	if raw := q.Get("until"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, errors.New("until must be RFC 3339")
		}
		filter.Until = t.UTC()
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, errors.New("limit must be a non-negative integer")
		}
		filter.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, errors.New("offset must be a non-negative integer")
		}
		filter.Offset = n
	}

	return filter, nil
}
