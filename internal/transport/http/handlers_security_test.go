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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// INPUT VALIDATION TESTS
// Category: HTTP API - Input Validation & HTTP Behavior
// Type: Unit Test (UT)
// =============================================================================

// TestPurpose: Validates that token refresh rejects empty and malformed bodies.
// Scope: Unit Test
// Security: Request body parsing and validation
// Expected: Returns HTTP 400 Bad Request before any service call.
// Test Case ID: VAL-01
func TestRefresh_BadBody_ReturnsBadRequest(t *testing.T) {
	h := createMinimalHandler(t)

	for _, body := range []string{``, `{}`, `{"refresh_token": ""}`, `{invalid_json}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		h.RefreshToken(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code,
			"VAL-01: body %q should return 400 Bad Request", body)
	}
}

// TestPurpose: Validates that logout requires a refresh token in the body.
// Scope: Unit Test
// Security: Request body parsing and validation
// Expected: Returns HTTP 400 Bad Request for a missing token.
// Test Case ID: VAL-02
func TestLogout_MissingToken_ReturnsBadRequest(t *testing.T) {
	h := createMinimalHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Logout(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code,
		"VAL-02: missing refresh_token should return 400 Bad Request")
}

// TestPurpose: Validates that tenant creation requires name and a well formed slug.
// Scope: Unit Test
// Security: Input validation
// Expected: Returns 400 Bad Request before any service call.
// Test Case ID: VAL-03
func TestTenant_Create_BadInput_ReturnsBadRequest(t *testing.T) {
	h := createMinimalHandler(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"slug": "acme"}`},
		{"missing slug", `{"name": "Acme"}`},
		{"slug too short", `{"name": "Acme", "slug": "ab"}`},
		{"slug bad characters", `{"name": "Acme", "slug": "Acme Corp"}`},
		{"malformed json", `{`},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants", bytes.NewReader([]byte(tc.body)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		h.CreateTenant(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code,
			"VAL-03: %s should return 400 Bad Request", tc.name)
	}
}

// TestPurpose: Validates that membership changes reject roles outside the closed set.
// Scope: Unit Test
// Security: Role input validation
// Expected: Returns 400 Bad Request for unknown roles.
// Test Case ID: VAL-04
func TestMember_Add_UnknownRole_ReturnsBadRequest(t *testing.T) {
	h := createMinimalHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants/t1/members",
		bytes.NewReader([]byte(`{"user_id": "u1", "role": "superadmin"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.AddMember(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code,
		"VAL-04: unknown role should return 400 Bad Request")
}

// TestPurpose: Validates that API key creation rejects empty names and bad TTLs.
// Scope: Unit Test
// Security: Input validation
// Expected: Returns 400 Bad Request before any key material is generated.
// Test Case ID: VAL-05
func TestKey_Create_BadInput_ReturnsBadRequest(t *testing.T) {
	h := createMinimalHandler(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"ttl": "720h"}`},
		{"unparseable ttl", `{"name": "ci-bot", "ttl": "tomorrow"}`},
		{"negative ttl", `{"name": "ci-bot", "ttl": "-1h"}`},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants/t1/keys", bytes.NewReader([]byte(tc.body)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		h.CreateKey(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code,
			"VAL-05: %s should return 400 Bad Request", tc.name)
	}
}

// TestPurpose: Validates that event submission requires an action.
// Scope: Unit Test
// Security: Input validation
// Expected: Returns 400 Bad Request when action is empty.
// Test Case ID: VAL-06
func TestEvent_Record_MissingAction_ReturnsBadRequest(t *testing.T) {
	h := createMinimalHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants/t1/events",
		bytes.NewReader([]byte(`{"target": "service/api"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.RecordEvent(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code,
		"VAL-06: missing action should return 400 Bad Request")
}

// TestPurpose: Validates that event listing rejects malformed filter parameters.
// Scope: Unit Test
// Security: Query parameter validation
// Expected: Returns 400 Bad Request for bad timestamps and negative paging.
// Test Case ID: VAL-07
func TestEvent_List_BadFilter_ReturnsBadRequest(t *testing.T) {
	h := createMinimalHandler(t)

	for _, query := range []string{
		"?since=yesterday",
		"?until=not-a-time",
		"?limit=-1",
		"?offset=abc",
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tenants/t1/events"+query, nil)
		w := httptest.NewRecorder()

		h.ListEvents(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code,
			"VAL-07: query %q should return 400 Bad Request", query)
	}
}

// =============================================================================
// SECURITY TESTS - Response Safety
// Category: Security - Error Handling
// Type: Unit Test (UT)
// =============================================================================

// TestPurpose: Validates that error responses do not leak internal details.
// Scope: Unit Test
// Security: Information disclosure prevention (CWE-209)
// Expected: Response body does not contain stack traces, paths or runtime internals.
// Test Case ID: SEC-01
func TestSecurity_ErrorHandling_NoSensitiveDataIsLeaked(t *testing.T) {
	h := createMinimalHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", bytes.NewReader([]byte(`{invalid}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.RefreshToken(w, req)

	body := w.Body.String()

	sensitivePatterns := []string{
		"panic",
		"/Users/",
		"/home/",
		"goroutine",
		"runtime.",
		".go:",
		"stack trace",
	}

	for _, pattern := range sensitivePatterns {
		assert.NotContains(t, strings.ToLower(body), strings.ToLower(pattern),
			"SEC-01 SECURITY: Response should not contain '%s'", pattern)
	}
}

// TestPurpose: Validates that JSON responses include the application/json Content-Type header.
// Scope: Unit Test
// Security: Prevents MIME sniffing attacks
// Expected: Content-Type header contains "application/json".
// Test Case ID: SEC-02
func TestSecurity_Headers_JSONContentTypeIsSet(t *testing.T) {
	h := createMinimalHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	h.HealthCheck(w, req)

	contentType := w.Header().Get("Content-Type")
	assert.Contains(t, contentType, "application/json",
		"SEC-02: JSON responses must have application/json content type")
}

// TestPurpose: Validates the error body shape and the health check structure.
// Scope: Unit Test
// Security: Validates safe response format
// Expected: Errors are {"error": "..."}; health is valid JSON with a status.
// Test Case ID: SEC-03
func TestSecurity_ResponseShapes(t *testing.T) {
	h := createMinimalHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	h.Logout(w, req)

	var errResp map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp),
		"SEC-03: error response should be valid JSON")
	assert.NotEmpty(t, errResp["error"], "SEC-03: error response should carry an error field")

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	w = httptest.NewRecorder()
	h.HealthCheck(w, req)

	assert.Equal(t, http.StatusOK, w.Code, "SEC-03: health check should return 200")

	var health map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &health),
		"SEC-03: health response should be valid JSON")
	assert.Equal(t, "healthy", health["status"], "SEC-03: health response should report healthy")
}

// =============================================================================
// TEST HELPERS
// =============================================================================

// createMinimalHandler creates a Handler with nil services for input
// validation testing.
//
// This handler is suitable for tests that:
// - Verify request parsing and validation
// - Check HTTP-level behavior (headers, status codes)
// - Validate error response formats
//
// Tests that reach service logic use the full in-memory stack in
// router_test.go instead.
func createMinimalHandler(t *testing.T) *Handler {
	t.Helper()
	return &Handler{}
}
