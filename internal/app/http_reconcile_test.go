package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fundops/api/internal/auth"
	"fundops/api/internal/reconcile"
)

func bearerFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.IssueToken([]byte(testSecret), userID, userID+"@example.com", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + token
}

func serve(t *testing.T, server *HTTPServer, method, target, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if userID != "" {
		req.Header.Set("Authorization", bearerFor(t, userID))
	}
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeErrorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rr.Body.String())
	}
	code, _ := payload["code"].(string)
	return code
}

func TestPreviewEndpoint(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore(), Dependencies{}), "*", nil)

	rr := serve(t, server, http.MethodGet, "/api/reconcile/preview?company_id=co1", "u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var payload struct {
		Total     int `json:"total"`
		Matched   int `json:"matched"`
		Ambiguous int `json:"ambiguous"`
		NotFound  int `json:"not_found"`
		Results   []struct {
			InvestorID string `json:"investor_id"`
			Status     string `json:"status"`
			MatchType  string `json:"match_type"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if payload.Total != 3 || payload.Matched != 1 || payload.Ambiguous != 1 || payload.NotFound != 1 {
		t.Fatalf("unexpected counts: %+v", payload)
	}
	if payload.Results[0].Status != "matched" || payload.Results[0].MatchType != "exact" {
		t.Fatalf("unexpected first result: %+v", payload.Results[0])
	}
}

func TestPreviewEndpointErrors(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore(), Dependencies{}), "*", nil)

	cases := []struct {
		name   string
		target string
		userID string
		status int
		code   string
	}{
		{name: "no token", target: "/api/reconcile/preview?company_id=co1", status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "missing company", target: "/api/reconcile/preview", userID: "u1", status: http.StatusBadRequest, code: "VALIDATION_ERROR"},
		{name: "no membership", target: "/api/reconcile/preview?company_id=co1", userID: "stranger", status: http.StatusForbidden, code: "FORBIDDEN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := serve(t, server, http.MethodGet, tc.target, tc.userID, "")
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
			if code := decodeErrorCode(t, rr); code != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, code)
			}
		})
	}
}

func TestPreviewEndpointRejectsInvalidToken(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore(), Dependencies{}), "*", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/reconcile/preview?company_id=co1", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestApplyEndpoint(t *testing.T) {
	fs := newFakeStore()
	server := NewHTTPServer(newTestService(fs, Dependencies{}), "*", nil)

	body := `{"company_id":"co1","updates":[{"investor_id":"i1","company_id":"c1","match_type":"exact"},{"investor_id":"i2","company_id":"c1","match_type":"bogus"}]}`
	rr := serve(t, server, http.MethodPost, "/api/reconcile/apply", "u1", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var outcome reconcile.ApplyOutcome
	if err := json.Unmarshal(rr.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if outcome.Updated != 1 || outcome.Skipped != 1 || len(outcome.Errors) != 1 || outcome.Errors[0].InvestorID != "i2" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	// The linked investor now previews as already_set.
	rr = serve(t, server, http.MethodGet, "/api/reconcile/preview?company_id=co1", "u1", "")
	if !strings.Contains(rr.Body.String(), `"already_set":1`) {
		t.Fatalf("expected already_set count of 1, got %s", rr.Body.String())
	}
}

func TestApplyEndpointErrors(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore(), Dependencies{}), "*", nil)

	cases := []struct {
		name   string
		userID string
		body   string
		status int
		code   string
	}{
		{name: "malformed body", userID: "u1", body: `{"company_id":`, status: http.StatusBadRequest, code: "INVALID_BODY"},
		{name: "empty updates", userID: "u1", body: `{"company_id":"co1","updates":[]}`, status: http.StatusBadRequest, code: "VALIDATION_ERROR"},
		{name: "viewer", userID: "u2", body: `{"company_id":"co1","updates":[{"investor_id":"i1","company_id":"c1","match_type":"exact"}]}`, status: http.StatusForbidden, code: "FORBIDDEN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := serve(t, server, http.MethodPost, "/api/reconcile/apply", tc.userID, tc.body)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
			if code := decodeErrorCode(t, rr); code != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, code)
			}
		})
	}
}

func TestApplyEndpointMethodNotAllowed(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore(), Dependencies{}), "*", nil)

	rr := serve(t, server, http.MethodGet, "/api/reconcile/apply", "u1", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestCompanySearchEndpoint(t *testing.T) {
	fs := newFakeStore()
	var gotLimit int
	fs.searchCompaniesFn = func(_ context.Context, _ string, limit int) ([]reconcile.Company, error) {
		gotLimit = limit
		return []reconcile.Company{{ID: "c2", Name: "Foo Bar Srl"}}, nil
	}
	server := NewHTTPServer(newTestService(fs, Dependencies{}), "*", nil)

	rr := serve(t, server, http.MethodGet, "/api/reconcile/companies/search?q=foo&limit=5", "anyone", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotLimit != 5 {
		t.Fatalf("expected limit 5, got %d", gotLimit)
	}
	if !strings.Contains(rr.Body.String(), `"source":"postgres"`) {
		t.Fatalf("expected postgres source, got %s", rr.Body.String())
	}

	rr = serve(t, server, http.MethodGet, "/api/reconcile/companies/search?q=foo&limit=-1", "anyone", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative limit, got %d", rr.Code)
	}
}

func TestEventsEndpointForbidden(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore(), Dependencies{}), "*", nil)

	rr := serve(t, server, http.MethodGet, "/api/reconcile/events?company_id=co1", "stranger", "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestReportEndpointCSV(t *testing.T) {
	archiver := &recordingArchiver{}
	server := NewHTTPServer(newTestService(newFakeStore(), Dependencies{Archiver: archiver}), "*", nil)

	rr := serve(t, server, http.MethodGet, "/api/reconcile/report?company_id=co1&format=csv&archive=true", "u1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/csv") {
		t.Fatalf("expected csv content type, got %q", got)
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), ".csv") {
		t.Fatalf("expected attachment filename, got %q", rr.Header().Get("Content-Disposition"))
	}
	key := rr.Header().Get("X-Report-Object-Key")
	if !strings.HasPrefix(key, "reports/co1/") || len(archiver.keys) != 1 {
		t.Fatalf("expected archived object key, got %q", key)
	}
}

func TestReportEndpointErrors(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore(), Dependencies{}), "*", nil)

	cases := []struct {
		name   string
		query  string
		status int
		code   string
	}{
		{name: "pdf without chrome", query: "company_id=co1&format=pdf", status: http.StatusServiceUnavailable, code: "EXPORT_UNAVAILABLE"},
		{name: "archive without storage", query: "company_id=co1&format=csv&archive=true", status: http.StatusServiceUnavailable, code: "ARCHIVE_UNAVAILABLE"},
		{name: "unknown format", query: "company_id=co1&format=docx", status: http.StatusBadRequest, code: "VALIDATION_ERROR"},
		{name: "bad archive flag", query: "company_id=co1&archive=maybe", status: http.StatusBadRequest, code: "VALIDATION_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := serve(t, server, http.MethodGet, "/api/reconcile/report?"+tc.query, "u1", "")
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
			if code := decodeErrorCode(t, rr); code != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, code)
			}
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore(), Dependencies{}), "*", nil)

	rr := serve(t, server, http.MethodGet, "/api/documents", "u1", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
