package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer() *Server {
	return NewServer(nil, ":0")
}

func TestListJobs(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest("GET", "/jobs", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var jobs []jobInfo
	if err := json.NewDecoder(rec.Body).Decode(&jobs); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(jobs) == 0 {
		t.Fatal("expected at least one job")
	}
	found := false
	for _, j := range jobs {
		if j.Key == "households" {
			found = true
			if len(j.Produces) != 1 || j.Produces[0] != "household_lookup" {
				t.Errorf("households produces = %v", j.Produces)
			}
		}
	}
	if !found {
		t.Error("households job missing from listing")
	}
}

func TestRunUnknownJob(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest("POST", "/run/no-such-job", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var result runResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Status != "error" || result.Job != "no-such-job" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestRunJobRequiresPost(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest("GET", "/run/households", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestIndex(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}
