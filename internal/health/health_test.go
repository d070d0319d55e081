package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthz_AlwaysReturns200(t *testing.T) {
	h := New()

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Healthz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
}

func TestHealthz_ContentType(t *testing.T) {
	h := New()
	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Healthz(rec, req)

	ct := rec.Header().Get("Content-Type")
	if ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestReadyz_AllComponentsHealthy(t *testing.T) {
	h := New(
		Checker{Name: "memory", Check: func(_ context.Context) error { return nil }},
		Checker{Name: "nlp", Check: func(_ context.Context) error { return nil }},
	)

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
	if body.Checks["memory"] != "ok" {
		t.Errorf("memory check = %q, want %q", body.Checks["memory"], "ok")
	}
	if body.Checks["nlp"] != "ok" {
		t.Errorf("nlp check = %q, want %q", body.Checks["nlp"], "ok")
	}
}

func TestReadyz_ComponentFails(t *testing.T) {
	h := New(
		Checker{Name: "memory", Check: func(_ context.Context) error {
			return errors.New("connection refused")
		}},
		Checker{Name: "speech", Check: func(_ context.Context) error { return nil }},
	)

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Status != "fail" {
		t.Errorf("status = %q, want %q", body.Status, "fail")
	}
	if body.Checks["memory"] != "fail: connection refused" {
		t.Errorf("memory check = %q, want %q", body.Checks["memory"], "fail: connection refused")
	}
	if body.Checks["speech"] != "ok" {
		t.Errorf("speech check = %q, want %q", body.Checks["speech"], "ok")
	}
}

func TestReadyz_NoCheckers(t *testing.T) {
	h := New()

	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
}

type staticProber struct {
	err error
}

func (p staticProber) HealthCheck(_ context.Context) error { return p.err }

func TestForComponent_WrapsProber(t *testing.T) {
	c := ForComponent("automation", staticProber{err: errors.New("shell unavailable")})

	if c.Name != "automation" {
		t.Errorf("Name = %q, want automation", c.Name)
	}
	if err := c.Check(context.Background()); err == nil {
		t.Error("Check = nil, want the prober's error")
	}
}

func TestSnapshot_ReportsPerComponent(t *testing.T) {
	h := New(
		ForComponent("memory", staticProber{}),
		ForComponent("nlp", staticProber{err: errors.New("model offline")}),
		ForComponent("speech", staticProber{}),
	)

	got := h.Snapshot(context.Background())

	want := map[string]bool{"memory": true, "nlp": false, "speech": true}
	for name, healthy := range want {
		if got[name] != healthy {
			t.Errorf("Snapshot[%q] = %v, want %v", name, got[name], healthy)
		}
	}
	if len(got) != len(want) {
		t.Errorf("Snapshot has %d entries, want %d", len(got), len(want))
	}
}

func TestRegister_RoutesWork(t *testing.T) {
	h := New(
		Checker{Name: "memory", Check: func(_ context.Context) error { return nil }},
	)

	mux := http.NewServeMux()
	h.Register(mux)

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/healthz", http.StatusOK},
		{"/readyz", http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.path, nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}

func TestReadyz_RespectsContextCancellation(t *testing.T) {
	h := New(
		Checker{Name: "slow", Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	req := httptest.NewRequest("GET", "/readyz", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
