package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/refdata/internal/config"
	"github.com/ehr/refdata/internal/domain/lookup"
	"github.com/ehr/refdata/internal/platform/cache"
	"github.com/ehr/refdata/internal/platform/clock"
	"github.com/ehr/refdata/internal/platform/ratelimit"
)

// offlineService builds a service whose live registries always fail, so every
// lookup resolves from the knowledge base.
func offlineService(t *testing.T) *lookup.Service {
	t.Helper()
	kb, err := lookup.LoadKnowledgeBase()
	if err != nil {
		t.Fatalf("load knowledge base: %v", err)
	}
	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return lookup.NewService(
		cache.New(time.Hour, clk),
		ratelimit.New(time.Minute, lookup.Limits(100, 50, 50, 30), clk),
		kb,
		lookup.NewUnwired[[]lookup.RawDiagnosisCode](lookup.RegistryICD10),
		lookup.NewUnwired[*lookup.RawNPIResponse](lookup.RegistryNPI),
	)
}

func testConfig() *config.Config {
	return &config.Config{
		Env:            "test",
		CORSOrigins:    []string{"http://localhost:3000"},
		RateLimitRPS:   100,
		RateLimitBurst: 200,
		RequestTimeout: 5 * time.Second,
	}
}

func TestRunLookup_Diagnosis(t *testing.T) {
	var buf bytes.Buffer
	if err := runLookup(context.Background(), offlineService(t), "diagnosis", "diabetes", &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body lookup.Result[[]lookup.DiagnosisCode]
	if err := json.Unmarshal(buf.Bytes(), &body); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if !body.Success || len(body.Data) != 3 {
		t.Errorf("expected 3 fallback diagnosis codes, got %s", buf.String())
	}
	if body.Error != lookup.MsgFallback {
		t.Errorf("expected fallback notice, got %q", body.Error)
	}
}

func TestRunLookup_ProviderCaseInsensitiveKind(t *testing.T) {
	var buf bytes.Buffer
	if err := runLookup(context.Background(), offlineService(t), "PROVIDER", "1234567893", &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), lookup.MsgUnverified) {
		t.Errorf("expected unverified provider message, got %s", buf.String())
	}
}

func TestRunLookup_UnknownKind(t *testing.T) {
	var buf bytes.Buffer
	err := runLookup(context.Background(), offlineService(t), "drug", "metformin", &buf)
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestNewServer_Health(t *testing.T) {
	e := newServer(testConfig(), zerolog.Nop(), offlineService(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
}

func TestNewServer_RoutesLookups(t *testing.T) {
	e := newServer(testConfig(), zerolog.Nop(), offlineService(t))

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/v1/lookup/terminology?q=od", http.StatusOK},
		{http.MethodGet, "/api/v1/lookup/procedure-codes?q=retinal", http.StatusOK},
		{http.MethodGet, "/api/v1/lookup/diagnosis-codes", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/lookup/providers/123", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/lookup/providers/1234567893", http.StatusBadGateway},
		{http.MethodGet, "/api/v1/lookup/cache/stats", http.StatusOK},
		{http.MethodDelete, "/api/v1/lookup/cache", http.StatusNoContent},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRunServer_InvalidConfigReturnsError(t *testing.T) {
	t.Setenv("CACHE_TTL", "0s")

	err := runServer()
	if err == nil {
		t.Fatal("expected error for invalid config")
	}
	if !strings.Contains(err.Error(), "CACHE_TTL") {
		t.Errorf("expected error to name CACHE_TTL, got %v", err)
	}
}

func TestVersionCmd(t *testing.T) {
	var buf bytes.Buffer
	cmd := versionCmd()
	cmd.SetOut(&buf)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(buf.String()) != version {
		t.Errorf("expected %q, got %q", version, buf.String())
	}
}
