package advisory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewHTTPClientConfig(t *testing.T) {
	if _, err := NewHTTPClient(Config{}); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid for empty base url, got: %v", err)
	}

	client, err := NewHTTPClient(Config{BaseURL: " https://advisory.example.com/ "})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.cfg.BaseURL != "https://advisory.example.com" {
		t.Fatalf("base url should be trimmed, got: %s", client.cfg.BaseURL)
	}
}

func TestHTTPClientAnalyze(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/analyze" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var input AnalyzeInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			t.Fatalf("decode request failed: %v", err)
		}
		if input.Context != "damage" {
			t.Fatalf("unexpected context: %s", input.Context)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"riskLevel":          " Medium ",
			"severity":           "MODERATE",
			"hasClientSignature": true,
			"summary":            "tear on sofa armrest",
		})
	}))
	defer server.Close()

	client, err := NewHTTPClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	result, err := client.Analyze(context.Background(), AnalyzeInput{
		PhotoRefs:   []string{"missions/1/before/sofa.jpg"},
		Description: "sofa armrest torn",
		Context:     "damage",
	})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	// 响应字段大小写与空白被归一化
	if result.RiskLevel != RiskMedium {
		t.Fatalf("expected medium, got: %s", result.RiskLevel)
	}
	if result.Severity != SeverityModerate {
		t.Fatalf("expected moderate, got: %s", result.Severity)
	}
	if !result.HasClientSignature {
		t.Fatal("expected client signature flag")
	}
	if result.DetectedIssues == nil || result.Recommendations == nil {
		t.Fatal("issue slices should be normalized to empty, not nil")
	}
}

func TestHTTPClientAnalyzeUnknownValues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"riskLevel": "catastrophic",
			"severity":  "apocalyptic",
		})
	}))
	defer server.Close()

	client, err := NewHTTPClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	result, err := client.Analyze(context.Background(), AnalyzeInput{Description: "weird values"})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if result.RiskLevel != RiskUnknown || result.Severity != SeverityUnknown {
		t.Fatalf("out-of-range values should normalize to unknown: %+v", result)
	}
}

func TestHTTPClientAnalyzeEmptyInput(t *testing.T) {
	client, err := NewHTTPClient(Config{BaseURL: "https://advisory.example.com"})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if _, err := client.Analyze(context.Background(), AnalyzeInput{}); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid for empty input, got: %v", err)
	}
}

func TestHTTPClientAnalyzeHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewHTTPClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if _, err := client.Analyze(context.Background(), AnalyzeInput{Description: "x"}); !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got: %v", err)
	}
}

func TestDegradedResult(t *testing.T) {
	result := DegradedResult("advisory unreachable")
	if !result.Degraded {
		t.Fatal("expected degraded flag")
	}
	if result.RiskLevel != RiskUnknown || result.Severity != SeverityUnknown {
		t.Fatalf("degraded result should be unknown: %+v", result)
	}
	if result.Summary != "analysis unavailable: advisory unreachable" {
		t.Fatalf("unexpected summary: %s", result.Summary)
	}
}

func TestMaxSeverity(t *testing.T) {
	cases := []struct {
		a, b, want string
	}{
		{SeverityMinor, SeverityModerate, SeverityModerate},
		{SeveritySevere, SeverityNone, SeveritySevere},
		{SeverityMinor, SeverityUnknown, SeverityUnknown},
		{"bogus", SeverityMinor, SeverityUnknown},
	}
	for _, c := range cases {
		if got := MaxSeverity(c.a, c.b); got != c.want {
			t.Fatalf("MaxSeverity(%s, %s) want %s got %s", c.a, c.b, c.want, got)
		}
	}
}
