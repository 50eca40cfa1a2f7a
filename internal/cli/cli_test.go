package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/odos/internal/core/config"
	"github.com/vietddude/odos/internal/core/domain"
)

func TestBuildQuoteRequest(t *testing.T) {
	req, err := buildQuoteRequest("base",
		[]string{"0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2:1000"},
		[]string{"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48:0.25", "0x6B175474E89094C44Da98b954EedeAC495271d0F:0.75"},
		"0x47E2D28169738039755586743E2dfCF3bd643f86", 1)
	if err != nil {
		t.Fatalf("buildQuoteRequest: %v", err)
	}
	if req.ChainID != uint64(domain.ChainIDBase) {
		t.Errorf("expected base chain id, got %d", req.ChainID)
	}
	if req.InputTokens[0].Amount != "1000" || req.OutputTokens[1].Proportion != 0.75 {
		t.Errorf("unexpected request %+v", req)
	}
	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request, got %v", err)
	}
}

func TestBuildQuoteRequest_Errors(t *testing.T) {
	tests := []struct {
		name    string
		chain   string
		inputs  []string
		outputs []string
	}{
		{name: "unknown chain", chain: "narnia", inputs: []string{"0xa:1"}, outputs: []string{"0xb"}},
		{name: "missing amount", chain: "1", inputs: []string{"0xa"}, outputs: []string{"0xb"}},
		{name: "bad proportion", chain: "1", inputs: []string{"0xa:1"}, outputs: []string{"0xb:half"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := buildQuoteRequest(tt.chain, tt.inputs, tt.outputs, "0x0", 0.5); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBuildQuoteRequest_EvenSplit(t *testing.T) {
	req, err := buildQuoteRequest("1", []string{"0xa:1"}, []string{"0xb", "0xc"}, "0x0", 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if req.OutputTokens[0].Proportion != 0.5 || req.OutputTokens[1].Proportion != 0.5 {
		t.Errorf("expected even split, got %+v", req.OutputTokens)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("ODOS_API_KEY", "3fa85f64-5717-4562-b3fc-2c963f66afa6")
	t.Setenv("DATABASE_URL", "postgres://localhost/odos")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	cfg := config.Default()
	cfg.Redis.URL = "redis://configured:6379"
	if err := applyEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.API.APIKey.IsZero() || cfg.Database.URL != "postgres://localhost/odos" {
		t.Errorf("expected env fallbacks, got %+v", cfg)
	}
	if cfg.Redis.URL != "redis://configured:6379" {
		t.Errorf("config file value must win, got %s", cfg.Redis.URL)
	}

	t.Setenv("ODOS_API_KEY", "not-a-uuid")
	if err := applyEnv(config.Default()); err == nil {
		t.Error("expected invalid key to fail")
	}
}

func TestPrintFailures(t *testing.T) {
	var buf bytes.Buffer
	printFailures(&buf, []*domain.FailureRecord{{
		Endpoint:   "quote",
		Category:   "api",
		Status:     400,
		ErrorCode:  4010,
		Attempts:   1,
		TraceID:    "3fa85f64-5717-4562-b3fc-2c963f66afa6",
		Message:    "Invalid token",
		OccurredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}})

	out := buf.String()
	for _, want := range []string{"TRACE", "quote", "4010", "3fa85f64-5717-4562-b3fc-2c963f66afa6", "2026-01-02T03:04:05Z"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
