package domain

import (
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"gopkg.in/yaml.v2"
)

const testKey = "3fa85f64-5717-4562-b3fc-2c963f66afa6"

func TestAPIKey_Redaction(t *testing.T) {
	key, err := ParseAPIKey(testKey)
	if err != nil {
		t.Fatalf("ParseAPIKey: %v", err)
	}

	printed := []string{
		key.String(),
		fmt.Sprintf("%v", key),
		fmt.Sprintf("%+v", struct{ Key APIKey }{key}),
		fmt.Sprintf("%#v", key),
		key.LogValue().String(),
	}
	for _, s := range printed {
		if strings.Contains(s, testKey) {
			t.Errorf("key leaked: %s", s)
		}
	}
	if key.Reveal() != testKey {
		t.Errorf("Reveal = %s, want %s", key.Reveal(), testKey)
	}

	var sb strings.Builder
	slog.New(slog.NewTextHandler(&sb, nil)).Info("call", "key", key)
	if strings.Contains(sb.String(), testKey) {
		t.Errorf("key leaked through slog: %s", sb.String())
	}
}

func TestAPIKey_YAML(t *testing.T) {
	var cfg struct {
		Key APIKey `yaml:"key"`
	}
	if err := yaml.Unmarshal([]byte("key: "+testKey), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Key.Reveal() != testKey {
		t.Errorf("unexpected key %s", cfg.Key.Reveal())
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(out), testKey) {
		t.Errorf("key leaked in yaml: %s", out)
	}

	if err := yaml.Unmarshal([]byte("key: nope"), &cfg); err == nil {
		t.Error("expected invalid key to fail")
	}
	if err := yaml.Unmarshal([]byte("key: ''"), &cfg); err != nil || !cfg.Key.IsZero() {
		t.Errorf("expected empty key to clear, got %v", err)
	}
}

func TestParseChain(t *testing.T) {
	tests := []struct {
		in     string
		want   ChainID
		wantOK bool
	}{
		{"ethereum", ChainIDEthereum, true},
		{"8453", ChainIDBase, true},
		{"999999", 999999, true},
		{"narnia", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseChain(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseChain(%q) = %d, %v", tt.in, got, ok)
			}
		})
	}

	if ChainID(999999).IsSupported() || !ChainIDArbitrum.IsSupported() {
		t.Error("unexpected IsSupported result")
	}
	if ChainIDArbitrum.String() != "arbitrum" || ChainID(999999).String() != "999999" {
		t.Error("unexpected String result")
	}
}

func TestParseTraceID(t *testing.T) {
	id, err := ParseTraceID(testKey)
	if err != nil {
		t.Fatal(err)
	}
	if id.IsZero() || id.String() != testKey {
		t.Errorf("unexpected trace id %s", id)
	}
	if _, err := ParseTraceID("abc"); err == nil {
		t.Error("expected invalid trace id to fail")
	}
}
