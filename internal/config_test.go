package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTimestampsConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Timestamps.CreatedKey != "created" || cfg.Timestamps.ModifiedKey != "modified" {
		t.Errorf("unexpected default keys: %+v", cfg.Timestamps)
	}
	if cfg.Timestamps.MergeStrategy != MergeStrategyText {
		t.Errorf("merge strategy = %q", cfg.Timestamps.MergeStrategy)
	}
}

func TestTimestampsConfig_EmptyStrategyDefaultsText(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Timestamps.MergeStrategy = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty strategy should default: %v", err)
	}
	if cfg.Timestamps.MergeStrategy != MergeStrategyText {
		t.Errorf("strategy = %q, want text", cfg.Timestamps.MergeStrategy)
	}
}

func TestTimestampsConfig_InvalidStrategy(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Timestamps.MergeStrategy = "regex"
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid strategy should fail validation")
	}
}

func TestTimestampsConfig_MissingKeys(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Timestamps.ModifiedKey = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing modified key should fail validation")
	}
}

func TestTimestampsConfig_Excluded(t *testing.T) {
	cfg := TimestampsConfig{ExcludedFolders: []string{"projects/drafts", "templates"}}

	cases := []struct {
		path string
		want bool
	}{
		{"projects/drafts/note.md", true},
		{"projects/drafts/deep/nested.md", true},
		{"projects/drafts", true},
		{"drafts/note.md", false},          // "drafts" alone is not configured
		{"projects/draftsman/note.md", false}, // segment boundary, not substring
		{"projects/note.md", false},
		{"templates/daily.md", true},
		{"other/templates.md", false},
	}
	for _, tc := range cases {
		if got := cfg.Excluded(tc.path); got != tc.want {
			t.Errorf("Excluded(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestTimestampsConfig_ExcludedEmptyList(t *testing.T) {
	cfg := TimestampsConfig{}
	if cfg.Excluded("anything/note.md") {
		t.Error("no exclusions configured, nothing should match")
	}
}

func TestTimestampsConfig_NewFileDelay(t *testing.T) {
	cfg := TimestampsConfig{NewFileDelayMs: 250}
	if cfg.NewFileDelay() != 250*time.Millisecond {
		t.Errorf("NewFileDelay = %v", cfg.NewFileDelay())
	}
}
