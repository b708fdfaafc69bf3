package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Presence.Status != DefaultStatus {
		t.Errorf("Presence.Status = %q, want %q", cfg.Presence.Status, DefaultStatus)
	}
	if cfg.Debug.Addr != DefaultDebugAddr {
		t.Errorf("Debug.Addr = %q, want %q", cfg.Debug.Addr, DefaultDebugAddr)
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, DefaultLogLevel)
	}
	if cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, DefaultLogFormat)
	}
	if cfg.Shards != 0 {
		t.Errorf("Shards = %d, want 0", cfg.Shards)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	// Loading a directory without a config file fails with the
	// not-found code.
	_, err := Load(tmpDir)
	if err == nil {
		t.Fatal("expected error for missing config")
	}
	if !strings.Contains(err.Error(), "E100") {
		t.Errorf("missing config error = %v, want E100", err)
	}

	configPath := filepath.Join(tmpDir, ConfigFileName)
	configJSON := `{
  "token": "file-token",
  "intents": 513,
  "shards": 2,
  "presence": {
    "status": "idle",
    "activity": "testing"
  },
  "debug": {
    "enabled": true
  },
  "log": {
    "level": "debug"
  }
}
`
	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Token != "file-token" {
		t.Errorf("Token = %q, want %q", cfg.Token, "file-token")
	}
	if cfg.Intents != 513 {
		t.Errorf("Intents = %d, want 513", cfg.Intents)
	}
	if cfg.Shards != 2 {
		t.Errorf("Shards = %d, want 2", cfg.Shards)
	}
	if cfg.Presence.Status != "idle" {
		t.Errorf("Presence.Status = %q, want %q", cfg.Presence.Status, "idle")
	}
	if !cfg.Debug.Enabled {
		t.Error("Debug.Enabled = false, want true")
	}

	// Unset fields are filled with defaults.
	if cfg.Debug.Addr != DefaultDebugAddr {
		t.Errorf("Debug.Addr = %q, want default %q", cfg.Debug.Addr, DefaultDebugAddr)
	}
	if cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log.Format = %q, want default %q", cfg.Log.Format, DefaultLogFormat)
	}

	if cfg.Path() != configPath {
		t.Errorf("Path() = %q, want %q", cfg.Path(), configPath)
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
}

func TestLoadFileInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(configPath)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "E101") {
		t.Errorf("invalid JSON error = %v, want E101", err)
	}
}

func TestResolveEnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configJSON := `{"token": "file-token", "shards": 1}`
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("GATEWIRE_TOKEN", "env-token")
	t.Setenv("GATEWIRE_SHARDS", "4")
	t.Setenv("GATEWIRE_LOG_LEVEL", "warn")

	cfg, err := Resolve(tmpDir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if cfg.Token != "env-token" {
		t.Errorf("Token = %q, want env override %q", cfg.Token, "env-token")
	}
	if cfg.Shards != 4 {
		t.Errorf("Shards = %d, want env override 4", cfg.Shards)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "warn")
	}
}

func TestResolveEnvOnly(t *testing.T) {
	tmpDir := t.TempDir()

	// No gatewire.json at all; the token arrives via environment.
	t.Setenv("GATEWIRE_TOKEN", "env-only-token")

	cfg, err := Resolve(tmpDir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Token != "env-only-token" {
		t.Errorf("Token = %q, want %q", cfg.Token, "env-only-token")
	}
	if cfg.Debug.Addr != DefaultDebugAddr {
		t.Errorf("Debug.Addr = %q, want default", cfg.Debug.Addr)
	}
}

func TestResolveMissingToken(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := Resolve(tmpDir)
	if err == nil {
		t.Fatal("expected error when no token is configured")
	}
	if !strings.Contains(err.Error(), "E103") {
		t.Errorf("missing token error = %v, want E103", err)
	}
}

func TestApplyEnvParseFailure(t *testing.T) {
	t.Setenv("GATEWIRE_SHARDS", "not-a-number")

	cfg := New()
	err := cfg.ApplyEnv()
	if err == nil {
		t.Fatal("expected error for unparseable env value")
	}
	if !strings.Contains(err.Error(), "E102") {
		t.Errorf("env parse error = %v, want E102", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := New()
		cfg.Token = "token"
		return cfg
	}

	tests := []struct {
		name     string
		mutate   func(*Config)
		wantCode string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:     "missing token",
			mutate:   func(c *Config) { c.Token = "" },
			wantCode: "E103",
		},
		{
			name:     "negative shards",
			mutate:   func(c *Config) { c.Shards = -1 },
			wantCode: "E104",
		},
		{
			name:     "bad log level",
			mutate:   func(c *Config) { c.Log.Level = "verbose" },
			wantCode: "E105",
		},
		{
			name:     "bad presence status",
			mutate:   func(c *Config) { c.Presence.Status = "busy" },
			wantCode: "E106",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected %s error", tt.wantCode)
			}
			if !strings.Contains(err.Error(), tt.wantCode) {
				t.Errorf("error = %v, want %s", err, tt.wantCode)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ConfigFileName)

	cfg := New()
	cfg.Token = "saved-token"
	cfg.Shards = 3
	cfg.Presence.Activity = "round trips"

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.Token != "saved-token" {
		t.Errorf("Token = %q, want %q", loaded.Token, "saved-token")
	}
	if loaded.Shards != 3 {
		t.Errorf("Shards = %d, want 3", loaded.Shards)
	}
	if loaded.Presence.Activity != "round trips" {
		t.Errorf("Presence.Activity = %q, want %q", loaded.Presence.Activity, "round trips")
	}

	// Save without a path fails.
	unsaved := New()
	if err := unsaved.Save(); err == nil {
		t.Error("Save without a path should fail")
	}
}

func TestFindProjectRoot(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	nested := filepath.Join(tmpDir, "a", "b", "c")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	root, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot: %v", err)
	}
	// Resolve symlinks before comparing: t.TempDir may sit behind one.
	wantRoot, _ := filepath.EvalSymlinks(tmpDir)
	gotRoot, _ := filepath.EvalSymlinks(root)
	if gotRoot != wantRoot {
		t.Errorf("root = %q, want %q", gotRoot, wantRoot)
	}

	// A tree with no config anywhere fails with the not-found code.
	empty := t.TempDir()
	if _, err := FindProjectRoot(empty); err == nil {
		t.Error("expected error for tree without gatewire.json")
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		cfg := &Config{Log: LogConfig{Level: tt.level}}
		if got := cfg.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := New()
	cfg.Log.Format = "json"
	cfg.NewLogger(&buf).Info("hello", "k", "v")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("json log output = %q", buf.String())
	}

	buf.Reset()
	cfg.Log.Format = "text"
	cfg.NewLogger(&buf).Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("text log output = %q", buf.String())
	}

	// Level filtering applies.
	buf.Reset()
	cfg.Log.Level = "warn"
	cfg.NewLogger(&buf).Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info record passed a warn-level logger: %q", buf.String())
	}
}
