package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

type testPipeline struct {
	DegreeOfParallelism int `mapstructure:"degree_of_parallelism"`
	BufferSize          int `mapstructure:"buffer_size"`
}

type testConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Pipeline      testPipeline `yaml:"pipeline" mapstructure:"pipeline"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.ServiceName != "svc" {
			t.Errorf("expected logging service name 'svc', got %q", cfg.Logging.ServiceName)
		}
		if cfg.Logging.Level == "" {
			t.Error("expected logging level default")
		}
	})

	t.Run("production environment keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
	})

	t.Run("explicit logging service name is kept", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc"}
		cfg.Logging.ServiceName = "other"
		cfg.ApplyDefaults()
		if cfg.Logging.ServiceName != "other" {
			t.Errorf("expected 'other', got %q", cfg.Logging.ServiceName)
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr bool
		errMsg  string
	}{
		{"valid development", ServiceConfig{Name: "svc", Environment: "development"}, false, ""},
		{"valid staging", ServiceConfig{Name: "svc", Environment: "staging"}, false, ""},
		{"valid production", ServiceConfig{Name: "svc", Environment: "production"}, false, ""},
		{"missing name", ServiceConfig{Environment: "production"}, true, "name: is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "invalid"}, true, "environment: must be one of"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			cfg.ApplyDefaults()
			err := cfg.Validate()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), tc.errMsg) {
					t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "config.yml", `
name: test-service
environment: staging
version: "1.0.0"
logging:
  level: debug
pipeline:
  degree_of_parallelism: 6
  buffer_size: 12
`)

	var cfg testConfig
	if err := LoadConfig("cfgtest-yaml", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Name != "test-service" {
		t.Errorf("expected name 'test-service', got %q", cfg.Name)
	}
	if cfg.Environment != "staging" {
		t.Errorf("expected environment 'staging', got %q", cfg.Environment)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected logging level 'debug', got %q", cfg.Logging.Level)
	}
	if cfg.Pipeline.DegreeOfParallelism != 6 || cfg.Pipeline.BufferSize != 12 {
		t.Errorf("unexpected pipeline block: %+v", cfg.Pipeline)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg testConfig
	// With no config file found, LoadConfig should still succeed (just empty config)
	err := LoadConfig("cfgtest-missing", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
	if cfg.Name != "" {
		t.Errorf("expected empty name, got %q", cfg.Name)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "config.yml", `
name: test-service
pipeline:
  degree_of_parallelism: 2
`)
	t.Setenv("CFGTEST_ENV_PIPELINE_DEGREE_OF_PARALLELISM", "5")
	t.Setenv("CFGTEST_ENV_LOGGING_LEVEL", "warn")

	var cfg testConfig
	if err := LoadConfig("cfgtest-env", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Pipeline.DegreeOfParallelism != 5 {
		t.Errorf("expected env to override degree to 5, got %d", cfg.Pipeline.DegreeOfParallelism)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected env logging level 'warn', got %q", cfg.Logging.Level)
	}
	if cfg.Name != "test-service" {
		t.Errorf("expected file value to survive, got %q", cfg.Name)
	}
}

func TestLoadConfigEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "CFGTEST_DOTENV_NAME=from-dotenv\n")
	t.Cleanup(func() { os.Unsetenv("CFGTEST_DOTENV_NAME") })

	var cfg testConfig
	if err := LoadConfig("cfgtest-dotenv", &cfg, WithEnvFile(envPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "from-dotenv" {
		t.Errorf("expected name from .env, got %q", cfg.Name)
	}
}

func TestLoadConfigFlagPrecedence(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "config.yml", `
pipeline:
  degree_of_parallelism: 3
  buffer_size: 7
`)
	t.Setenv("CFGTEST_FLAG_PIPELINE_DEGREE_OF_PARALLELISM", "5")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("parallel", 1, "")
	flags.Int("buffer", 99, "")
	if err := flags.Parse([]string{"--parallel=8"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	var cfg testConfig
	err := LoadConfig("cfgtest-flag", &cfg,
		WithConfigFile(configPath),
		WithFlag("pipeline.degree_of_parallelism", flags.Lookup("parallel")),
		WithFlag("pipeline.buffer_size", flags.Lookup("buffer")),
		WithFlag("ignored", nil),
	)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Pipeline.DegreeOfParallelism != 8 {
		t.Errorf("expected changed flag to win with 8, got %d", cfg.Pipeline.DegreeOfParallelism)
	}
	if cfg.Pipeline.BufferSize != 7 {
		t.Errorf("expected unchanged flag to yield to file value 7, got %d", cfg.Pipeline.BufferSize)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "config.yml", "pipeline: [unterminated\n")

	var cfg testConfig
	err := LoadConfig("cfgtest-bad", &cfg, WithConfigFile(configPath))
	if err == nil {
		t.Fatal("expected error for malformed config file")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/my-svc/config.yml": true,
		"./.env":                  true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("my-svc", LoaderConfig{})
	if files.ConfigFile != "./cmd/my-svc/config.yml" {
		t.Errorf("expected config file at ./cmd/my-svc/config.yml, got %q", files.ConfigFile)
	}
	if files.EnvFile != "./.env" {
		t.Errorf("expected env file at ./.env, got %q", files.EnvFile)
	}
}

func TestResolverExplicitPathsWin(t *testing.T) {
	fs := &mockFS{files: map[string]bool{"./config.yml": true}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("svc", LoaderConfig{ConfigFile: "/etc/svc.yml", EnvFile: "/etc/svc.env"})
	if files.ConfigFile != "/etc/svc.yml" || files.EnvFile != "/etc/svc.env" {
		t.Errorf("explicit paths not kept: %+v", files)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool  { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	WithFileSystem(&mockFS{})(&lc)
	WithConfigFile("/path/to/config.yml")(&lc)
	WithEnvFile("/path/to/.env")(&lc)
	WithEnvPrefix("APP")(&lc)

	if lc.FileSystem == nil {
		t.Error("expected FileSystem to be set")
	}
	if lc.ConfigFile != "/path/to/config.yml" {
		t.Errorf("expected config file path, got %q", lc.ConfigFile)
	}
	if lc.EnvFile != "/path/to/.env" {
		t.Errorf("expected env file path, got %q", lc.EnvFile)
	}
	if lc.EnvPrefix != "APP" {
		t.Errorf("expected env prefix, got %q", lc.EnvPrefix)
	}
}

func TestEnvPrefix(t *testing.T) {
	if got := envPrefix("long-parallel"); got != "LONG_PARALLEL" {
		t.Errorf("expected LONG_PARALLEL, got %q", got)
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	got := generateEnvKeyVariants("PIPELINE_BUFFER_SIZE")
	want := map[string]bool{
		"pipeline_buffer_size": true,
		"pipeline.buffer.size": true,
		"pipeline.buffer_size": true,
		"pipeline_buffer.size": true,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d variants, got %v", len(want), got)
	}
	for _, v := range got {
		if !want[v] {
			t.Errorf("unexpected variant %q", v)
		}
	}

	if single := generateEnvKeyVariants("NAME"); len(single) != 1 || single[0] != "name" {
		t.Errorf("expected [name], got %v", single)
	}
}
