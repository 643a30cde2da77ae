package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty config gets defaults", func(t *testing.T) {
		var cfg ServiceConfig
		cfg.ApplyDefaults()
		if cfg.Environment != "development" || !cfg.Debug {
			t.Errorf("expected development with debug, got %q debug=%v", cfg.Environment, cfg.Debug)
		}
		if cfg.Name != "voixagent" {
			t.Errorf("expected default name, got %q", cfg.Name)
		}
		if cfg.AgentFile != DefaultAgentFile {
			t.Errorf("expected default agent file, got %q", cfg.AgentFile)
		}
		if cfg.Logging.ServiceName != "voixagent" {
			t.Errorf("expected logging service name to follow name, got %q", cfg.Logging.ServiceName)
		}
		if cfg.Logging.Level != "debug" {
			t.Errorf("expected debug logging in development, got %q", cfg.Logging.Level)
		}
	})

	t.Run("explicit level wins over debug", func(t *testing.T) {
		cfg := ServiceConfig{Debug: true}
		cfg.Logging.Level = "warn"
		cfg.ApplyDefaults()
		if cfg.Logging.Level != "warn" {
			t.Errorf("expected warn, got %q", cfg.Logging.Level)
		}
	})

	t.Run("production keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("expected info logging, got %q", cfg.Logging.Level)
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr string
	}{
		{"valid", ServiceConfig{Name: "svc", Environment: "staging"}, ""},
		{"missing name", ServiceConfig{Environment: "production"}, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "qa"}, "config.environment must be one of"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")

	yamlContent := `
name: voixagent-test
environment: staging
version: "1.0.0"
agent_file: /tmp/agent.yaml
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var cfg ServiceConfig
	if err := LoadConfig("voixagent-test", &cfg, WithConfigFile(configPath), WithEnvFile(filepath.Join(dir, "none.env"))); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Name != "voixagent-test" || cfg.Environment != "staging" {
		t.Errorf("unexpected service fields %+v", cfg)
	}
	if cfg.AgentFile != "/tmp/agent.yaml" {
		t.Errorf("expected agent file, got %q", cfg.AgentFile)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging section %+v", cfg.Logging)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg ServiceConfig
	err := LoadConfig("nonexistent-service", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool   { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(configPath, []byte("name: from-file\nserver:\n  port: 8080\n  idle: 1s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_IDLE", "2m")
	t.Setenv("LOGGING_LEVEL", "warn")

	var cfg struct {
		ServiceConfig `mapstructure:",squash"`
		Server        struct {
			Port int           `mapstructure:"port"`
			Idle time.Duration `mapstructure:"idle"`
		} `mapstructure:"server"`
	}
	if err := LoadConfig("voixagent-test", &cfg, WithConfigFile(configPath), WithFileSystem(&mockFS{files: map[string]bool{configPath: true}})); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "from-file" {
		t.Errorf("name = %q, want from-file", cfg.Name)
	}
	if cfg.Server.Port != 9090 || cfg.Server.Idle != 2*time.Minute {
		t.Errorf("env did not override file: %+v", cfg.Server)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("logging.level = %q, want warn", cfg.Logging.Level)
	}
}

func TestConfigFileSearch(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		wantConf string
		wantEnv  string
	}{
		{"service directory first", []string{"cmd/voixagent/config.yml", "config.yml", ".env"}, "cmd/voixagent/config.yml", ".env"},
		{"service env file wins", []string{"config.yml", ".env", ".env.voixagent"}, "config.yml", ".env.voixagent"},
		{"nothing found", nil, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &mockFS{files: map[string]bool{}}
			for _, f := range tt.files {
				fs.files[f] = true
			}
			if got := firstExisting(fs, configCandidates("voixagent")); got != tt.wantConf {
				t.Errorf("config = %q, want %q", got, tt.wantConf)
			}
			if got := firstExisting(fs, envCandidates("voixagent")); got != tt.wantEnv {
				t.Errorf("env = %q, want %q", got, tt.wantEnv)
			}
		})
	}
}

func TestEnvKeys(t *testing.T) {
	type inner struct {
		Brokers []string `mapstructure:"brokers"`
		Skip    string   `mapstructure:"-"`
	}
	type outer struct {
		ServiceConfig `mapstructure:",squash"`
		Kafka         inner `mapstructure:"kafka"`
		hidden        int
	}
	got := map[string]bool{}
	for _, k := range envKeys(reflect.TypeOf(&outer{}), "") {
		got[k] = true
	}
	for _, want := range []string{"name", "agent_file", "logging.level", "kafka.brokers"} {
		if !got[want] {
			t.Errorf("missing key %q in %v", want, got)
		}
	}
	for _, unwanted := range []string{"kafka.skip", "hidden", "serviceconfig.name"} {
		if got[unwanted] {
			t.Errorf("unexpected key %q", unwanted)
		}
	}
	if envName("logging.level") != "LOGGING_LEVEL" {
		t.Errorf("envName = %q", envName("logging.level"))
	}
}
