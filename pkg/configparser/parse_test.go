package configparser

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Name    string        `env:"TEST_CP_NAME" default:"agent"`
	Port    int           `env:"TEST_CP_PORT" default:"8080"`
	Ceiling float64       `env:"TEST_CP_CEILING" default:"-2000"`
	Enabled bool          `env:"TEST_CP_ENABLED" default:"false"`
	Timeout time.Duration `env:"TEST_CP_TIMEOUT" default:"5s"`
	Brokers []string      `env:"TEST_CP_BROKERS"`

	Nested struct {
		URL string `env:"TEST_CP_NESTED_URL" default:"http://localhost"`
	}
}

func TestParse_Defaults(t *testing.T) {
	var cfg testConfig
	if err := Parse(&cfg); err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.Name != "agent" || cfg.Port != 8080 || cfg.Ceiling != -2000 || cfg.Enabled {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Timeout != 5*time.Second {
		t.Fatalf("timeout = %s", cfg.Timeout)
	}
	if cfg.Nested.URL != "http://localhost" {
		t.Fatalf("nested default not applied: %q", cfg.Nested.URL)
	}
	if cfg.Brokers != nil {
		t.Fatalf("untagged default must leave slice nil")
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("TEST_CP_PORT", "9090")
	t.Setenv("TEST_CP_ENABLED", "true")
	t.Setenv("TEST_CP_BROKERS", "a:9092, b:9092")

	var cfg testConfig
	if err := Parse(&cfg); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Port != 9090 || !cfg.Enabled {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if len(cfg.Brokers) != 2 || cfg.Brokers[1] != "b:9092" {
		t.Fatalf("brokers = %v", cfg.Brokers)
	}
}

func TestParse_InvalidValue(t *testing.T) {
	t.Setenv("TEST_CP_PORT", "not-a-number")

	var cfg testConfig
	if err := Parse(&cfg); err == nil {
		t.Fatalf("expected error for invalid int")
	}
	if err := Parse(cfg); err != ErrNotStructPointer {
		t.Fatalf("expected ErrNotStructPointer, got %v", err)
	}
}

func TestFlatten(t *testing.T) {
	t.Setenv("TEST_CP_HOST", "db.internal")

	data := []byte(`
database:
  host: ${TEST_CP_HOST:-localhost}
  port: 5432
kafka:
  brokers:
    - k1:9092
    - k2:9092
empty:
`)
	vars, err := Flatten(data)
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}

	want := map[string]string{
		"DATABASE_HOST": "db.internal",
		"DATABASE_PORT": "5432",
		"KAFKA_BROKERS": "k1:9092,k2:9092",
	}
	for k, v := range want {
		if vars[k] != v {
			t.Fatalf("%s = %q, want %q", k, vars[k], v)
		}
	}
	if _, ok := vars["EMPTY"]; ok {
		t.Fatalf("empty key must be skipped")
	}
}

func TestLoadAndParseYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "test_cp:\n  name: from-file\n  port: 7000\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("TEST_CP_PORT", "7100")
	t.Cleanup(func() { os.Unsetenv("TEST_CP_NAME") })

	var cfg testConfig
	if err := LoadAndParseYaml(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != "from-file" {
		t.Fatalf("name = %q", cfg.Name)
	}
	if cfg.Port != 7100 {
		t.Fatalf("existing env must win, port = %d", cfg.Port)
	}

	if err := LoadYamlFile(""); err != ErrNoFilePath {
		t.Fatalf("expected ErrNoFilePath, got %v", err)
	}
}
