package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Convert.SampleLines != 2 {
		t.Errorf("SampleLines = %d, want 2", cfg.Convert.SampleLines)
	}
	if cfg.Database.Enabled() {
		t.Error("database should be disabled without DB_HOST")
	}
	if cfg.SMTP.Enabled() {
		t.Error("smtp should be disabled without SMTP_HOST")
	}
	if cfg.Worker.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Worker.Workers)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SAMPLE_LINES", "5")
	t.Setenv("CONVERT_WORKERS", "8")
	t.Setenv("SMTP_HOST", "mail.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("PROMETHEUS_ENABLED", "false")
	t.Setenv("DB_HOST", "db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Convert.SampleLines != 5 {
		t.Errorf("SampleLines = %d, want 5", cfg.Convert.SampleLines)
	}
	if cfg.Worker.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Worker.Workers)
	}
	if !cfg.SMTP.Enabled() || cfg.SMTP.Port != 2525 {
		t.Errorf("SMTP = %+v, want enabled on port 2525", cfg.SMTP)
	}
	if cfg.Prometheus.Enabled {
		t.Error("Prometheus should be disabled")
	}
	if got := cfg.Database.DSN(); got != "host=db port=5432 user=postgres password=postgres dbname=sheetconv sslmode=disable" {
		t.Errorf("DSN() = %q", got)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero sample lines", "SAMPLE_LINES", "0"},
		{"zero workers", "CONVERT_WORKERS", "0"},
		{"unknown tls policy", "SMTP_TLS_POLICY", "sometimes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s expected error", tt.key, tt.value)
			}
		})
	}
}

func TestGetEnvAsInt_FallsBackOnGarbage(t *testing.T) {
	t.Setenv("SHEETCONV_TEST_INT", "not-a-number")
	if got := getEnvAsInt("SHEETCONV_TEST_INT", 7); got != 7 {
		t.Errorf("getEnvAsInt() = %d, want 7", got)
	}
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	c := ConvertConfig{
		UploadPath: filepath.Join(root, "in"),
		OutputPath: filepath.Join(root, "out", "nested"),
	}
	if err := c.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs() error: %v", err)
	}
	if c.MaxFileSize() != 0 {
		t.Errorf("MaxFileSize() = %d, want 0", c.MaxFileSize())
	}
}

// chdir changes the working directory for the duration of the test
// (stand-in for testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("Chdir back: %v", err)
		}
	})
}
