package config

import (
	"slices"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "LOCAL")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("DOCUMENT_RETENTION_DAYS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DB.Host != "localhost" || cfg.Port == "" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.JWTSecret == "" {
		t.Error("local config should fall back to a development secret")
	}
	if cfg.DocumentRetentionDays != 30 {
		t.Errorf("DocumentRetentionDays = %d, want 30", cfg.DocumentRetentionDays)
	}
	if !cfg.IsLocal() {
		t.Error("IsLocal() = false")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "PROD")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ADMIN_API_KEY", "admin")
	t.Setenv("DOCUMENT_RETENTION_DAYS", "90")
	t.Setenv("NOTIFY_TIMEOUT", "3s")
	t.Setenv("STAY_ENABLE_TRACING", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DocumentRetentionDays != 90 || cfg.NotifyTimeout != 3*time.Second || !cfg.EnableTracing {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if want := []string{"https://a.example", "https://b.example"}; !slices.Equal(cfg.AllowedOrigins, want) {
		t.Errorf("AllowedOrigins = %v, want %v", cfg.AllowedOrigins, want)
	}
}

func TestLoadRequiresSecretsOutsideLocal(t *testing.T) {
	t.Setenv("ENV", "PROD")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ADMIN_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() succeeded without secrets")
	}
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("ENV", "LOCAL")
	t.Setenv("DOCUMENT_RETENTION_DAYS", "thirty")
	t.Setenv("NOTIFY_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DocumentRetentionDays != 30 || cfg.NotifyTimeout != 10*time.Second {
		t.Errorf("fallbacks not applied: %+v", cfg)
	}
}
