package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/emr")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("expected default env development, got %s", cfg.Env)
	}
	if cfg.DBMaxConns != 20 {
		t.Errorf("expected default max conns 20, got %d", cfg.DBMaxConns)
	}
	if cfg.RequestTimeout != 30 {
		t.Errorf("expected default timeout 30s, got %d", cfg.RequestTimeout)
	}
	if cfg.MigrationsDir != "migrations" {
		t.Errorf("expected default migrations dir, got %s", cfg.MigrationsDir)
	}
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/emr")
	t.Setenv("PORT", "9090")
	t.Setenv("RATE_LIMIT_RPS", "50")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.RateLimitRPS != 50 {
		t.Errorf("expected rps 50, got %f", cfg.RateLimitRPS)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"dev needs nothing", Config{Env: "development"}, false},
		{"production without auth", Config{Env: "production"}, true},
		{"production with issuer", Config{Env: "production", AuthIssuer: "https://auth.example.com"}, false},
		{"production with jwks", Config{Env: "production", AuthJWKSURL: "https://auth.example.com/jwks"}, false},
		{"staging with signing key", Config{Env: "staging", AuthSigningKey: "secret"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
