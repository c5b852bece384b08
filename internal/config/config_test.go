package config

import (
	"net/http"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL": "postgres://localhost/kadai",
		"REDIS_URL":    "redis://localhost:6379",
		"JWT_SECRET":   "test-secret",
		"APP_ENV":      "",
		"PORT":         "",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppEnv != "development" {
		t.Fatalf("expected development env, got %q", cfg.AppEnv)
	}
	if cfg.HTTPAddr() != ":8080" {
		t.Fatalf("expected :8080, got %q", cfg.HTTPAddr())
	}
	if cfg.AuthCookieName != "kadai_session" {
		t.Fatalf("unexpected cookie name %q", cfg.AuthCookieName)
	}
	if cfg.CookieSameSite != http.SameSiteLaxMode {
		t.Fatalf("expected lax samesite default")
	}
	if cfg.AccessTokenTTL != 12*time.Hour {
		t.Fatalf("unexpected access ttl %v", cfg.AccessTokenTTL)
	}
	if cfg.CatalogDefaultLimit != 20 || cfg.CatalogMaxLimit != 100 {
		t.Fatalf("unexpected catalog limits %d/%d", cfg.CatalogDefaultLimit, cfg.CatalogMaxLimit)
	}
}

func TestLoadRequiresDatabase(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"DATABASE_URL": "",
		"REDIS_URL":    "redis://localhost:6379",
		"JWT_SECRET":   "test-secret",
	})
	if err == nil {
		t.Fatal("expected error when DATABASE_URL missing")
	}
}

func TestCookieSameSiteParsing(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":    "postgres://localhost/kadai",
		"REDIS_URL":       "redis://localhost:6379",
		"JWT_SECRET":      "test-secret",
		"COOKIE_SAMESITE": "strict",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CookieSameSite != http.SameSiteStrictMode {
		t.Fatalf("expected strict samesite")
	}
}
