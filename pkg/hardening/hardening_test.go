package hardening

import (
	"strings"
	"testing"
)

func strictOptions() Options {
	return Options{
		Service:            "gateway",
		Environment:        "production",
		StrictProdSecurity: "true",
		DatabaseRequireTLS: "true",
		RedisAddr:          "redis.internal:6379",
		RedisRequireTLS:    "true",
		CORSAllowedOrigins: "https://app.ratereview.example",
		RequiredServiceSecrets: []EnvRequirement{
			{Name: "AUTH_TOKEN", Value: "secret"},
		},
	}
}

func TestValidateProduction(t *testing.T) {
	t.Run("pass", func(t *testing.T) {
		if err := ValidateProduction(strictOptions()); err != nil {
			t.Fatalf("expected hardened config to pass: %v", err)
		}
	})

	t.Run("non_prod_skip", func(t *testing.T) {
		o := strictOptions()
		o.Environment = "dev"
		o.DatabaseRequireTLS = ""
		o.CORSAllowedOrigins = "*"
		if err := ValidateProduction(o); err != nil {
			t.Fatalf("non-production must skip checks: %v", err)
		}
	})

	t.Run("strict_can_be_disabled", func(t *testing.T) {
		o := strictOptions()
		o.StrictProdSecurity = "false"
		o.DatabaseRequireTLS = ""
		if err := ValidateProduction(o); err != nil {
			t.Fatalf("disabled strict mode must skip checks: %v", err)
		}
	})

	t.Run("db_tls_required", func(t *testing.T) {
		o := strictOptions()
		o.DatabaseRequireTLS = "false"
		requireError(t, ValidateProduction(o), "DATABASE_REQUIRE_TLS")
	})

	t.Run("redis_tls_required", func(t *testing.T) {
		o := strictOptions()
		o.RedisRequireTLS = ""
		requireError(t, ValidateProduction(o), "REDIS_REQUIRE_TLS")
	})

	t.Run("redis_insecure_forbidden", func(t *testing.T) {
		o := strictOptions()
		o.RedisAllowInsecureTLS = "true"
		requireError(t, ValidateProduction(o), "REDIS_ALLOW_INSECURE_TLS")
	})

	t.Run("redis_checks_skipped_without_redis", func(t *testing.T) {
		o := strictOptions()
		o.RedisAddr = ""
		o.RedisRequireTLS = ""
		if err := ValidateProduction(o); err != nil {
			t.Fatalf("redis checks must not apply without REDIS_ADDR: %v", err)
		}
	})

	t.Run("cors_wildcard_forbidden", func(t *testing.T) {
		o := strictOptions()
		o.CORSAllowedOrigins = "https://app.ratereview.example, *"
		requireError(t, ValidateProduction(o), "wildcard")
	})

	t.Run("cors_https_required", func(t *testing.T) {
		o := strictOptions()
		o.CORSAllowedOrigins = "http://app.ratereview.example"
		requireError(t, ValidateProduction(o), "HTTPS")
	})

	t.Run("cors_localhost_forbidden", func(t *testing.T) {
		o := strictOptions()
		o.CORSAllowedOrigins = "https://localhost:3000"
		requireError(t, ValidateProduction(o), "localhost")
	})

	t.Run("cors_must_be_explicit", func(t *testing.T) {
		o := strictOptions()
		o.CORSAllowedOrigins = " , "
		requireError(t, ValidateProduction(o), "CORS_ALLOWED_ORIGINS")
	})

	t.Run("required_secret", func(t *testing.T) {
		o := strictOptions()
		o.RequiredServiceSecrets = []EnvRequirement{{Name: "AUTH_TOKEN", Value: "  "}}
		requireError(t, ValidateProduction(o), "AUTH_TOKEN")
	})
}

func requireError(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error mentioning %q, got nil", want)
	}
	if !strings.Contains(err.Error(), want) {
		t.Fatalf("expected error mentioning %q, got %q", want, err.Error())
	}
}

func TestIsTrue(t *testing.T) {
	if !isTrue("", true) || isTrue("", false) {
		t.Fatal("empty value must fall back to default")
	}
	if !isTrue("TRUE", false) {
		t.Fatal("case-insensitive true not recognized")
	}
	if isTrue("yes", false) {
		t.Fatal("only true enables a flag")
	}
}
