package app

import (
	"errors"
	"testing"
	"time"

	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
)

func baseEnv() map[string]string {
	return map[string]string{
		"AI_GATEWAY_API_KEY": "key",
		"JWT_SECRET":         "secret",
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfigFrom(baseEnv())
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("address: want=:8080 got=%s", cfg.Address())
	}
	if cfg.GenerationTimeout != 90*time.Second || cfg.StreamTimeout != 5*time.Minute {
		t.Fatalf("timeouts: generation=%v stream=%v", cfg.GenerationTimeout, cfg.StreamTimeout)
	}
	if cfg.DBOptions().Driver != "postgres" || cfg.TracingConfig().Exporter != "none" {
		t.Fatalf("driver=%q exporter=%q", cfg.DBOptions().Driver, cfg.TracingConfig().Exporter)
	}
	if len(cfg.CORSOrigins) != 0 {
		t.Fatalf("cors origins: want=none got=%v", cfg.CORSOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	environ := baseEnv()
	environ["PORT"] = "9090"
	environ["DB_DRIVER"] = "sqlite"
	environ["CORS_ORIGINS"] = "https://a.example,https://b.example"
	environ["OTEL_EXPORTER"] = "otlp"
	environ["OTEL_EXPORTER_OTLP_HEADERS"] = "x-api-key=abc,x-team=study"
	environ["STREAM_TIMEOUT"] = "30s"

	cfg, err := LoadConfigFrom(environ)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if cfg.Address() != ":9090" || cfg.DBOptions().Driver != "sqlite" || cfg.StreamTimeout != 30*time.Second {
		t.Fatalf("cfg: addr=%s driver=%s stream=%v", cfg.Address(), cfg.DBDriver, cfg.StreamTimeout)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors origins: %v", cfg.CORSOrigins)
	}
	if h := cfg.TracingConfig().Headers; h["x-api-key"] != "abc" || h["x-team"] != "study" {
		t.Fatalf("otel headers: %v", h)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	missingKey := baseEnv()
	delete(missingKey, "AI_GATEWAY_API_KEY")
	if _, err := LoadConfigFrom(missingKey); !errors.Is(err, apperr.ErrMissingCredential) {
		t.Fatalf("missing key: want=%v got=%v", apperr.ErrMissingCredential, err)
	}

	missingSecret := baseEnv()
	delete(missingSecret, "JWT_SECRET")
	if _, err := LoadConfigFrom(missingSecret); err == nil {
		t.Fatalf("missing JWT_SECRET: want error")
	}

	for name, kv := range map[string][2]string{
		"driver":   {"DB_DRIVER", "mysql"},
		"exporter": {"OTEL_EXPORTER", "jaeger"},
		"ratio":    {"OTEL_SAMPLE_RATIO", "2"},
	} {
		environ := baseEnv()
		environ[kv[0]] = kv[1]
		if _, err := LoadConfigFrom(environ); !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Fatalf("%s: want=%v got=%v", name, apperr.ErrInvalidArgument, err)
		}
	}
}
