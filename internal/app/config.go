package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"

	"github.com/yungbote/studydesk-backend/internal/data/db"
	"github.com/yungbote/studydesk-backend/internal/observability"
	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
)

type Config struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	LogMode         string        `env:"LOG_MODE" envDefault:"development"`
	Environment     string        `env:"APP_ENV" envDefault:"development"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:","`
	MetricsEnabled  bool          `env:"METRICS_ENABLED" envDefault:"true"`

	DBDriver         string `env:"DB_DRIVER" envDefault:"postgres"`
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword string `env:"POSTGRES_PASSWORD"`
	PostgresName     string `env:"POSTGRES_NAME" envDefault:"studydesk"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	SQLitePath       string `env:"SQLITE_PATH" envDefault:"studydesk.db"`

	// GatewayAPIKey is checked after parsing so a missing key surfaces as
	// ErrMissingCredential.
	GatewayAPIKey     string        `env:"AI_GATEWAY_API_KEY"`
	GatewayURL        string        `env:"AI_GATEWAY_URL"`
	Model             string        `env:"AI_MODEL"`
	GatewayMaxRetries int           `env:"AI_GATEWAY_MAX_RETRIES" envDefault:"2"`
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT" envDefault:"90s"`
	StreamTimeout     time.Duration `env:"STREAM_TIMEOUT" envDefault:"5m"`
	PromptsFile       string        `env:"PROMPTS_FILE"`

	JWTSecret string `env:"JWT_SECRET,required"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	RedisTTL      time.Duration `env:"REDIS_TTL" envDefault:"720h"`

	SupabaseURL    string `env:"SUPABASE_URL"`
	SupabaseKey    string `env:"SUPABASE_KEY"`
	SupabaseBucket string `env:"SUPABASE_BUCKET" envDefault:"uploads"`

	OtelServiceName string            `env:"OTEL_SERVICE_NAME" envDefault:"studydesk"`
	OtelExporter    string            `env:"OTEL_EXPORTER" envDefault:"none"`
	OtelEndpoint    string            `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelHeaders     map[string]string `env:"OTEL_EXPORTER_OTLP_HEADERS" envSeparator:"," envKeyValSeparator:"="`
	OtelInsecure    bool              `env:"OTEL_EXPORTER_OTLP_INSECURE"`
	OtelSampleRatio float64           `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// LoadConfig reads a .env file when one exists and then the process
// environment.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env config: %w", err)
	}
	return cfg, cfg.validate()
}

// LoadConfigFrom parses environ only; the process environment is ignored.
func LoadConfigFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if strings.TrimSpace(c.GatewayAPIKey) == "" {
		return fmt.Errorf("%w: set AI_GATEWAY_API_KEY", apperr.ErrMissingCredential)
	}
	switch strings.ToLower(c.DBDriver) {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("%w: DB_DRIVER must be postgres or sqlite, got %q", apperr.ErrInvalidArgument, c.DBDriver)
	}
	switch strings.ToLower(c.OtelExporter) {
	case observability.ExporterNone, observability.ExporterStdout, observability.ExporterOTLP:
	default:
		return fmt.Errorf("%w: OTEL_EXPORTER must be none, stdout or otlp, got %q", apperr.ErrInvalidArgument, c.OtelExporter)
	}
	if c.OtelSampleRatio < 0 || c.OtelSampleRatio > 1 {
		return fmt.Errorf("%w: OTEL_SAMPLE_RATIO must be within [0,1]", apperr.ErrInvalidArgument)
	}
	return nil
}

func (c Config) DBOptions() db.Options {
	return db.Options{
		Driver:     c.DBDriver,
		Host:       c.PostgresHost,
		Port:       c.PostgresPort,
		User:       c.PostgresUser,
		Password:   c.PostgresPassword,
		Name:       c.PostgresName,
		SSLMode:    c.PostgresSSLMode,
		SQLitePath: c.SQLitePath,
	}
}

func (c Config) TracingConfig() observability.TracingConfig {
	return observability.TracingConfig{
		ServiceName: c.OtelServiceName,
		Environment: c.Environment,
		Exporter:    strings.ToLower(c.OtelExporter),
		Endpoint:    c.OtelEndpoint,
		Headers:     c.OtelHeaders,
		Insecure:    c.OtelInsecure,
		SampleRatio: c.OtelSampleRatio,
	}
}

func (c Config) Address() string {
	port := strings.TrimPrefix(strings.TrimSpace(c.Port), ":")
	if port == "" {
		port = "8080"
	}
	return ":" + port
}
