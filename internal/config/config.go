package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "github.com/spec-kit/order-desk/pkg/util"
)

// Counter backends understood by ordernumber.
const (
	CounterBackendFile     = "file"
	CounterBackendRedis    = "redis"
	CounterBackendPostgres = "postgres"
	CounterBackendMemory   = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Discord  DiscordConfig
	Workflow WorkflowConfig
	Counter  CounterConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Ops      OpsConfig
}

// AppConfig controls the ops HTTP surface.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// DiscordConfig holds gateway credentials.
type DiscordConfig struct {
	Token   string
	GuildID string
}

// WorkflowConfig is the order lifecycle configuration shared by every component.
type WorkflowConfig struct {
	AdminIDs          []string
	IntakeChannelID   string
	FeedbackChannelID string
	ContactEmail      string
	OrderPrefix       string
	ArchiveCategory   string
	GraceSeconds      int
}

// CounterConfig selects the order number store.
type CounterConfig struct {
	Backend  string
	FilePath string
	RedisKey string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// OpsConfig guards the read-only order API.
type OpsConfig struct {
	JWTSecret       string
	TokenTTLMinutes int
}

// LoadOps reads only the ops API settings, for tooling that does not run the bot.
func LoadOps() OpsConfig {
	_ = godotenv.Load()
	return OpsConfig{
		JWTSecret:       os.Getenv("OPS_JWT_SECRET"),
		TokenTTLMinutes: getEnvAsInt("OPS_TOKEN_TTL_MINUTES", 60),
	}
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "order-desk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Discord: DiscordConfig{
			Token:   strings.TrimSpace(os.Getenv("DISCORD_BOT_TOKEN")),
			GuildID: os.Getenv("DISCORD_GUILD_ID"),
		},
		Workflow: WorkflowConfig{
			AdminIDs:          getEnvAsList("ADMIN_USER_IDS"),
			IntakeChannelID:   strings.TrimSpace(os.Getenv("START_CHANNEL_ID")),
			FeedbackChannelID: strings.TrimSpace(os.Getenv("FEEDBACK_CHANNEL_ID")),
			ContactEmail:      os.Getenv("ADMIN_EMAIL"),
			OrderPrefix:       getEnv("ORDER_PREFIX", "st-"),
			ArchiveCategory:   getEnv("ARCHIVE_CATEGORY", "Archived Orders"),
			GraceSeconds:      getEnvAsInt("NOT_DOABLE_GRACE_SECONDS", 5),
		},
		Counter: CounterConfig{
			Backend:  strings.ToLower(getEnv("COUNTER_BACKEND", CounterBackendFile)),
			FilePath: getEnv("COUNTER_FILE", "order_counter.json"),
			RedisKey: getEnv("COUNTER_REDIS_KEY", "orderdesk:last_order_number"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Ops: OpsConfig{
			JWTSecret:       os.Getenv("OPS_JWT_SECRET"),
			TokenTTLMinutes: getEnvAsInt("OPS_TOKEN_TTL_MINUTES", 60),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports misconfiguration the bot cannot run with.
func (c *Config) Validate() error {
	var missing []string
	if c.Discord.Token == "" {
		missing = append(missing, "DISCORD_BOT_TOKEN")
	}
	if len(c.Workflow.AdminIDs) == 0 {
		missing = append(missing, "ADMIN_USER_IDS")
	}
	if c.Workflow.IntakeChannelID == "" {
		missing = append(missing, "START_CHANNEL_ID")
	}
	if len(missing) > 0 {
		return apperrors.NewConfigError("missing required settings", map[string]any{"keys": missing})
	}

	switch c.Counter.Backend {
	case CounterBackendFile, CounterBackendMemory:
	case CounterBackendRedis:
	case CounterBackendPostgres:
		if c.Postgres.DSN == "" {
			return apperrors.NewConfigError("COUNTER_BACKEND=postgres requires POSTGRES_DSN", nil)
		}
	default:
		return apperrors.NewConfigError("unknown COUNTER_BACKEND", map[string]any{"backend": c.Counter.Backend})
	}

	if strings.TrimSpace(c.Workflow.OrderPrefix) == "" {
		return apperrors.NewConfigError("ORDER_PREFIX must not be empty", nil)
	}
	if c.Workflow.GraceSeconds < 0 {
		return apperrors.NewConfigError("NOT_DOABLE_GRACE_SECONDS must not be negative", nil)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// GraceDelay is the wait between a rejection notice and the channel deletion.
func (w WorkflowConfig) GraceDelay() time.Duration {
	return time.Duration(w.GraceSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
