package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	dbpkg "github.com/yungbote/budgetvault-backend/internal/data/db"
	"github.com/yungbote/budgetvault-backend/internal/platform/envutil"
	"github.com/yungbote/budgetvault-backend/internal/platform/logger"
)

type DBConfig struct {
	Driver       string `yaml:"driver"`
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Name         string `yaml:"name"`
	SSLMode      string `yaml:"sslmode"`
	SQLitePath   string `yaml:"sqlite_path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type OtelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Headers     string  `yaml:"headers"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type SnapshotConfig struct {
	TotalField string `yaml:"total_field"`
}

type Config struct {
	ServiceName     string        `yaml:"service_name"`
	Environment     string        `yaml:"environment"`
	Version         string        `yaml:"version"`
	LogMode         string        `yaml:"log_mode"`
	HTTPAddr        string        `yaml:"http_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"cors_allowed_origins"`
	JWTSecretKey    string        `yaml:"jwt_secret_key"`
	AuthRequired    bool          `yaml:"auth_required"`
	MetricsEnabled  bool          `yaml:"metrics_enabled"`

	DB       DBConfig       `yaml:"db"`
	Redis    RedisConfig    `yaml:"redis"`
	Otel     OtelConfig     `yaml:"otel"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

func defaultConfig() Config {
	return Config{
		ServiceName:     "budgetvault",
		Environment:     "development",
		LogMode:         "development",
		HTTPAddr:        ":8080",
		ShutdownTimeout: 15 * time.Second,
		MetricsEnabled:  true,
		DB: DBConfig{
			Driver: dbpkg.DriverPostgres,
			Host:   "localhost",
			Port:   "5432",
			User:   "postgres",
			Name:   "budgetvault",
		},
		Redis: RedisConfig{Channel: "snapshots"},
		Otel:  OtelConfig{SampleRatio: 0.1},
		Snapshot: SnapshotConfig{
			TotalField: "total",
		},
	}
}

// LoadConfig layers defaults, the optional CONFIG_FILE yaml, then env vars.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := defaultConfig()
	if path := envutil.String("CONFIG_FILE", ""); path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return Config{}, err
		}
		if log != nil {
			log.Info("Loaded config file", "path", path)
		}
	}
	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.ServiceName = envutil.String("SERVICE_NAME", cfg.ServiceName)
	cfg.Environment = envutil.String("APP_ENV", cfg.Environment)
	cfg.Version = envutil.String("APP_VERSION", cfg.Version)
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	cfg.HTTPAddr = envutil.String("HTTP_ADDR", cfg.HTTPAddr)
	cfg.ShutdownTimeout = envutil.Seconds("SHUTDOWN_TIMEOUT_SECONDS", cfg.ShutdownTimeout)
	cfg.AllowedOrigins = envutil.List("CORS_ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.JWTSecretKey = envutil.String("JWT_SECRET_KEY", cfg.JWTSecretKey)
	cfg.AuthRequired = envutil.Bool("AUTH_REQUIRED", cfg.AuthRequired)
	cfg.MetricsEnabled = envutil.Bool("METRICS_ENABLED", cfg.MetricsEnabled)

	cfg.DB.Driver = envutil.String("DB_DRIVER", cfg.DB.Driver)
	cfg.DB.Host = envutil.String("POSTGRES_HOST", cfg.DB.Host)
	cfg.DB.Port = envutil.String("POSTGRES_PORT", cfg.DB.Port)
	cfg.DB.User = envutil.String("POSTGRES_USER", cfg.DB.User)
	cfg.DB.Password = envutil.String("POSTGRES_PASSWORD", cfg.DB.Password)
	cfg.DB.Name = envutil.String("POSTGRES_NAME", cfg.DB.Name)
	cfg.DB.SSLMode = envutil.String("POSTGRES_SSLMODE", cfg.DB.SSLMode)
	cfg.DB.SQLitePath = envutil.String("SQLITE_PATH", cfg.DB.SQLitePath)
	cfg.DB.MaxOpenConns = envutil.Int("DB_MAX_OPEN_CONNS", cfg.DB.MaxOpenConns)
	cfg.DB.MaxIdleConns = envutil.Int("DB_MAX_IDLE_CONNS", cfg.DB.MaxIdleConns)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envutil.Int("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.Channel = envutil.String("REDIS_CHANNEL", cfg.Redis.Channel)

	cfg.Otel.Enabled = envutil.Bool("OTEL_ENABLED", cfg.Otel.Enabled)
	cfg.Otel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Otel.Endpoint)
	cfg.Otel.Headers = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", cfg.Otel.Headers)
	cfg.Otel.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.Otel.Insecure)
	cfg.Otel.SampleRatio = envutil.Float("OTEL_SAMPLER_RATIO", cfg.Otel.SampleRatio)

	cfg.Snapshot.TotalField = envutil.String("SNAPSHOT_TOTAL_FIELD", cfg.Snapshot.TotalField)
}

func (c Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.DB.Driver)) {
	case dbpkg.DriverPostgres, dbpkg.DriverSQLite:
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", dbpkg.DriverPostgres, dbpkg.DriverSQLite, c.DB.Driver)
	}
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}
	if c.AuthRequired && strings.TrimSpace(c.JWTSecretKey) == "" {
		return fmt.Errorf("AUTH_REQUIRED needs JWT_SECRET_KEY")
	}
	if strings.TrimSpace(c.Snapshot.TotalField) == "" {
		return fmt.Errorf("snapshot total_field must be non-empty")
	}
	return nil
}

func (c Config) dbConfig() dbpkg.Config {
	return dbpkg.Config{
		Driver:           c.DB.Driver,
		PostgresHost:     c.DB.Host,
		PostgresPort:     c.DB.Port,
		PostgresUser:     c.DB.User,
		PostgresPassword: c.DB.Password,
		PostgresName:     c.DB.Name,
		PostgresSSLMode:  c.DB.SSLMode,
		SQLitePath:       c.DB.SQLitePath,
		MaxOpenConns:     c.DB.MaxOpenConns,
		MaxIdleConns:     c.DB.MaxIdleConns,
	}
}
