package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Hub          HubConfig
	Wallet       WalletConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SPLITABILL_APP_ENV" required:"true"`
	Port         string `envconfig:"SPLITABILL_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SPLITABILL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SPLITABILL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SPLITABILL_DB_DSN"`
	Driver string `envconfig:"SPLITABILL_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SPLITABILL_DB_HOST"`
	Port     int    `envconfig:"SPLITABILL_DB_PORT" default:"5432"`
	User     string `envconfig:"SPLITABILL_DB_USER"`
	Password string `envconfig:"SPLITABILL_DB_PASSWORD"`
	Name     string `envconfig:"SPLITABILL_DB_NAME"`
	SSLMode  string `envconfig:"SPLITABILL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SPLITABILL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SPLITABILL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SPLITABILL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SPLITABILL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either SPLITABILL_DB_DSN or host/user/name settings are required")
	}
	d.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"SPLITABILL_REDIS_URL"`
	Address      string        `envconfig:"SPLITABILL_REDIS_ADDR"`
	Password     string        `envconfig:"SPLITABILL_REDIS_PASSWORD"`
	DB           int           `envconfig:"SPLITABILL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SPLITABILL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SPLITABILL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SPLITABILL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SPLITABILL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SPLITABILL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured at all. The hub
// falls back to a process-local fabric when it is not.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type HubConfig struct {
	// WriteTimeout bounds a single websocket send so one slow client cannot
	// stall a session-wide broadcast.
	WriteTimeout time.Duration `envconfig:"SPLITABILL_HUB_WRITE_TIMEOUT" default:"5s"`
	// FabricChannelPrefix namespaces the redis pub/sub channels used when the
	// hub runs with a distributed fabric.
	FabricChannelPrefix string `envconfig:"SPLITABILL_HUB_FABRIC_PREFIX" default:"splitabill:session"`
	UseRedisFabric      bool   `envconfig:"SPLITABILL_HUB_USE_REDIS_FABRIC" default:"false"`
}

type WalletConfig struct {
	DefaultCurrency string `envconfig:"SPLITABILL_WALLET_DEFAULT_CURRENCY" default:"CLP"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SPLITABILL_AUTO_MIGRATE" default:"false"`
}
