package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Settlement   SettlementConfig
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
	if err := cfg.Settlement.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env            string   `envconfig:"TRADELEDGER_APP_ENV" required:"true"`
	Port           string   `envconfig:"TRADELEDGER_APP_PORT" required:"true"`
	LogLevel       string   `envconfig:"TRADELEDGER_LOG_LEVEL" default:"info"`
	LogWarnStack   bool     `envconfig:"TRADELEDGER_LOG_WARN_STACK" default:"false"`
	AllowedOrigins []string `envconfig:"TRADELEDGER_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TRADELEDGER_DB_DSN"`
	Driver string `envconfig:"TRADELEDGER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TRADELEDGER_DB_HOST"`
	LegacyPort     int    `envconfig:"TRADELEDGER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TRADELEDGER_DB_USER"`
	LegacyPassword string `envconfig:"TRADELEDGER_DB_PASSWORD"`
	LegacyName     string `envconfig:"TRADELEDGER_DB_NAME"`
	LegacySSLMode  string `envconfig:"TRADELEDGER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRADELEDGER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TRADELEDGER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TRADELEDGER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRADELEDGER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RedisConfig is optional. When no URL or address is configured the API runs
// without the idempotency replay cache.
type RedisConfig struct {
	URL          string        `envconfig:"TRADELEDGER_REDIS_URL"`
	Address      string        `envconfig:"TRADELEDGER_REDIS_ADDR"`
	Password     string        `envconfig:"TRADELEDGER_REDIS_PASSWORD"`
	DB           int           `envconfig:"TRADELEDGER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TRADELEDGER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TRADELEDGER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TRADELEDGER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TRADELEDGER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TRADELEDGER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis backend was configured at all.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

// SettlementConfig carries the tunables of the settlement engine and the
// intake throttle.
type SettlementConfig struct {
	Floor       decimal.Decimal `envconfig:"TRADELEDGER_SETTLEMENT_FLOOR" default:"-1000"`
	DelayMin    time.Duration   `envconfig:"TRADELEDGER_SETTLEMENT_DELAY_MIN" default:"1s"`
	DelayMax    time.Duration   `envconfig:"TRADELEDGER_SETTLEMENT_DELAY_MAX" default:"10s"`
	HoldTimeout time.Duration   `envconfig:"TRADELEDGER_SETTLEMENT_HOLD_TIMEOUT" default:"5s"`
}

func (s SettlementConfig) validate() error {
	if s.DelayMin <= 0 {
		return fmt.Errorf("settlement delay min must be positive, got %v", s.DelayMin)
	}
	if s.DelayMax < s.DelayMin {
		return fmt.Errorf("settlement delay max %v must not be below min %v", s.DelayMax, s.DelayMin)
	}
	if s.HoldTimeout <= 0 {
		return fmt.Errorf("settlement hold timeout must be positive, got %v", s.HoldTimeout)
	}
	return nil
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TRADELEDGER_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
