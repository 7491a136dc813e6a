package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Session      SessionConfig
	Checkout     CheckoutConfig
	Gateway      GatewayConfig
	Password     PasswordConfig
	CORS         CORSConfig
	RateLimit    RateLimitConfig
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
	Env          string `envconfig:"MARKETBAY_APP_ENV" required:"true"`
	Port         string `envconfig:"MARKETBAY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MARKETBAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MARKETBAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MARKETBAY_DB_DSN"`
	Driver string `envconfig:"MARKETBAY_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"MARKETBAY_DB_HOST"`
	Port     int    `envconfig:"MARKETBAY_DB_PORT" default:"5432"`
	User     string `envconfig:"MARKETBAY_DB_USER"`
	Password string `envconfig:"MARKETBAY_DB_PASSWORD"`
	Name     string `envconfig:"MARKETBAY_DB_NAME"`
	SSLMode  string `envconfig:"MARKETBAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MARKETBAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MARKETBAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MARKETBAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MARKETBAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MARKETBAY_REDIS_URL"`
	Address      string        `envconfig:"MARKETBAY_REDIS_ADDR"`
	Password     string        `envconfig:"MARKETBAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"MARKETBAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MARKETBAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MARKETBAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MARKETBAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MARKETBAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MARKETBAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SessionConfig governs the sliding idle window applied on every
// authenticated request, and the TTL on the buyer lock taken by saved-cart
// writes so they cannot interleave with an in-flight checkout.
type SessionConfig struct {
	IdleWindow  time.Duration `envconfig:"MARKETBAY_SESSION_IDLE_WINDOW" default:"5m"`
	CartLockTTL time.Duration `envconfig:"MARKETBAY_SESSION_CART_LOCK_TTL" default:"10s"`
}

// CheckoutConfig governs the per-buyer checkout serialization lock.
type CheckoutConfig struct {
	LockTTL time.Duration `envconfig:"MARKETBAY_CHECKOUT_LOCK_TTL" default:"2m"`
}

// GatewayConfig points at the external payment authorization service.
type GatewayConfig struct {
	URL     string        `envconfig:"MARKETBAY_GATEWAY_URL" required:"true"`
	Timeout time.Duration `envconfig:"MARKETBAY_GATEWAY_TIMEOUT" default:"30s"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MARKETBAY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MARKETBAY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MARKETBAY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MARKETBAY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MARKETBAY_ARGON_KEY_LEN" default:"32"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"MARKETBAY_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// RateLimitConfig throttles credential-guessing traffic on the login routes.
type RateLimitConfig struct {
	LoginLimit  int64         `envconfig:"MARKETBAY_LOGIN_RATE_LIMIT" default:"10"`
	LoginWindow time.Duration `envconfig:"MARKETBAY_LOGIN_RATE_WINDOW" default:"1m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MARKETBAY_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		"MARKETBAY_DB_HOST": db.Host,
		"MARKETBAY_DB_USER": db.User,
		"MARKETBAY_DB_NAME": db.Name,
	}
	for _, env := range []string{"MARKETBAY_DB_HOST", "MARKETBAY_DB_USER", "MARKETBAY_DB_NAME"} {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either MARKETBAY_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
