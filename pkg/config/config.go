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
	App        AppConfig
	Backend    BackendConfig
	Razorpay   RazorpayConfig
	Storage    StorageConfig
	DB         DBConfig
	Redis      RedisConfig
	Visitor    VisitorConfig
	Checkout   CheckoutConfig
	Catalog    CatalogConfig
	Revalidate RevalidateConfig
	CORS       CORSConfig
	RateLimit  RateLimitConfig
	PubSub     PubSubConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	if cfg.Storage.Backend == StorageBackendSQL {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if cfg.Storage.Backend == StorageBackendRedis && cfg.Redis.URL == "" && cfg.Redis.Address == "" {
		return nil, fmt.Errorf("%s or %s is required for the redis storage backend", EnvRedisURL, EnvRedisAddr)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GHEEHIVE_APP_ENV" required:"true"`
	Port         string `envconfig:"GHEEHIVE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GHEEHIVE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GHEEHIVE_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"GHEEHIVE_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// BackendConfig points at the headless commerce backend.
type BackendConfig struct {
	BaseURL  string        `envconfig:"GHEEHIVE_BACKEND_URL" required:"true"`
	APIToken string        `envconfig:"GHEEHIVE_BACKEND_API_TOKEN"`
	Timeout  time.Duration `envconfig:"GHEEHIVE_BACKEND_TIMEOUT" default:"10s"`
}

type RazorpayConfig struct {
	KeyID      string `envconfig:"GHEEHIVE_RAZORPAY_KEY_ID"`
	KeySecret  string `envconfig:"GHEEHIVE_RAZORPAY_KEY_SECRET"`
	Currency   string `envconfig:"GHEEHIVE_RAZORPAY_CURRENCY" default:"INR"`
	BrandName  string `envconfig:"GHEEHIVE_RAZORPAY_BRAND_NAME" default:"GheeHive"`
	ThemeColor string `envconfig:"GHEEHIVE_RAZORPAY_THEME_COLOR" default:"#C8891D"`
}

// Enabled reports whether any gateway credentials were supplied.
func (r RazorpayConfig) Enabled() bool {
	return strings.TrimSpace(r.KeyID) != "" || strings.TrimSpace(r.KeySecret) != ""
}

type StorageConfig struct {
	Backend string        `envconfig:"GHEEHIVE_STORAGE_BACKEND" default:"redis"`
	TTL     time.Duration `envconfig:"GHEEHIVE_STORAGE_TTL" default:"720h"`
}

func (s StorageConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Backend)) {
	case StorageBackendRedis, StorageBackendSQL, StorageBackendMemory:
		return nil
	}
	return fmt.Errorf("%s must be one of %q, %q or %q", EnvStorageBackend, StorageBackendRedis, StorageBackendSQL, StorageBackendMemory)
}

type DBConfig struct {
	DSN    string `envconfig:"GHEEHIVE_DB_DSN"`
	Driver string `envconfig:"GHEEHIVE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GHEEHIVE_DB_HOST"`
	LegacyPort     int    `envconfig:"GHEEHIVE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GHEEHIVE_DB_USER"`
	LegacyPassword string `envconfig:"GHEEHIVE_DB_PASSWORD"`
	LegacyName     string `envconfig:"GHEEHIVE_DB_NAME"`
	LegacySSLMode  string `envconfig:"GHEEHIVE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GHEEHIVE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GHEEHIVE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GHEEHIVE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GHEEHIVE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite driver was selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"GHEEHIVE_REDIS_URL"`
	Address      string        `envconfig:"GHEEHIVE_REDIS_ADDR"`
	Password     string        `envconfig:"GHEEHIVE_REDIS_PASSWORD"`
	DB           int           `envconfig:"GHEEHIVE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GHEEHIVE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GHEEHIVE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GHEEHIVE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GHEEHIVE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GHEEHIVE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Configured reports whether a redis endpoint was supplied.
func (r RedisConfig) Configured() bool {
	return r.URL != "" || r.Address != ""
}

// VisitorConfig controls the signed visitor token that namespaces per-visitor state.
type VisitorConfig struct {
	Secret   string        `envconfig:"GHEEHIVE_VISITOR_SECRET" required:"true"`
	Issuer   string        `envconfig:"GHEEHIVE_VISITOR_ISSUER" default:"gheehive"`
	TokenTTL time.Duration `envconfig:"GHEEHIVE_VISITOR_TOKEN_TTL" default:"2160h"`
	IdleTTL  time.Duration `envconfig:"GHEEHIVE_VISITOR_IDLE_TTL" default:"30m"`
}

type CheckoutConfig struct {
	TaxRatePercent        string        `envconfig:"GHEEHIVE_TAX_RATE_PERCENT" default:"0"`
	ShippingFee           string        `envconfig:"GHEEHIVE_SHIPPING_FEE" default:"0"`
	FreeShippingThreshold string        `envconfig:"GHEEHIVE_FREE_SHIPPING_THRESHOLD" default:"0"`
	OTPCooldown           time.Duration `envconfig:"GHEEHIVE_OTP_COOLDOWN" default:"60s"`
	OTPLength             int           `envconfig:"GHEEHIVE_OTP_LENGTH" default:"6"`
}

// Pricing parses the decimal knobs used when quoting an order.
func (c CheckoutConfig) Pricing() (tax, shipping, freeShipping decimal.Decimal, err error) {
	if tax, err = decimal.NewFromString(orZero(c.TaxRatePercent)); err != nil {
		return tax, shipping, freeShipping, fmt.Errorf("%s: %w", EnvTaxRatePercent, err)
	}
	if shipping, err = decimal.NewFromString(orZero(c.ShippingFee)); err != nil {
		return tax, shipping, freeShipping, fmt.Errorf("%s: %w", EnvShippingFee, err)
	}
	if freeShipping, err = decimal.NewFromString(orZero(c.FreeShippingThreshold)); err != nil {
		return tax, shipping, freeShipping, fmt.Errorf("%s: %w", EnvFreeShippingThreshold, err)
	}
	return tax, shipping, freeShipping, nil
}

type CatalogConfig struct {
	CacheTTL time.Duration `envconfig:"GHEEHIVE_CATALOG_CACHE_TTL" default:"10m"`
}

type RevalidateConfig struct {
	Secret string `envconfig:"GHEEHIVE_REVALIDATE_SECRET"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"GHEEHIVE_CORS_ORIGINS" default:"http://localhost:3000"`
}

type RateLimitConfig struct {
	OTPWindow     time.Duration `envconfig:"GHEEHIVE_RATE_LIMIT_OTP_WINDOW" default:"10m"`
	OTPPhoneLimit int           `envconfig:"GHEEHIVE_RATE_LIMIT_OTP_PHONE_LIMIT" default:"5"`
	OTPIPLimit    int           `envconfig:"GHEEHIVE_RATE_LIMIT_OTP_IP_LIMIT" default:"30"`
	LoginWindow   time.Duration `envconfig:"GHEEHIVE_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit  int           `envconfig:"GHEEHIVE_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type PubSubConfig struct {
	ProjectID   string `envconfig:"GHEEHIVE_GCP_PROJECT_ID"`
	OrdersTopic string `envconfig:"GHEEHIVE_PUBSUB_ORDERS_TOPIC" default:"storefront-order-events"`
}

// Enabled reports whether order events should be published.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.ProjectID) != "" && strings.TrimSpace(p.OrdersTopic) != ""
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
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

func orZero(value string) string {
	if strings.TrimSpace(value) == "" {
		return "0"
	}
	return strings.TrimSpace(value)
}
