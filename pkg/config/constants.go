package config

// EnvPrefix is passed to envconfig; every field declares its full variable name.
const EnvPrefix = "GHEEHIVE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	StorageBackendRedis  = "redis"
	StorageBackendSQL    = "sql"
	StorageBackendMemory = "memory"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv                = "GHEEHIVE_APP_ENV"
	EnvPort                  = "GHEEHIVE_APP_PORT"
	EnvBackendURL            = "GHEEHIVE_BACKEND_URL"
	EnvStorageBackend        = "GHEEHIVE_STORAGE_BACKEND"
	EnvDBDSN                 = "GHEEHIVE_DB_DSN"
	EnvDBDriver              = "GHEEHIVE_DB_DRIVER"
	EnvDBHost                = "GHEEHIVE_DB_HOST"
	EnvDBUser                = "GHEEHIVE_DB_USER"
	EnvDBName                = "GHEEHIVE_DB_NAME"
	EnvRedisURL              = "GHEEHIVE_REDIS_URL"
	EnvRedisAddr             = "GHEEHIVE_REDIS_ADDR"
	EnvVisitorSecret         = "GHEEHIVE_VISITOR_SECRET"
	EnvTaxRatePercent        = "GHEEHIVE_TAX_RATE_PERCENT"
	EnvShippingFee           = "GHEEHIVE_SHIPPING_FEE"
	EnvFreeShippingThreshold = "GHEEHIVE_FREE_SHIPPING_THRESHOLD"
	EnvRazorpayKeyID         = "GHEEHIVE_RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret     = "GHEEHIVE_RAZORPAY_KEY_SECRET"
	EnvRevalidateSecret      = "GHEEHIVE_REVALIDATE_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
