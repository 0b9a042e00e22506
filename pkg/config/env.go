package config

const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "JLS_APP_ENV"
	EnvPort      = "JLS_APP_PORT"
	EnvLogLevel  = "JLS_LOG_LEVEL"
	EnvLogFormat = "JLS_LOG_FORMAT"

	EnvDBDSN  = "JLS_DB_DSN"
	EnvDBHost = "JLS_DB_HOST"
	EnvDBUser = "JLS_DB_USER"
	EnvDBName = "JLS_DB_NAME"

	EnvRedisURL  = "JLS_REDIS_URL"
	EnvRedisAddr = "JLS_REDIS_ADDR"

	EnvJWTSecret               = "JLS_JWT_SECRET"
	EnvJWTIssuer               = "JLS_JWT_ISSUER"
	EnvJWTExpMins              = "JLS_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes  = "JLS_REFRESH_TOKEN_TTL_MINUTES"
	EnvResetTokenTTLMinutes    = "JLS_RESET_TOKEN_TTL_MINUTES"
	EnvUseSQLite               = "JLS_USE_SQLITE"
	EnvAutoMigrate             = "JLS_AUTO_MIGRATE"
	EnvCartBackend             = "JLS_CART_BACKEND"
	EnvCartTTL                 = "JLS_CART_TTL"
	EnvStorageProvider         = "JLS_STORAGE_PROVIDER"
	EnvStorageBucket           = "JLS_STORAGE_BUCKET"
	EnvStorageRegion           = "JLS_STORAGE_REGION"
	EnvStoragePublicBaseURL    = "JLS_STORAGE_PUBLIC_BASE_URL"
	EnvMaxUploadMB             = "JLS_MAX_UPLOAD_MB"
	EnvCORSAllowedOrigins      = "JLS_CORS_ALLOWED_ORIGINS"
	EnvSendgridAPIKey          = "JLS_SENDGRID_API_KEY"
	EnvGoogleApplicationCreds  = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvGCPCredentialsJSON      = "JLS_GCP_CREDENTIALS_JSON"
	EnvAWSEndpoint             = "JLS_AWS_ENDPOINT"
	EnvPasswordResetURL        = "JLS_PASSWORD_RESET_URL"
	EnvUploadRatePerSecond     = "JLS_UPLOAD_RATE_PER_SECOND"
	EnvUploadRateBurst         = "JLS_UPLOAD_RATE_BURST"
	EnvCartPersistTimeout      = "JLS_CART_PERSIST_TIMEOUT"
	EnvCartCookieSecure        = "JLS_CART_COOKIE_SECURE"
	EnvCartIdleEvict           = "JLS_CART_IDLE_EVICT"
	EnvCartSweepInterval       = "JLS_CART_SWEEP_INTERVAL"
	EnvAuthRateLimitResetLimit = "JLS_AUTH_RATE_LIMIT_RESET_EMAIL_LIMIT"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

const (
	CartBackendRedis  = "redis"
	CartBackendDB     = "db"
	CartBackendMemory = "memory"
)

const (
	StorageProviderS3  = "s3"
	StorageProviderGCS = "gcs"
)
