package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Cart          CartConfig
	Storage       StorageConfig
	GCP           GCPConfig
	AWS           AWSConfig
	CORS          CORSConfig
	Sendgrid      SendgridConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	cfg.Cart.Backend = strings.ToLower(strings.TrimSpace(cfg.Cart.Backend))
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	cfg.Storage.Provider = strings.ToLower(strings.TrimSpace(cfg.Storage.Provider))
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"JLS_APP_ENV" required:"true"`
	Port         string `envconfig:"JLS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"JLS_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"JLS_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"JLS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"JLS_DB_DSN"`
	Driver string `envconfig:"JLS_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"JLS_DB_HOST"`
	Port     int    `envconfig:"JLS_DB_PORT" default:"5432"`
	User     string `envconfig:"JLS_DB_USER"`
	Password string `envconfig:"JLS_DB_PASSWORD"`
	Name     string `envconfig:"JLS_DB_NAME"`
	SSLMode  string `envconfig:"JLS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"JLS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"JLS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"JLS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"JLS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"JLS_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"JLS_REDIS_URL"`
	Address      string        `envconfig:"JLS_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"JLS_REDIS_PASSWORD"`
	DB           int           `envconfig:"JLS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"JLS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"JLS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"JLS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"JLS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"JLS_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"JLS_REDIS_KEY_PREFIX" default:"jls"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"JLS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"JLS_JWT_ISSUER" default:"jersey-league-shop"`
	ExpirationMinutes      int    `envconfig:"JLS_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"JLS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
	ResetTokenTTLMinutes   int    `envconfig:"JLS_RESET_TOKEN_TTL_MINUTES" default:"30"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

func (j JWTConfig) ResetTokenTTL() time.Duration {
	if j.ResetTokenTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(j.ResetTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"JLS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"JLS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"JLS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"JLS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"JLS_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"JLS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"JLS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"JLS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"JLS_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"JLS_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"JLS_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	ResetWindow        time.Duration `envconfig:"JLS_AUTH_RATE_LIMIT_RESET_WINDOW" default:"15m"`
	ResetEmailLimit    int           `envconfig:"JLS_AUTH_RATE_LIMIT_RESET_EMAIL_LIMIT" default:"3"`
	ResetIPLimit       int           `envconfig:"JLS_AUTH_RATE_LIMIT_RESET_IP_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"JLS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"JLS_AUTO_MIGRATE" default:"false"`
}

type CartConfig struct {
	Backend        string        `envconfig:"JLS_CART_BACKEND" default:"redis"`
	TTL            time.Duration `envconfig:"JLS_CART_TTL" default:"720h"`
	PersistTimeout time.Duration `envconfig:"JLS_CART_PERSIST_TIMEOUT" default:"3s"`
	CookieSecure   bool          `envconfig:"JLS_CART_COOKIE_SECURE" default:"true"`
	IdleEvict      time.Duration `envconfig:"JLS_CART_IDLE_EVICT" default:"30m"`
	SweepInterval  time.Duration `envconfig:"JLS_CART_SWEEP_INTERVAL" default:"5m"`
}

func (c CartConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case CartBackendRedis, CartBackendDB, CartBackendMemory:
		return nil
	default:
		return fmt.Errorf("%s must be one of %s, %s, %s", EnvCartBackend, CartBackendRedis, CartBackendDB, CartBackendMemory)
	}
}

type StorageConfig struct {
	Provider        string  `envconfig:"JLS_STORAGE_PROVIDER" default:"s3"`
	Bucket          string  `envconfig:"JLS_STORAGE_BUCKET" required:"true"`
	Region          string  `envconfig:"JLS_STORAGE_REGION" default:"us-east-1"`
	PublicBaseURL   string  `envconfig:"JLS_STORAGE_PUBLIC_BASE_URL"`
	MaxUploadMB     int     `envconfig:"JLS_MAX_UPLOAD_MB" default:"10"`
	UploadRatePerS  float64 `envconfig:"JLS_UPLOAD_RATE_PER_SECOND" default:"2"`
	UploadRateBurst int     `envconfig:"JLS_UPLOAD_RATE_BURST" default:"5"`
}

// MaxUploadBytes converts the configured megabyte cap to bytes.
func (s StorageConfig) MaxUploadBytes() int64 {
	if s.MaxUploadMB <= 0 {
		return 0
	}
	return int64(s.MaxUploadMB) << 20
}

// PublicURLTemplate returns the base URL objects are served from, without a trailing slash.
func (s StorageConfig) PublicURLTemplate() string {
	if base := strings.TrimRight(strings.TrimSpace(s.PublicBaseURL), "/"); base != "" {
		return base
	}
	switch strings.ToLower(s.Provider) {
	case StorageProviderGCS:
		return fmt.Sprintf("https://storage.googleapis.com/%s", s.Bucket)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", s.Bucket, s.Region)
	}
}

func (s StorageConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Provider)) {
	case StorageProviderS3, StorageProviderGCS:
		return nil
	default:
		return fmt.Errorf("%s must be one of %s, %s", EnvStorageProvider, StorageProviderS3, StorageProviderGCS)
	}
}

type GCPConfig struct {
	ProjectID              string `envconfig:"JLS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"JLS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
}

type AWSConfig struct {
	Endpoint     string `envconfig:"JLS_AWS_ENDPOINT"`
	UsePathStyle bool   `envconfig:"JLS_AWS_USE_PATH_STYLE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string      `envconfig:"JLS_CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
	MaxAge         time.Duration `envconfig:"JLS_CORS_MAX_AGE" default:"5m"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"JLS_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"JLS_SENDGRID_FROM_EMAIL" default:"no-reply@jerseyleague.shop"`
	FromName    string `envconfig:"JLS_SENDGRID_FROM_NAME" default:"Jersey League Shop"`
	ResetURL    string `envconfig:"JLS_PASSWORD_RESET_URL" default:"http://localhost:5173/reset-password"`
}

func (s SendgridConfig) Enabled() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = "file:jls.db?cache=shared"
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
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
