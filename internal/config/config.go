package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Line         LineConfig
	Storage      StorageConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	BodyLimitBytes        int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
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

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// NotificationConfig controls rendering links and delivery policy.
type NotificationConfig struct {
	AdminBaseURL         string
	StaffTicketURL       string
	SupportRole          string
	RetryBatchSize       int
	MaxRetries           int
	SendTimeoutSeconds   int
	RetryIntervalSeconds int
}

// LineConfig holds LINE Messaging API and LIFF settings.
type LineConfig struct {
	ChannelAccessToken string
	ChannelSecret      string
	LiffID             string
	// AutoVerifyLinks marks links created from an inbound LIFF id as VERIFIED
	// without a verification step.
	AutoVerifyLinks bool
}

// StorageConfig selects and configures the attachment backend.
type StorageConfig struct {
	Driver        string
	LocalDir      string
	PublicBaseURL string
	MaxFiles      int
	MaxFileBytes  int64
	Minio         MinioConfig
}

// MinioConfig holds object storage credentials.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "repair-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			BodyLimitBytes:        getEnvAsInt("HTTP_BODY_LIMIT_BYTES", 20*1024*1024),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60*12),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			AdminBaseURL:         getEnv("NOTIFY_ADMIN_BASE_URL", "http://localhost:3000/admin/repairs"),
			StaffTicketURL:       getEnv("NOTIFY_STAFF_TICKET_URL", "http://localhost:3000/it/repairs"),
			SupportRole:          getEnv("NOTIFY_SUPPORT_ROLE", "IT"),
			RetryBatchSize:       getEnvAsInt("NOTIFY_RETRY_BATCH_SIZE", 10),
			MaxRetries:           getEnvAsInt("NOTIFY_MAX_RETRIES", 3),
			SendTimeoutSeconds:   getEnvAsInt("NOTIFY_SEND_TIMEOUT_SECONDS", 10),
			RetryIntervalSeconds: getEnvAsInt("NOTIFY_RETRY_INTERVAL_SECONDS", 0),
		},
		Line: LineConfig{
			ChannelAccessToken: os.Getenv("LINE_CHANNEL_ACCESS_TOKEN"),
			ChannelSecret:      os.Getenv("LINE_CHANNEL_SECRET"),
			LiffID:             os.Getenv("LINE_LIFF_ID"),
			AutoVerifyLinks:    getEnvAsBool("LINE_AUTO_VERIFY_LINKS", false),
		},
		Storage: StorageConfig{
			Driver:        os.Getenv("STORAGE_DRIVER"),
			LocalDir:      getEnv("STORAGE_LOCAL_DIR", "uploads"),
			PublicBaseURL: getEnv("STORAGE_PUBLIC_BASE_URL", "/uploads"),
			MaxFiles:      getEnvAsInt("STORAGE_MAX_FILES", 3),
			MaxFileBytes:  int64(getEnvAsInt("STORAGE_MAX_FILE_BYTES", 5*1024*1024)),
			Minio: MinioConfig{
				Endpoint:  os.Getenv("MINIO_ENDPOINT"),
				AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
				SecretKey: os.Getenv("MINIO_SECRET_KEY"),
				Bucket:    getEnv("MINIO_BUCKET", "repair-attachments"),
				UseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
				PublicURL: os.Getenv("MINIO_PUBLIC_URL"),
			},
		},
	}

	return cfg, nil
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

// IsDevelopment reports whether the service runs in a local development environment.
func (a AppConfig) IsDevelopment() bool {
	return a.Env == "development" || a.Env == "dev" || a.Env == "local"
}

// SendTimeout bounds a single call to the messaging channel.
func (n NotificationConfig) SendTimeout() time.Duration {
	if n.SendTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n.SendTimeoutSeconds) * time.Second
}

// RetryInterval returns the background retry period; zero disables the loop.
func (n NotificationConfig) RetryInterval() time.Duration {
	if n.RetryIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(n.RetryIntervalSeconds) * time.Second
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
