package config

import (
	"admin-service/internal/permission"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envPort                     = "PORT"
	envServerReadTimeout        = "SERVER_READ_TIMEOUT"
	envServerWriteTimeout       = "SERVER_WRITE_TIMEOUT"
	envServerShutdownTimeout    = "SERVER_SHUTDOWN_TIMEOUT"
	envAppEnv                   = "APP_ENV"
	envAppVersion               = "APP_VERSION"
	envLogLevel                 = "LOG_LEVEL"
	envStoreDriver              = "STORE_DRIVER"
	envDBHost                   = "DB_HOST"
	envDBPort                   = "DB_PORT"
	envDBName                   = "DB_NAME"
	envDBUser                   = "DB_USER"
	envDBPassword               = "DB_PASSWORD"
	envDBSSLMode                = "DB_SSL_MODE"
	envDBMaxConns               = "DB_MAX_CONNS"
	envDBMinConns               = "DB_MIN_CONNS"
	envDBRunMigrations          = "DB_RUN_MIGRATIONS"
	envMongoURI                 = "MONGO_URI"
	envMongoDatabase            = "MONGO_DATABASE"
	envJWTSecret                = "JWT_SECRET"
	envJWTAccessTTL             = "JWT_ACCESS_TTL"
	envJWTRefreshTTL            = "JWT_REFRESH_TTL"
	envRateLimitCeiling         = "RATE_LIMIT_CEILING"
	envRateLimitWindow          = "RATE_LIMIT_WINDOW"
	envRateLimitBackend         = "RATE_LIMIT_BACKEND"
	envRedisAddr                = "REDIS_ADDR"
	envRedisPassword            = "REDIS_PASSWORD"
	envRedisDB                  = "REDIS_DB"
	envAllowManagerToDel        = "ALLOW_MANAGER_TO_DEL"
	envPermissionAggregation    = "PERMISSION_AGGREGATION"
	envHonorAccessTokenValidity = "HONOR_ACCESS_TOKEN_VALIDITY"
	envCORSWhitelist            = "CORS_WHITELIST"
	envMetricsEnabled           = "METRICS_ENABLED"
	envProfilingEnabled         = "ENABLE_PROFILING"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTesting     = "testing"

	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"

	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

const (
	defaultServerPort          = "8008"
	defaultServerReadTimeout   = 10 * time.Second
	defaultServerWriteTimeout  = 10 * time.Second
	defaultServerShutdown      = 10 * time.Second
	defaultAppEnv              = EnvDevelopment
	defaultAppVersion          = "1.0.0"
	defaultLogLevel            = "info"
	defaultStoreDriver         = StoreDriverPostgres
	defaultDBHost              = "localhost"
	defaultDBPort              = 5432
	defaultDBName              = "adminservice"
	defaultDBUser              = "adminservice_app"
	defaultDBSSLMode           = "disable"
	defaultDBMaxConns          = 25
	defaultDBMinConns          = 5
	defaultMongoURI            = "mongodb://127.0.0.1:27017"
	defaultMongoDatabase       = "admin_service"
	defaultJWTAccessTTL        = 1800 * time.Second
	defaultJWTRefreshTTL       = 86400 * time.Second
	defaultRateLimitCeiling    = 300
	defaultRateLimitWindow     = 5 * time.Minute
	defaultRateLimitBackend    = RateLimitBackendMemory
	defaultRedisAddr           = "localhost:6379"
	defaultPermissionAggregate = string(permission.AggregateOr)
	minJWTSecretLength         = 32
	minUniqueCharsInSecret     = 16
	minRepeatedCharThreshold   = 4
	maxRepeatedChars           = 2
	listSeparator              = ","
	errPortRequiredFmt         = "PORT must be set"
	errDBPasswordRequiredFmt   = "DB_PASSWORD must be set when STORE_DRIVER=postgres"
	errMongoURIRequiredFmt     = "MONGO_URI must be set when STORE_DRIVER=mongo"
	errUnknownStoreDriverFmt   = "unknown STORE_DRIVER %q"
	errUnknownRateBackendFmt   = "unknown RATE_LIMIT_BACKEND %q"
	errJWTSecretRequiredFmt    = "JWT_SECRET must be set"
	errJWTSecretMinLengthFmt   = "JWT_SECRET must be at least %d characters"
	errJWTSecretLowEntropyFmt  = "JWT_SECRET has insufficient entropy (appears non-random). Use a cryptographically secure random string."
	errTTLPositiveFmt          = "%s must be positive"
	errCeilingPositiveFmt      = "RATE_LIMIT_CEILING must be positive"
	errInvalidConfigurationFmt = "invalid configuration: %w"
)

type Config struct {
	Server    ServerConfig
	App       AppConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Mongo     MongoConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Auth      AuthConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type AppConfig struct {
	Environment    string
	Version        string
	LogLevel       string
	MetricsEnabled bool
	// ProfilingEnabled mounts pprof under /debug/pprof for verified administrators.
	ProfilingEnabled bool
}

type StoreConfig struct {
	Driver string
}

type DatabaseConfig struct {
	Host          string
	Port          int
	Database      string
	User          string
	Password      string
	SSLMode       string
	MaxConns      int
	MinConns      int
	RunMigrations bool
}

type MongoConfig struct {
	URI      string
	Database string
}

type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type RateLimitConfig struct {
	Ceiling int
	Window  time.Duration
	Backend string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	AllowManagerToDel        bool
	Aggregation              permission.Aggregation
	HonorAccessTokenValidity bool
}

type CORSConfig struct {
	Whitelist []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv(envPort, defaultServerPort),
			ReadTimeout:     getDurationEnv(envServerReadTimeout, defaultServerReadTimeout),
			WriteTimeout:    getDurationEnv(envServerWriteTimeout, defaultServerWriteTimeout),
			ShutdownTimeout: getDurationEnv(envServerShutdownTimeout, defaultServerShutdown),
		},
		App: AppConfig{
			Environment:      getEnv(envAppEnv, defaultAppEnv),
			Version:          getEnv(envAppVersion, defaultAppVersion),
			LogLevel:         getEnv(envLogLevel, defaultLogLevel),
			MetricsEnabled:   getBoolEnv(envMetricsEnabled, true),
			ProfilingEnabled: getBoolEnv(envProfilingEnabled, false),
		},
		Store: StoreConfig{
			Driver: getEnv(envStoreDriver, defaultStoreDriver),
		},
		Database: DatabaseConfig{
			Host:          getEnv(envDBHost, defaultDBHost),
			Port:          getIntEnv(envDBPort, defaultDBPort),
			Database:      getEnv(envDBName, defaultDBName),
			User:          getEnv(envDBUser, defaultDBUser),
			Password:      os.Getenv(envDBPassword),
			SSLMode:       getEnv(envDBSSLMode, defaultDBSSLMode),
			MaxConns:      getIntEnv(envDBMaxConns, defaultDBMaxConns),
			MinConns:      getIntEnv(envDBMinConns, defaultDBMinConns),
			RunMigrations: getBoolEnv(envDBRunMigrations, true),
		},
		Mongo: MongoConfig{
			URI:      getEnv(envMongoURI, defaultMongoURI),
			Database: getEnv(envMongoDatabase, defaultMongoDatabase),
		},
		JWT: JWTConfig{
			Secret:     requireEnv(envJWTSecret),
			AccessTTL:  getSecondsEnv(envJWTAccessTTL, defaultJWTAccessTTL),
			RefreshTTL: getSecondsEnv(envJWTRefreshTTL, defaultJWTRefreshTTL),
		},
		RateLimit: RateLimitConfig{
			Ceiling: getIntEnv(envRateLimitCeiling, defaultRateLimitCeiling),
			Window:  getSecondsEnv(envRateLimitWindow, defaultRateLimitWindow),
			Backend: getEnv(envRateLimitBackend, defaultRateLimitBackend),
		},
		Redis: RedisConfig{
			Addr:     getEnv(envRedisAddr, defaultRedisAddr),
			Password: os.Getenv(envRedisPassword),
			DB:       getIntEnv(envRedisDB, 0),
		},
		Auth: AuthConfig{
			AllowManagerToDel:        getBoolEnv(envAllowManagerToDel, true),
			HonorAccessTokenValidity: getBoolEnv(envHonorAccessTokenValidity, true),
		},
		CORS: CORSConfig{
			Whitelist: getListEnv(envCORSWhitelist),
		},
	}

	aggregation, err := permission.ParseAggregation(getEnv(envPermissionAggregation, defaultPermissionAggregate))
	if err != nil {
		return nil, fmt.Errorf(errInvalidConfigurationFmt, err)
	}
	cfg.Auth.Aggregation = aggregation

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf(errInvalidConfigurationFmt, err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf(errPortRequiredFmt)
	}

	switch c.Store.Driver {
	case StoreDriverPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf(errDBPasswordRequiredFmt)
		}
	case StoreDriverMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf(errMongoURIRequiredFmt)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf(errUnknownStoreDriverFmt, c.Store.Driver)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf(errJWTSecretRequiredFmt)
	}

	if len(c.JWT.Secret) < minJWTSecretLength {
		return fmt.Errorf(errJWTSecretMinLengthFmt, minJWTSecretLength)
	}

	if !hasMinimumEntropy(c.JWT.Secret) {
		return fmt.Errorf(errJWTSecretLowEntropyFmt)
	}

	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf(errTTLPositiveFmt, envJWTAccessTTL)
	}

	if c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf(errTTLPositiveFmt, envJWTRefreshTTL)
	}

	if c.RateLimit.Ceiling <= 0 {
		return fmt.Errorf(errCeilingPositiveFmt)
	}

	if c.RateLimit.Window <= 0 {
		return fmt.Errorf(errTTLPositiveFmt, envRateLimitWindow)
	}

	switch c.RateLimit.Backend {
	case RateLimitBackendMemory, RateLimitBackendRedis:
	default:
		return fmt.Errorf(errUnknownRateBackendFmt, c.RateLimit.Backend)
	}

	return nil
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == EnvProduction
}

func hasMinimumEntropy(secret string) bool {
	if len(secret) < minJWTSecretLength {
		return false
	}

	charCounts := make(map[rune]int)
	for _, char := range secret {
		charCounts[char]++
	}

	uniqueChars := len(charCounts)
	if uniqueChars < minUniqueCharsInSecret {
		return false
	}

	repeatedChars := 0
	for _, count := range charCounts {
		if count > len(secret)/minRepeatedCharThreshold {
			repeatedChars++
		}
	}

	return repeatedChars <= maxRepeatedChars
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func requireEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(messages.requiredEnvNotSet(key))
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	var out []string
	for _, item := range strings.Split(value, listSeparator) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

// getSecondsEnv accepts a Go duration or a bare number of seconds, the unit
// token lifetimes are traditionally configured in.
func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
