package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultPort                  = "8080"
	DefaultStoreBackend          = StoreBackendPostgres
	DefaultMongoDatabase         = "gyan_setu"
	DefaultAuditSink             = AuditSinkStore
	DefaultAccessTokenExpiryMin  = 15
	DefaultRefreshTokenExpiryMin = 10080
	DefaultBcryptCost            = 10
	DefaultLockoutThreshold      = 5
	DefaultLockoutDurationSec    = 30
	DefaultMaxCommitRetries      = 10
	DefaultAuditBufferSize       = 1024
	DefaultLoginRateLimitRPS     = 5
	DefaultLoginRateLimitBurst   = 10
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMongo    = "mongo"
	StoreBackendMemory   = "memory"

	AuditSinkStore = "store"
	AuditSinkRedis = "redis"
)

type Config struct {
	Env          string
	Port         string
	StoreBackend string

	DBURL         string
	MongoURI      string
	MongoDatabase string
	RedisURL      string
	AuditSink     string

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessExpiryMin    int
	RefreshExpiryMin   int
	BcryptCost         int

	LockoutThreshold   int
	LockoutDurationSec int
	MaxCommitRetries   int

	AuditAsync           bool
	AuditBufferSize      int
	AuditDropIfFull      bool
	AuditUnknownIdentity bool

	LoginRateLimitRPS   int
	LoginRateLimitBurst int

	// SeedSchools lists school codes registered at startup on the memory backend.
	SeedSchools []string
}

// Load reads config/.env.dev or config/.env.prod, depending on ENV, then
// lets real environment variables override anything from the file.
func Load() *Config {
	env := getEnv("ENV", "development")
	loadEnvFile(env)

	cfg := &Config{
		Env:                  env,
		Port:                 getEnv("PORT", DefaultPort),
		StoreBackend:         strings.ToLower(getEnv("STORE_BACKEND", DefaultStoreBackend)),
		MongoDatabase:        getEnv("MONGO_DATABASE", DefaultMongoDatabase),
		RedisURL:             getEnv("REDIS_URL", ""),
		AuditSink:            strings.ToLower(getEnv("AUDIT_SINK", DefaultAuditSink)),
		AccessTokenSecret:    mustGetEnv("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret:   mustGetEnv("REFRESH_TOKEN_SECRET"),
		AccessExpiryMin:      getEnvAsInt("ACCESS_TOKEN_EXPIRY", DefaultAccessTokenExpiryMin),
		RefreshExpiryMin:     getEnvAsInt("REFRESH_TOKEN_EXPIRY", DefaultRefreshTokenExpiryMin),
		BcryptCost:           getEnvAsInt("BCRYPT_COST", DefaultBcryptCost),
		LockoutThreshold:     getEnvAsInt("LOCKOUT_THRESHOLD", DefaultLockoutThreshold),
		LockoutDurationSec:   getEnvAsInt("LOCKOUT_DURATION_SECONDS", DefaultLockoutDurationSec),
		MaxCommitRetries:     getEnvAsInt("MAX_COMMIT_RETRIES", DefaultMaxCommitRetries),
		AuditAsync:           getEnvAsBool("AUDIT_ASYNC", true),
		AuditBufferSize:      getEnvAsInt("AUDIT_BUFFER_SIZE", DefaultAuditBufferSize),
		AuditDropIfFull:      getEnvAsBool("AUDIT_DROP_IF_FULL", false),
		AuditUnknownIdentity: getEnvAsBool("AUDIT_UNKNOWN_IDENTITY", true),
		LoginRateLimitRPS:    getEnvAsInt("LOGIN_RATE_LIMIT_RPS", DefaultLoginRateLimitRPS),
		LoginRateLimitBurst:  getEnvAsInt("LOGIN_RATE_LIMIT_BURST", DefaultLoginRateLimitBurst),
		SeedSchools:          getEnvAsList("SEED_SCHOOLS"),
	}

	switch cfg.StoreBackend {
	case StoreBackendPostgres:
		cfg.DBURL = mustGetEnv("DB_URL")
	case StoreBackendMongo:
		cfg.MongoURI = mustGetEnv("MONGO_URI")
	case StoreBackendMemory:
	default:
		log.Fatalf("Invalid config: STORE_BACKEND=%q", cfg.StoreBackend)
	}

	switch cfg.AuditSink {
	case AuditSinkStore:
	case AuditSinkRedis:
		cfg.RedisURL = mustGetEnv("REDIS_URL")
	default:
		log.Fatalf("Invalid config: AUDIT_SINK=%q", cfg.AuditSink)
	}

	return cfg
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func loadEnvFile(env string) {
	file := "config/.env.dev"
	if env == "production" {
		file = "config/.env.prod"
	}
	// godotenv.Load never overrides variables that are already set.
	if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
		log.Printf("Could not read %s: %v", file, err)
	}
}

func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func mustGetEnv(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	log.Fatalf("Missing required config: %s", key)
	return ""
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %d", key, defaultVal)
		return defaultVal
	}
	return val
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %t", key, defaultVal)
		return defaultVal
	}
	return val
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
