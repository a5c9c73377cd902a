package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultMongoURI      = "mongodb://localhost:27017"
	defaultMongoDatabase = "tea-stall"
	defaultStoreDriver   = "mongo"
	defaultRedisAddr     = "localhost:6379"
	defaultJWTSecret     = "change-me-in-production"
	defaultAppPort       = "8080"
	defaultAppEnv        = "local"
)

var (
	loadOnce sync.Once
	loadErr  error

	mu        sync.RWMutex
	values    = defaultValues()
	overrides = map[string]string{}
)

// Load merges config/app.json and .env over the defaults. Process
// environment variables and Set overrides win over both.
func Load() error {
	loadOnce.Do(func() {
		loadErr = loadFromFiles("config/app.json", ".env")
	})
	return loadErr
}

func defaultValues() map[string]string {
	return map[string]string{
		"APP_PORT":                 defaultAppPort,
		"APP_ENV":                  defaultAppEnv,
		"STORE_DRIVER":             defaultStoreDriver,
		"MONGO_URI":                defaultMongoURI,
		"MONGO_DATABASE":           defaultMongoDatabase,
		"MONGO_LOG_COLLECTION":     "",
		"REDIS_ADDR":               defaultRedisAddr,
		"REDIS_PASSWORD":           "",
		"JWT_SECRET":               defaultJWTSecret,
		"RATE_LIMIT_PER_MINUTE":    "200",
		"ORDER_STRICT_TRANSITIONS": "false",
		"ORDER_ATOMIC_PAYMENT":     "false",
		"SSE_HEARTBEAT_SECONDS":    "25",
	}
}

// ── App ──────────────────────────────────────────────────────────────────────

func AppPort() string {
	_ = Load()
	return get("APP_PORT", defaultAppPort)
}

func AppEnv() string {
	_ = Load()
	return get("APP_ENV", defaultAppEnv)
}

func IsProduction() bool {
	switch AppEnv() {
	case "production", "prod":
		return true
	}
	return false
}

func JWTSecret() string {
	_ = Load()
	return get("JWT_SECRET", defaultJWTSecret)
}

// AdminPromotionSecretHash is the bcrypt hash the make-admin endpoint checks
// submitted secrets against. Empty disables promotion.
func AdminPromotionSecretHash() string {
	_ = Load()
	return get("ADMIN_PROMOTION_SECRET_HASH", "")
}

func RateLimitPerMinute() int {
	return Int("RATE_LIMIT_PER_MINUTE", 200)
}

// ── Store ────────────────────────────────────────────────────────────────────

// StoreDriver is either "mongo" or "memory".
func StoreDriver() string {
	_ = Load()
	driver := strings.ToLower(get("STORE_DRIVER", defaultStoreDriver))
	switch driver {
	case "mongo", "memory":
		return driver
	default:
		return defaultStoreDriver
	}
}

func MongoURI() string {
	_ = Load()
	return get("MONGO_URI", defaultMongoURI)
}

func MongoDatabase() string {
	_ = Load()
	return get("MONGO_DATABASE", defaultMongoDatabase)
}

func MongoLogCollection() string {
	_ = Load()
	return get("MONGO_LOG_COLLECTION", "")
}

// ── Orders ───────────────────────────────────────────────────────────────────

// StrictTransitions makes the order applier reject status pairs outside the
// documented lifecycle.
func StrictTransitions() bool {
	return Bool("ORDER_STRICT_TRANSITIONS", false)
}

// AtomicPayment collapses the completed-payment write and the status=paid
// write into one store update.
func AtomicPayment() bool {
	return Bool("ORDER_ATOMIC_PAYMENT", false)
}

func SSEHeartbeat() time.Duration {
	return time.Duration(Int("SSE_HEARTBEAT_SECONDS", 25)) * time.Second
}

// ── Redis ────────────────────────────────────────────────────────────────────

func RedisAddr() string {
	_ = Load()
	return get("REDIS_ADDR", defaultRedisAddr)
}

func RedisPassword() string {
	_ = Load()
	return get("REDIS_PASSWORD", "")
}

// ── Storage ──────────────────────────────────────────────────────────────────

func StorageDefault() string {
	_ = Load()
	return get("STORAGE_DISK", "local")
}

func StorageLocalRoot() string {
	_ = Load()
	return get("STORAGE_LOCAL_ROOT", "storage")
}

func StorageURL() string {
	_ = Load()
	return get("STORAGE_URL", "http://localhost:8080/storage")
}

func StorageS3Bucket() string   { _ = Load(); return get("S3_BUCKET", "") }
func StorageS3Region() string   { _ = Load(); return get("S3_REGION", "us-east-1") }
func StorageS3Key() string      { _ = Load(); return get("S3_KEY", "") }
func StorageS3Secret() string   { _ = Load(); return get("S3_SECRET", "") }
func StorageS3Endpoint() string { _ = Load(); return get("S3_ENDPOINT", "") }
func StorageS3URL() string      { _ = Load(); return get("S3_URL", "") }

// ── Loading ──────────────────────────────────────────────────────────────────

func loadFromFiles(configPath, envPath string) error {
	loaded := defaultValues()

	if err := mergeJSONConfig(configPath, loaded); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	if err := mergeDotEnv(envPath, loaded); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	mu.Lock()
	values = loaded
	mu.Unlock()

	return nil
}

func mergeJSONConfig(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var raw map[string]interface{}
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	for key, val := range raw {
		k := strings.ToUpper(strings.TrimSpace(key))
		if k == "" {
			continue
		}
		switch v := val.(type) {
		case string:
			out[k] = strings.TrimSpace(v)
		case bool:
			out[k] = strconv.FormatBool(v)
		case float64:
			out[k] = strconv.FormatFloat(v, 'f', -1, 64)
		}
	}

	return nil
}

func mergeDotEnv(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.ToUpper(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		out[key] = strings.Trim(strings.TrimSpace(value), `"'`)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	return nil
}

func get(key, fallback string) string {
	mu.RLock()
	defer mu.RUnlock()

	if value, ok := overrides[key]; ok {
		return value
	}
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	if value := strings.TrimSpace(values[key]); value != "" {
		return value
	}

	return fallback
}

// Get reads any config key by name with an optional fallback.
func Get(key, fallback string) string {
	_ = Load()
	return get(key, fallback)
}

// Bool parses key as a boolean, returning fallback when unset or invalid.
func Bool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(Get(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return b
}

// Int parses key as an integer, returning fallback when unset or invalid.
func Int(key string, fallback int) int {
	n, err := strconv.Atoi(Get(key, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return n
}

// Set overrides key for the life of the process. Intended for tests and
// CLI flags.
func Set(key, value string) {
	mu.Lock()
	overrides[strings.ToUpper(key)] = value
	mu.Unlock()
}

// Reset drops every Set override.
func Reset() {
	mu.Lock()
	overrides = map[string]string{}
	mu.Unlock()
}
