// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds everything the server and historian read from the environment.
type Config struct {
	Port     string
	LogLevel logrus.Level

	MaxConnections      int
	MaxConnectionsPerIP int
	SocketRateMax       int
	SocketRateWindow    time.Duration
	HTTPRateMax         int
	HTTPRateWindow      time.Duration

	SessionTTL             time.Duration
	SessionCleanupInterval time.Duration
	StatsInterval          time.Duration
	GlobalSessionID        string
	AllowedOrigins         []string

	NameMinLen int
	NameMaxLen int
	ChatMaxLen int

	RedisAddr   string
	RedisDB     int
	QueueName   string
	DatabaseURL string

	HistorianBatchSize  int
	HistorianFlushDelay time.Duration
	HistorianInactivity time.Duration
}

var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5000",
	"http://127.0.0.1:5000",
}

// Load reads the configuration. Missing or malformed values fall back to
// their defaults.
func Load() Config {
	return Config{
		Port:     getEnv("PORT", "5000"),
		LogLevel: getEnvLevel("LOG_LEVEL", logrus.InfoLevel),

		MaxConnections:      getEnvInt("MAX_CONNECTIONS", 500),
		MaxConnectionsPerIP: getEnvInt("MAX_CONNECTIONS_PER_IP", 20),
		SocketRateMax:       getEnvInt("SOCKET_RATE_MAX", 100),
		SocketRateWindow:    getEnvDuration("SOCKET_RATE_WINDOW", time.Minute),
		HTTPRateMax:         getEnvInt("HTTP_RATE_MAX", 500),
		HTTPRateWindow:      getEnvDuration("HTTP_RATE_WINDOW", 15*time.Minute),

		SessionTTL:             getEnvDuration("SESSION_TTL", time.Hour),
		SessionCleanupInterval: getEnvDuration("SESSION_CLEANUP_INTERVAL", 30*time.Minute),
		StatsInterval:          getEnvDuration("STATS_INTERVAL", 5*time.Minute),
		GlobalSessionID:        getEnvAllowEmpty("GLOBAL_SESSION_ID", "global_pokdeng_session"),
		AllowedOrigins:         getEnvList("ALLOWED_ORIGINS", defaultOrigins),

		NameMinLen: getEnvInt("NAME_MIN_LEN", 2),
		NameMaxLen: getEnvInt("NAME_MAX_LEN", 20),
		ChatMaxLen: getEnvInt("CHAT_MAX_LEN", 500),

		RedisAddr:   getEnv("REDIS_ADDR", ""),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		QueueName:   getEnv("HISTORIAN_QUEUE_NAME", "pokdeng_actions"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		HistorianBatchSize:  getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		HistorianFlushDelay: time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		HistorianInactivity: getEnvDuration("HISTORIAN_INACTIVITY", 10*time.Minute),
	}
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

// getEnvAllowEmpty distinguishes unset (default) from set-but-empty.
func getEnvAllowEmpty(key, defVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(val)
	}
	return defVal
}

// getEnvInt retrieves an integer value from an environment variable or returns a default value.
func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}

// getEnvDuration accepts Go duration strings ("90s", "1h") or a bare number of seconds.
func getEnvDuration(key string, defVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defVal
}

func getEnvLevel(key string, defVal logrus.Level) logrus.Level {
	lvl, err := logrus.ParseLevel(getEnv(key, ""))
	if err != nil {
		return defVal
	}
	return lvl
}

func getEnvList(key string, defVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defVal
	}
	return out
}
