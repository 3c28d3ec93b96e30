package config

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type ServerConfig struct {
	DBDriver      string
	DSN           string
	Addr          string
	AppEnv        string
	ImportFile    string
	CORSOrigins   []string
	GraphCacheCap int
	SessionIdle   time.Duration
	ReapInterval  time.Duration
}

type ImporterConfig struct {
	DBDriver string
	DSN      string
	File     string
	AppEnv   string
}

// LoadDotEnv reads .env then .env.local, the latter overriding. Missing
// files are fine.
func LoadDotEnv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")
}

func FromFlagsServer() (ServerConfig, error) {
	LoadDotEnv()
	return ParseServer(os.Args[1:])
}

func ParseServer(args []string) (ServerConfig, error) {
	var cfg ServerConfig
	var origins string

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&cfg.DBDriver, "driver", getEnv("DB_DRIVER", "mysql"), "database driver (mysql or sqlite)")
	fs.StringVar(&cfg.DSN, "dsn", os.Getenv("DB_DSN"), "database DSN or sqlite file path")
	fs.StringVar(&cfg.Addr, "addr", getEnv("ADDR", ":8080"), "HTTP bind address")
	fs.StringVar(&cfg.AppEnv, "env", getEnv("APP_ENV", "production"), "development or production")
	fs.StringVar(&cfg.ImportFile, "import", os.Getenv("DATASET"), "dataset JSON imported at startup (optional)")
	fs.StringVar(&origins, "cors", getEnv("CORS_ORIGINS", "*"), "comma separated allowed origins")
	fs.IntVar(&cfg.GraphCacheCap, "graph-cache", getEnvInt("GRAPH_CACHE_CAP", 16), "number of dataset graphs kept in memory")
	fs.DurationVar(&cfg.SessionIdle, "session-idle", getEnvDuration("SESSION_IDLE", 30*time.Minute), "idle time before a tour session is dropped")
	fs.DurationVar(&cfg.ReapInterval, "reap-interval", getEnvDuration("REAP_INTERVAL", time.Minute), "how often idle sessions are checked")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	cfg.CORSOrigins = splitList(origins)
	if cfg.DSN == "" {
		return cfg, errors.New("missing DSN: set -dsn or DB_DSN")
	}
	return cfg, nil
}

func FromFlagsImporter() (ImporterConfig, error) {
	LoadDotEnv()
	return ParseImporter(os.Args[1:])
}

func ParseImporter(args []string) (ImporterConfig, error) {
	var cfg ImporterConfig

	fs := flag.NewFlagSet("importer", flag.ContinueOnError)
	fs.StringVar(&cfg.DBDriver, "driver", getEnv("DB_DRIVER", "mysql"), "database driver (mysql or sqlite)")
	fs.StringVar(&cfg.DSN, "dsn", os.Getenv("DB_DSN"), "database DSN or sqlite file path")
	fs.StringVar(&cfg.File, "file", "", "dataset JSON file")
	fs.StringVar(&cfg.AppEnv, "env", getEnv("APP_ENV", "production"), "development or production")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if cfg.DSN == "" {
		return cfg, errors.New("missing DSN: set -dsn or DB_DSN")
	}
	if cfg.File == "" {
		return cfg, errors.New("missing -file")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
