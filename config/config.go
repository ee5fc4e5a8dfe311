package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	// Client side
	Server       string // backend DSN used by client commands
	Reader       string // CD-TOC reader DSN, e.g. cddiscid:///dev/cdrom
	Persist      bool
	Sudo         bool
	Email        string
	SubmitServer string
	User         string
	Host         string
	Timeout      time.Duration

	// Server side
	ListenAddr  string
	CDDBPAddr   string
	BackendDSN  string
	MotdFile    bool
	StatFile    bool
	EnableCache bool
	CacheTTL    time.Duration

	// LocalDumpDir answers "cddb read" from a local dump before the backend.
	LocalDumpDir string
	// LowercaseTitles lowercases small words in titles of read replies.
	LowercaseTitles bool

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	LogLevel   string
	LogFile    string
	LogConsole bool
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func defaultHost() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "localhost"
}

// Load reads configuration from the environment, after loading .env if present.
// godotenv never overrides variables that are already set.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Error loading .env: %v", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	return &Config{
		Server:       getEnv("CDDB_SERVER", "cddbp://freedb.freedb.org:8880"),
		Reader:       getEnv("CDDB_READER", "cddiscid:///dev/cdrom"),
		Persist:      getEnvBool("CDDB_PERSIST", false),
		Sudo:         getEnvBool("CDDB_SUDO", false),
		Email:        getEnv("CDDB_EMAIL", ""),
		SubmitServer: getEnv("CDDB_SUBMIT_SERVER", "freedb.freedb.org"),
		User:         getEnv("CDDB_USER", getEnv("USER", "unknown_user")),
		Host:         getEnv("CDDB_HOST", defaultHost()),
		Timeout:      getEnvDuration("CDDB_TIMEOUT", 30*time.Second),

		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		CDDBPAddr:   getEnv("CDDBP_ADDR", ":8880"),
		BackendDSN:  getEnv("BACKEND_DSN", "filesystem:///var/lib/freedb"),
		MotdFile:    getEnvBool("BACKEND_MOTD_FILE", true),
		StatFile:    getEnvBool("BACKEND_STAT_FILE", false),
		EnableCache: getEnvBool("CACHE_ENABLED", false),
		CacheTTL:    getEnvDuration("CACHE_TTL", 24*time.Hour),

		LocalDumpDir:    getEnv("LOCAL_DUMP_DIR", ""),
		LowercaseTitles: getEnvBool("LOWERCASE_TITLES", false),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "freedb"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:    getEnv("MINIO_BUCKET", "freedb"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFile:    getEnv("LOG_FILE", ""),
		LogConsole: getEnvBool("LOG_CONSOLE", true),
	}
}
