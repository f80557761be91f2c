package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	StoreDriver string // postgres | sqlite | none
	SQLitePath  string

	Channels        []string
	FetchLive       bool
	MessagesPerChan int
	MaxConcurrency  int
	RateLimitMs     int
	MaxRetries      int
	ChromeBin       string
	TelegramBaseURL string

	MessagesPath      string
	CalibrationPath   string
	CSVOutputPath     string
	ParquetOutputPath string

	LogLevel      string
	LogFormat     string
	LogFile       string
	LogMaxAgeDays int

	Filter FilterConfig
}

// FilterConfig mirrors the search form of the listing viewer. Zero values
// disable the corresponding criterion.
type FilterConfig struct {
	Brand            string
	Model            string
	Color            string
	MinPrice         float64
	MaxPrice         float64
	MinYear          int
	MaxYear          int
	MaxMileage       int
	BodyCondition    string
	ChassisCondition string
	EngineCondition  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "carads"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "carads123"),
		PostgresDB:       getEnv("POSTGRES_DB", "car_ads"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "sqlite")),
		SQLitePath:  getEnv("SQLITE_PATH", "./output/listings.db"),

		Channels:        getEnvList("TELEGRAM_CHANNELS", []string{"autokhass", "tamasha_car", "sourenacars"}),
		FetchLive:       getEnvBool("FETCH_LIVE", false),
		MessagesPerChan: getEnvInt("MESSAGES_PER_CHANNEL", 100),
		MaxConcurrency:  getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:     getEnvInt("RATE_LIMIT_MS", 2000),
		MaxRetries:      getEnvInt("MAX_RETRIES", 3),
		ChromeBin:       getEnv("CHROME_BIN", ""),
		TelegramBaseURL: getEnv("TELEGRAM_BASE_URL", "https://t.me/s/"),

		MessagesPath:      getEnv("MESSAGES_PATH", "./messages.txt"),
		CalibrationPath:   getEnv("CALIBRATION_PATH", "./calibration.yaml"),
		CSVOutputPath:     getEnv("CSV_OUTPUT_PATH", "./output/cars_data.csv"),
		ParquetOutputPath: getEnv("PARQUET_OUTPUT_PATH", ""),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 7),

		Filter: FilterConfig{
			Brand:            getEnv("FILTER_BRAND", ""),
			Model:            getEnv("FILTER_MODEL", ""),
			Color:            getEnv("FILTER_COLOR", ""),
			MinPrice:         getEnvFloat("FILTER_MIN_PRICE", 0),
			MaxPrice:         getEnvFloat("FILTER_MAX_PRICE", 0),
			MinYear:          getEnvInt("FILTER_MIN_YEAR", 0),
			MaxYear:          getEnvInt("FILTER_MAX_YEAR", 0),
			MaxMileage:       getEnvInt("FILTER_MAX_MILEAGE", 0),
			BodyCondition:    getEnv("FILTER_BODY_CONDITION", ""),
			ChassisCondition: getEnv("FILTER_CHASSIS_CONDITION", ""),
			EngineCondition:  getEnv("FILTER_ENGINE_CONDITION", ""),
		},
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
