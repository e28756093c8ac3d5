package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Strava      StravaConfig
	AWS         AWSConfig
	Leaderboard LeaderboardConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/raceline?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// StravaConfig holds Strava API credentials and sync policy.
type StravaConfig struct {
	ClientID      string
	ClientSecret  string
	APIBaseURL    string
	OAuthTokenURL string
	ActivityTypes []string // activity types accepted as virtual results (comma-separated in env)
	LookbackDays  int      // sync window when an athlete has no stored activities yet
	SyncPageSize  int
}

// AWSConfig holds AWS credentials and S3 bucket names.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	PaymentProofsBucket  string
	PresignExpireMinutes int
}

// LeaderboardConfig holds the standard-distance buckets and ranking policy.
type LeaderboardConfig struct {
	StandardDistancesKm []float64 // comma-separated in env, e.g. "1,3,5,7,10,12"
	ToleranceKm         float64
	TopN                int
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", "postgres://localhost:5432/raceline?sslmode=disable"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "raceline"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		Strava: StravaConfig{
			ClientID:      getEnv("STRAVA_CLIENT_ID", ""),
			ClientSecret:  getEnv("STRAVA_CLIENT_SECRET", ""),
			APIBaseURL:    getEnv("STRAVA_API_BASE_URL", "https://www.strava.com/api/v3"),
			OAuthTokenURL: getEnv("STRAVA_OAUTH_TOKEN_URL", "https://www.strava.com/oauth/token"),
			ActivityTypes: splitTrim(getEnv("STRAVA_ACTIVITY_TYPES", "Run,TrailRun,VirtualRun"), ","),
			LookbackDays:  getEnvInt("STRAVA_LOOKBACK_DAYS", 30),
			SyncPageSize:  getEnvInt("STRAVA_SYNC_PAGE_SIZE", 50),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			PaymentProofsBucket:  getEnv("AWS_S3_PAYMENT_PROOFS_BUCKET", "raceline-payment-proofs"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Leaderboard: LeaderboardConfig{
			StandardDistancesKm: parseFloats(getEnv("LEADERBOARD_DISTANCES_KM", "1,3,5,7,10,12")),
			ToleranceKm:         getEnvFloat("LEADERBOARD_TOLERANCE_KM", 0.1),
			TopN:                getEnvInt("LEADERBOARD_TOP_N", 10),
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func parseFloats(s string) []float64 {
	var out []float64
	for _, v := range splitTrim(s, ",") {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			out = append(out, f)
		}
	}
	return out
}
