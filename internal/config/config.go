package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddress string
	LogLevel      string

	MongoURI string
	MongoDB  string
	// DataDir holds the JSON snapshot used by the in-memory store when MongoURI is empty.
	DataDir string

	FirebaseProjectID       string
	FirebaseCredentialsJSON string

	SendGridAPIKey  string
	ReportFromEmail string
	ReportToEmail   string

	ServiceRoleSecret string
	RecaptchaSecret   string

	RedisAddr       string
	RedisPassword   string
	ProfileCacheTTL time.Duration

	AvatarBaseURL string
	ResetCodeTTL  time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerAddress:           getEnv("SERVER_ADDRESS", ":8080"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDB:                 getEnv("MONGO_DB", "campusconnect"),
		DataDir:                 getEnv("DATA_DIR", "./data"),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsJSON: getEnv("FIREBASE_CREDENTIALS_JSON", ""),
		SendGridAPIKey:          getEnv("SENDGRID_API_KEY", ""),
		ReportFromEmail:         getEnv("REPORT_FROM_EMAIL", ""),
		ReportToEmail:           getEnv("REPORT_TO_EMAIL", ""),
		ServiceRoleSecret:       getEnv("SERVICE_ROLE_SECRET", ""),
		RecaptchaSecret:         getEnv("RECAPTCHA_SECRET", ""),
		RedisAddr:               getEnv("REDIS_ADDR", ""),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		ProfileCacheTTL:         getDuration("PROFILE_CACHE_TTL", 5*time.Minute),
		AvatarBaseURL:           strings.TrimRight(getEnv("AVATAR_BASE_URL", "/assets/avatars"), "/"),
		ResetCodeTTL:            getDuration("RESET_CODE_TTL", 15*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
