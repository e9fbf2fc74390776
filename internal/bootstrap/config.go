package bootstrap

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr string
	LogLevel   string

	JWTSecret []byte

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	APIToken         string
	TranscriptionURL string
	ImproveURL       string
	SynthesisURL     string
	EmotionURL       string
	RemoteTimeout    time.Duration

	TranscribeMode    string
	MaxRecordingBytes int
	RecognizerGrace   time.Duration
	HistoryTTL        time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	StaticDir string
	IndexHTML string
}

// LoadConfig reads the environment, after loading a .env file from the
// working directory when one exists.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		JWTSecret: []byte(getEnv("JWT_SECRET", "")),

		DatabaseDSN: getEnv("DATABASE_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		APIToken:         getEnv("HUGGING_FACE_API_TOKEN", getEnv("HUGGINGFACE_API_KEY", "")),
		TranscriptionURL: getEnv("TRANSCRIPTION_URL", ""),
		ImproveURL:       getEnv("IMPROVE_URL", ""),
		SynthesisURL:     getEnv("SYNTHESIS_URL", ""),
		EmotionURL:       getEnv("EMOTION_URL", ""),
		RemoteTimeout:    getEnvDuration("REMOTE_TIMEOUT", 2*time.Minute),

		TranscribeMode:    getEnv("TRANSCRIBE_MODE", "auto"),
		MaxRecordingBytes: getEnvInt("MAX_RECORDING_BYTES", 25*1024*1024),
		RecognizerGrace:   getEnvDuration("RECOGNIZER_GRACE", 2*time.Second),
		HistoryTTL:        getEnvDuration("HISTORY_TTL", 7*24*time.Hour),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),

		StaticDir: getEnv("STATIC_DIR", "./static"),
		IndexHTML: getEnv("INDEX_HTML", "./static/index.html"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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
