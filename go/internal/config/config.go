package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	AudioVirtual = "virtual"
	AudioFFPlay  = "ffplay"
)

// Config is the process configuration read from the environment.
type Config struct {
	BFFURL         string
	BFFToken       string
	BFFTimeout     time.Duration
	GatewayPort    string
	NATSURL        string
	LogLevel       string
	GameConfigPath string
	AudioMode      string
	FFPlayPath     string
	AllowedOrigins []string
}

// Load reads .env if present, then the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}
	return FromEnv()
}

// FromEnv reads the environment only.
func FromEnv() Config {
	mode := strings.ToLower(getEnv("AUDIO_MODE", AudioVirtual))
	if mode != AudioFFPlay {
		mode = AudioVirtual
	}
	return Config{
		BFFURL:         getEnv("BFF_URL", "http://localhost:8080/bff"),
		BFFToken:       getEnv("BFF_TOKEN", ""),
		BFFTimeout:     getEnvAsDuration("BFF_TIMEOUT", 10*time.Second),
		GatewayPort:    getEnv("GATEWAY_PORT", "8081"),
		NATSURL:        getEnv("NATS_URL", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		GameConfigPath: getEnv("GAME_CONFIG", "game.yaml"),
		AudioMode:      mode,
		FFPlayPath:     getEnv("FFPLAY_PATH", "ffplay"),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:4200")),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("15s") or whole seconds ("15").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs := getEnvAsInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	log.Warn().Str("key", key).Str("value", value).Msg("invalid duration, using default")
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
