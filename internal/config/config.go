package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server        ServerConfig
	Redis         RedisConfig
	Auth          AuthConfig
	RateLimit     RateLimitConfig
	STT           STTConfig
	TTS           TTSConfig
	Observability ObservabilityConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	VoiceRoute     string
	MaxFormMemory  int64
	AllowedOrigins []string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string // empty disables bearer auth on the voice route
}

type RateLimitConfig struct {
	RequestsPerMinute int // 0 disables limiting
}

type STTConfig struct {
	Backend      string // "placeholder", "groq" or "local"
	GroqKey      string
	GroqBaseURL  string
	GroqModel    string
	LocalBaseURL string
}

type TTSConfig struct {
	APIKey         string
	BaseURL        string
	Version        string
	ModelID        string
	VoiceID        string
	TimeoutSeconds int // 0 leaves the HTTP client without a timeout
}

type ObservabilityConfig struct {
	LogLevel       slog.Level
	MetricsEnabled bool
	OTLPEndpoint   string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first; variables already set in the process win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	formMB, err := getEnvInt("MAX_FORM_MEMORY_MB", 32)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_FORM_MEMORY_MB: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	rpm, err := getEnvInt("RATE_LIMIT_RPM", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPM: %w", err)
	}

	ttsTimeout, err := getEnvInt("TTS_TIMEOUT_SECONDS", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid TTS_TIMEOUT_SECONDS: %w", err)
	}

	metrics, err := getEnvBool("METRICS_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("invalid METRICS_ENABLED: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			VoiceRoute:     getEnv("VOICE_ROUTE", "/api/voice"),
			MaxFormMemory:  int64(formMB) << 20,
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: rpm,
		},
		STT: STTConfig{
			Backend:      strings.ToLower(getEnv("STT_BACKEND", "placeholder")),
			GroqKey:      getEnv("GROQ_API_KEY", ""),
			GroqBaseURL:  getEnv("STT_GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			GroqModel:    getEnv("STT_GROQ_MODEL", "whisper-large-v3"),
			LocalBaseURL: getEnv("STT_LOCAL_BASE_URL", "http://localhost:8178"),
		},
		TTS: TTSConfig{
			APIKey:         getEnv("CARTESIA_API_KEY", ""),
			BaseURL:        getEnv("CARTESIA_BASE_URL", "https://api.cartesia.ai"),
			Version:        getEnv("CARTESIA_VERSION", "2024-06-10"),
			ModelID:        getEnv("CARTESIA_MODEL_ID", ""),
			VoiceID:        getEnv("CARTESIA_VOICE_ID", getEnv("CHINESE_VOICE_ID", "")),
			TimeoutSeconds: ttsTimeout,
		},
		Observability: ObservabilityConfig{
			LogLevel:       level,
			MetricsEnabled: metrics,
			OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate reports every required setting that is absent.
func (c *Config) Validate() error {
	var missing []string
	if c.TTS.APIKey == "" {
		missing = append(missing, "CARTESIA_API_KEY")
	}
	if c.TTS.ModelID == "" {
		missing = append(missing, "CARTESIA_MODEL_ID")
	}
	if c.TTS.VoiceID == "" {
		missing = append(missing, "CARTESIA_VOICE_ID")
	}
	if c.STT.GroqKey == "" {
		missing = append(missing, "GROQ_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if !strings.HasPrefix(c.Server.VoiceRoute, "/") {
		return fmt.Errorf("VOICE_ROUTE must start with '/': %q", c.Server.VoiceRoute)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
