package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env       string
	LogLevel  string
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Auth      AuthConfig
	Supabase  SupabaseConfig
	Email     EmailConfig
	RateLimit RateLimitConfig
	Admin     AdminConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	URL         string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxLifetime time.Duration
}

// HasCredentials reports whether a user is available, either embedded in
// the URL or supplied separately.
func (d DatabaseConfig) HasCredentials() bool {
	if d.User != "" && d.Password != "" {
		return true
	}
	u, err := url.Parse(d.URL)
	if err != nil || u.User == nil {
		return false
	}
	return u.User.Username() != ""
}

type RedisConfig struct {
	URL string
}

type NATSConfig struct {
	URL string
}

type AuthConfig struct {
	JWTSecret      string
	AccessTokenTTL time.Duration
	AppURL         string
}

type SupabaseConfig struct {
	URL     string
	AnonKey string
}

func (s SupabaseConfig) Enabled() bool {
	return s.URL != "" && s.AnonKey != ""
}

type EmailConfig struct {
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPass      string
	SMTPFrom      string
	SMTPSecure    bool
	MailerSendKey string
	FromName      string
	NotifyTo      []string
	RetryBase     time.Duration
	MaxAttempts   int
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	// TrustedProxies are addresses or CIDRs whose X-Forwarded-For and
	// X-Real-IP headers are honoured. Empty means the TCP peer is the client.
	TrustedProxies []string
}

type AdminConfig struct {
	APIKey string
}

type CORSConfig struct {
	AllowedOrigins []string
}

const DevJWTSecret = "dev-only-secret-change-in-prod"

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "development")
	limit := RateLimitConfig{Requests: 1000, Window: 15 * time.Minute}
	if env == "production" {
		limit = RateLimitConfig{Requests: 100, Window: 15 * time.Minute}
	}
	limit.Requests = getInt("RATE_LIMIT_REQUESTS", limit.Requests)
	limit.Window = getDuration("RATE_LIMIT_WINDOW", limit.Window)
	if limit.Requests < 1 {
		limit.Requests = 1
	}
	if limit.Window <= 0 {
		limit.Window = 15 * time.Minute
	}
	limit.TrustedProxies = getList("TRUSTED_PROXIES", nil)

	return &Config{
		Env:      env,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Port:         getEnv("PORT", "5000"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 5*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			URL:         getEnv("DATABASE_URL", ""),
			User:        getEnv("DB_USER", ""),
			Password:    getEnv("DB_PASSWORD", ""),
			MaxConns:    getInt("DB_MAX_CONNS", 10),
			MinConns:    getInt("DB_MIN_CONNS", 1),
			MaxLifetime: getDuration("DB_MAX_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		NATS: NATSConfig{
			URL: getEnv("NATS_URL", ""),
		},
		Auth: AuthConfig{
			JWTSecret:      getEnv("JWT_SECRET", DevJWTSecret),
			AccessTokenTTL: getDuration("ACCESS_TOKEN_TTL", 24*time.Hour),
			AppURL:         strings.TrimSuffix(getEnv("APP_URL", "http://localhost:5000"), "/"),
		},
		Supabase: SupabaseConfig{
			URL:     strings.TrimSuffix(getEnv("SUPABASE_URL", ""), "/"),
			AnonKey: getEnv("SUPABASE_ANON_KEY", ""),
		},
		Email: EmailConfig{
			SMTPHost:      getEnv("SMTP_HOST", ""),
			SMTPPort:      getInt("SMTP_PORT", 587),
			SMTPUser:      getEnv("SMTP_USER", ""),
			SMTPPass:      getEnv("SMTP_PASS", ""),
			SMTPFrom:      getEnv("SMTP_FROM", "noreply@saiplatform.com"),
			SMTPSecure:    getBool("SMTP_SECURE", false),
			MailerSendKey: getEnv("MAILERSEND_API_KEY", ""),
			FromName:      getEnv("MAILER_FROM_NAME", "SAI Platform"),
			NotifyTo:      getList("NOTIFY_EMAILS", []string{"sales@saiplatform.com"}),
			RetryBase:     getDuration("EMAIL_RETRY_BASE", time.Second),
			MaxAttempts:   getInt("EMAIL_MAX_ATTEMPTS", 3),
		},
		RateLimit: limit,
		Admin: AdminConfig{
			APIKey: getEnv("ADMIN_API_KEY", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getList("CORS_ORIGINS", []string{"*"}),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
