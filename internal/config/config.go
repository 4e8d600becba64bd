package config

import (
	"errors"
	"flag"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Значения по умолчанию.
const (
	DefaultBaseURL          = "localhost:8081"
	DefaultAuthSecret       = "dev-secret-key"
	DefaultDatabaseDSN      = "sqlite://file:chiptrack.db?_pragma=busy_timeout(5000)"
	DefaultRateLimit        = 300
	DefaultLoginRateLimit   = 10
	DefaultTrackRateLimit   = 30
	DefaultVisionMaxMB      = 8
	DefaultStatsCacheTTL    = 5 * time.Minute
	DefaultGeminiModel      = "gemini-2.0-flash"
	DefaultSeedUsers        = "Shyam:shyam123:admin,Rakesh:rakesh123:user"
	EnvDevelopment          = "development"
	EnvProduction           = "production"
	defaultCORSOriginsValue = "http://localhost:5173"
)

type Config struct {
	// Хранилище: postgres://..., mongodb://..., sqlite://...
	DatabaseDSN string `env:"DATABASE_URI"`
	AuthSecret  string `env:"AUTH_SECRET"`

	BaseURL     string `env:"BASE_URL"`
	EnableHTTPS bool   `env:"ENABLE_HTTPS"`
	AppEnv      string `env:"APP_ENV"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`

	RateLimitPerMinute      int `env:"RATE_LIMIT_PER_MINUTE"`
	LoginRateLimitPerMinute int `env:"LOGIN_RATE_LIMIT_PER_MINUTE"`
	TrackRateLimitPerMinute int `env:"TRACK_RATE_LIMIT_PER_MINUTE"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL"`
	VisionMaxMB  int    `env:"VISION_MAX_MB"`

	RedisURL      string        `env:"REDIS_URL"`
	StatsCacheTTL time.Duration `env:"STATS_CACHE_TTL"`

	SeedUsers string `env:"SEED_USERS"`
}

// IsDevelopment - подробные ошибки и dev-логгер.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// SecureCookies - cookie с флагом Secure в production или за HTTPS.
func (c *Config) SecureCookies() bool {
	return c.EnableHTTPS || c.AppEnv == EnvProduction
}

var hostPortRe = regexp.MustCompile(`^[A-Za-z0-9\.\-]*:\d{1,5}$`)

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// flags работают ТОЛЬКО если переменные из env не заданы
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД (postgres://, mongodb://, sqlite://)")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "секрет для подписи JWT")
	flag.StringVar(&cfg.BaseURL, "a", cfg.BaseURL, "адрес сервера host:port")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "сервер работает за HTTPS (Secure cookie)")
	flag.StringVar(&cfg.AppEnv, "env", cfg.AppEnv, "окружение: development | production")
	flag.StringVar(&cfg.RedisURL, "redis", cfg.RedisURL, "redis://... для общего кэша статистики")

	flag.Parse()

	// Defaults
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = DefaultDatabaseDSN
	}
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	if cfg.AppEnv == "" {
		cfg.AppEnv = EnvDevelopment
	}
	// общеизвестный секрет допустим только в разработке, см. Validate
	if cfg.AuthSecret == "" && cfg.IsDevelopment() {
		cfg.AuthSecret = DefaultAuthSecret
	}
	// BaseURL: только "address:port" (без схемы и пути), иначе значение по умолчанию
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.CORSOrigins = cleanOrigins(cfg.CORSOrigins)
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{defaultCORSOriginsValue}
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = DefaultRateLimit
	}
	if cfg.LoginRateLimitPerMinute <= 0 {
		cfg.LoginRateLimitPerMinute = DefaultLoginRateLimit
	}
	if cfg.TrackRateLimitPerMinute <= 0 {
		cfg.TrackRateLimitPerMinute = DefaultTrackRateLimit
	}
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = DefaultGeminiModel
	}
	if cfg.VisionMaxMB <= 0 {
		cfg.VisionMaxMB = DefaultVisionMaxMB
	}
	if cfg.StatsCacheTTL <= 0 {
		cfg.StatsCacheTTL = DefaultStatsCacheTTL
	}
	if strings.TrimSpace(cfg.SeedUsers) == "" {
		cfg.SeedUsers = DefaultSeedUsers
	}

	return cfg
}

// ErrWeakAuthSecret - вне разработки секрет JWT не задан или совпадает с учебным.
var ErrWeakAuthSecret = errors.New("AUTH_SECRET must be set to a non-default value outside development")

// Validate проверяет настройки, без которых сервер нельзя запускать.
func (c *Config) Validate() error {
	if !c.IsDevelopment() && (c.AuthSecret == "" || c.AuthSecret == DefaultAuthSecret) {
		return ErrWeakAuthSecret
	}
	return nil
}

func cleanOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, o := range in {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			out = append(out, o)
		}
	}
	return out
}
