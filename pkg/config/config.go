package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is built once at process start and passed by pointer into every
// component. It doubles as the secret provider: the access and refresh
// secrets are distinct so a leak of one cannot forge the other.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	AppURL      string `env:"APP_URL" envDefault:"http://localhost:5173"`

	DatabaseURL  string `env:"DATABASE_URL"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"database.db"`
	RedisURL     string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`

	JWTSecret        string `env:"JWT_SECRET"`
	JWTRefreshSecret string `env:"JWT_REFRESH_SECRET"`

	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	OTPTTL          time.Duration `env:"OTP_TTL" envDefault:"10m"`
	ResetTokenTTL   time.Duration `env:"RESET_TOKEN_TTL" envDefault:"1h"`

	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`

	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	EnforceHTTPS     bool `env:"ENFORCE_HTTPS" envDefault:"false"`

	RateLimitConfigs map[string]RateLimitConfig `env:"-"`
}

// RateLimitConfig configuration for rate limiting
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Load reads the configuration from the environment, filling defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.RateLimitConfigs = defaultRateLimits()

	return cfg, nil
}

func defaultRateLimits() map[string]RateLimitConfig {
	return map[string]RateLimitConfig{
		"/auth/register": {
			Requests: 5,
			Window:   time.Minute,
		},
		"/auth/login": {
			Requests: 10,
			Window:   time.Minute,
		},
		"/auth/forgot-password": {
			Requests: 5,
			Window:   time.Minute,
		},
	}
}
