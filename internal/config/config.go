package config // package config loads application configuration from environment variables

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/gommon/log"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; required ones abort startup when missing.
type Config struct {
	Env            string        `envconfig:"APP_ENV" required:"true"`            // application environment (e.g. "dev", "prod")
	Port           string        `envconfig:"APP_PORT" required:"true"`           // HTTP port to listen on
	DBUser         string        `envconfig:"DB_USER" required:"true"`            // database username
	DBPass         string        `envconfig:"DB_PASS"`                            // database password (optional)
	DBHost         string        `envconfig:"DB_HOST" required:"true"`            // database host address
	DBPort         string        `envconfig:"DB_PORT" required:"true"`            // database port number
	DBName         string        `envconfig:"DB_NAME" required:"true"`            // database name
	DBAutoSchema   bool          `envconfig:"DB_AUTO_SCHEMA" default:"false"`     // create tables on startup
	JWTSecret      string        `envconfig:"JWT_SECRET" required:"true"`         // secret used to sign JWTs
	AccessTTLMin   int           `envconfig:"ACCESS_TOKEN_TTL_MIN" default:"15"`  // access token time-to-live in minutes
	RefreshTTLDays int           `envconfig:"REFRESH_TOKEN_TTL_DAYS" default:"7"` // refresh token time-to-live in days
	BcryptCost     int           `envconfig:"BCRYPT_COST" default:"10"`           // bcrypt cost for password hashing
	AuthDevUsers   bool          `envconfig:"AUTH_DEV_FALLBACK" default:"false"`  // accept the fixed admin/user credentials
	SeedEnabled    bool          `envconfig:"SEED_ENABLED" default:"false"`       // expose POST /api/seed
	CodeAttempts   int           `envconfig:"BOOKING_CODE_ATTEMPTS" default:"5"`  // retries on booking code collisions
	RequestTimeout time.Duration `envconfig:"REQUEST_DB_TIMEOUT" default:"5s"`    // per-request database deadline
	AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`   // origins allowed by CORS
}

// Parse reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Parse() (Config, error) {
	_ = godotenv.Load() // a missing .env is normal outside development
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.requireValues(); err != nil {
		return Config{}, err
	}
	if cfg.CodeAttempts < 1 {
		cfg.CodeAttempts = 1
	}
	if cfg.BcryptCost < 4 {
		cfg.BcryptCost = 10
	}
	return cfg, nil
}

// requireValues rejects required variables that are set but blank.
// envconfig only checks that they exist, and a blank JWT_SECRET would sign
// tokens with an empty key.
func (c Config) requireValues() error {
	for name, v := range map[string]string{
		"APP_ENV":    c.Env,
		"APP_PORT":   c.Port,
		"DB_USER":    c.DBUser,
		"DB_HOST":    c.DBHost,
		"DB_PORT":    c.DBPort,
		"DB_NAME":    c.DBName,
		"JWT_SECRET": c.JWTSecret,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("required key %s is empty", name)
		}
	}
	return nil
}

// Load is Parse for main: configuration errors halt the program.
func Load() Config {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// IsProduction reports whether the service runs with APP_ENV=prod.
func (c Config) IsProduction() bool { return c.Env == "prod" || c.Env == "production" }
