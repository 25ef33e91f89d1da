package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvProduction = "production"

// Config is the process configuration resolved from .env and the environment.
type Config struct {
	Env      string
	Server   ServerConfig
	JWT      JWTConfig
	Argon2   Argon2Config
	CORS     CORSConfig
	Payments PaymentsConfig
}

type ServerConfig struct {
	Port           string
	RequestTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type JWTConfig struct {
	SecretKey string
	Expiry    time.Duration
}

// Argon2Config holds argon2id parameters for password hashing.
type Argon2Config struct {
	Time       uint32
	Memory     uint32
	Threads    uint8
	KeyLength  uint32
	SaltLength uint32
}

type CORSConfig struct {
	AllowedOrigins []string
}

type PaymentsConfig struct {
	Currency       string
	DebtorAgentBIC string
}

// IsProduction reports whether diagnostic detail must be withheld from clients.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

var bindings = map[string]string{
	"app.env":                   "APP_ENV",
	"server.port":               "PORT",
	"server.request_timeout":    "SERVER_REQUEST_TIMEOUT",
	"database.host":             "DATABASE_HOST",
	"database.port":             "DATABASE_PORT",
	"database.user":             "DATABASE_USER",
	"database.password":         "DATABASE_PASSWORD",
	"database.name":             "DATABASE_NAME",
	"database.ssl_mode":         "DATABASE_SSL_MODE",
	"redis.host":                "REDIS_HOST",
	"redis.port":                "REDIS_PORT",
	"redis.password":            "REDIS_PASSWORD",
	"redis.db":                  "REDIS_DB",
	"jwt.secret_key":            "JWT_SECRET_KEY",
	"jwt.expiry_hours":          "JWT_EXPIRY_HOURS",
	"argon2.time":               "ARGON2_TIME",
	"argon2.memory":             "ARGON2_MEMORY",
	"argon2.threads":            "ARGON2_THREADS",
	"argon2.key_length":         "ARGON2_KEY_LENGTH",
	"argon2.salt_length":        "ARGON2_SALT_LENGTH",
	"cors.allowed_origins":      "FRONTEND_URL",
	"payments.currency":         "PAYMENTS_CURRENCY",
	"payments.debtor_agent_bic": "PAYMENTS_DEBTOR_AGENT_BIC",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("jwt.expiry_hours", 720)
	v.SetDefault("argon2.time", 1)
	v.SetDefault("argon2.memory", 64*1024)
	v.SetDefault("argon2.threads", 4)
	v.SetDefault("argon2.key_length", 32)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000")
	v.SetDefault("payments.currency", "ZAR")
	v.SetDefault("payments.debtor_agent_bic", "INTLZAJJ")
}

// Load reads .env (if present) and the environment into a Config.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	for key, env := range bindings {
		viper.BindEnv(key, env)
	}
	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using environment and defaults: %v", err)
	}

	return FromViper(viper.GetViper())
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	secret := v.GetString("jwt.secret_key")
	if secret == "" {
		return nil, errors.New("jwt.secret_key (JWT_SECRET_KEY) must be set")
	}

	var origins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return &Config{
		Env: strings.ToLower(strings.TrimSpace(v.GetString("app.env"))),
		Server: ServerConfig{
			Port:           v.GetString("server.port"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   v.GetDuration("server.request_timeout") + 5*time.Second,
			IdleTimeout:    60 * time.Second,
		},
		JWT: JWTConfig{
			SecretKey: secret,
			Expiry:    time.Duration(v.GetInt("jwt.expiry_hours")) * time.Hour,
		},
		Argon2: Argon2Config{
			Time:       uint32(v.GetInt("argon2.time")),
			Memory:     uint32(v.GetInt("argon2.memory")),
			Threads:    uint8(v.GetInt("argon2.threads")),
			KeyLength:  uint32(v.GetInt("argon2.key_length")),
			SaltLength: uint32(v.GetInt("argon2.salt_length")),
		},
		CORS: CORSConfig{AllowedOrigins: origins},
		Payments: PaymentsConfig{
			Currency:       strings.ToUpper(v.GetString("payments.currency")),
			DebtorAgentBIC: strings.ToUpper(v.GetString("payments.debtor_agent_bic")),
		},
	}, nil
}
