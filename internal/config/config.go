package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/imagehub/imagehub/go-services/pkg/apierrors"
)

// AuthMode selects the deployment-wide authentication scheme. Exactly one
// mode is active per process.
type AuthMode string

const (
	ModeAPIKey AuthMode = "api_key"
	ModeOIDC   AuthMode = "oidc"
)

// Config holds application configuration
type Config struct {
	Server  ServerConfig
	Auth    AuthConfig
	Redis   RedisConfig
	MongoDB MongoDBConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuthConfig is read once at startup and immutable thereafter.
type AuthConfig struct {
	Mode             AuthMode
	APIKey           string
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string
	OIDCScopes       []string
	JWTSigningKey    string
	UserStoreBackend string // "redis" (default) | "mongo"
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Prefix   string
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8686")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("AUTH_MODE", string(ModeAPIKey))
	viper.SetDefault("OIDC_SCOPES", "openid,profile,email")
	viper.SetDefault("USER_STORE_BACKEND", "redis")
	viper.SetDefault("REDIS_PREFIX", "imagehub:")
	viper.SetDefault("MONGODB_TIMEOUT", 10)

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			Mode:             AuthMode(strings.ToLower(viper.GetString("AUTH_MODE"))),
			APIKey:           os.Getenv("API_KEY"),
			OIDCIssuer:       viper.GetString("OIDC_ISSUER"),
			OIDCClientID:     viper.GetString("OIDC_CLIENT_ID"),
			OIDCClientSecret: os.Getenv("OIDC_CLIENT_SECRET"),
			OIDCRedirectURL:  viper.GetString("OIDC_REDIRECT_URL"),
			OIDCScopes:       splitScopes(viper.GetString("OIDC_SCOPES")),
			JWTSigningKey:    os.Getenv("JWT_SIGNING_KEY"),
			UserStoreBackend: strings.ToLower(viper.GetString("USER_STORE_BACKEND")),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
			Prefix:   viper.GetString("REDIS_PREFIX"),
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the fail-fast startup contract: an unknown mode or a mode
// with missing required settings must never reach request handling.
func (c *Config) Validate() error {
	switch c.Auth.Mode {
	case ModeAPIKey:
		if c.Auth.APIKey == "" {
			return fmt.Errorf("%w: API_KEY is required in api_key mode", apierrors.ErrServerMisconfigured)
		}
	case ModeOIDC:
		if c.Auth.OIDCIssuer == "" {
			return fmt.Errorf("%w: OIDC_ISSUER is required in oidc mode", apierrors.ErrServerMisconfigured)
		}
		if c.Auth.OIDCClientID == "" {
			return fmt.Errorf("%w: OIDC_CLIENT_ID is required in oidc mode", apierrors.ErrServerMisconfigured)
		}
		if c.Auth.OIDCClientSecret == "" {
			return fmt.Errorf("%w: OIDC_CLIENT_SECRET is required in oidc mode", apierrors.ErrServerMisconfigured)
		}
		if c.Auth.OIDCRedirectURL == "" {
			return fmt.Errorf("%w: OIDC_REDIRECT_URL is required in oidc mode", apierrors.ErrServerMisconfigured)
		}
		if c.Auth.JWTSigningKey == "" {
			return fmt.Errorf("%w: JWT_SIGNING_KEY is required in oidc mode", apierrors.ErrServerMisconfigured)
		}
		if c.Auth.UserStoreBackend != "redis" && c.Auth.UserStoreBackend != "mongo" {
			return fmt.Errorf("%w: unknown user store backend %q", apierrors.ErrServerMisconfigured, c.Auth.UserStoreBackend)
		}
		if c.Auth.UserStoreBackend == "redis" && c.Redis.Host == "" {
			return fmt.Errorf("%w: REDIS_HOST is required for the redis user store", apierrors.ErrServerMisconfigured)
		}
		if c.Auth.UserStoreBackend == "mongo" && c.MongoDB.URI == "" {
			return fmt.Errorf("%w: MONGODB_URI is required for the mongo user store", apierrors.ErrServerMisconfigured)
		}
	default:
		return fmt.Errorf("%w: unknown auth mode %q", apierrors.ErrServerMisconfigured, c.Auth.Mode)
	}
	return nil
}

func splitScopes(s string) []string {
	parts := strings.Split(s, ",")
	scopes := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			scopes = append(scopes, p)
		}
	}
	return scopes
}
