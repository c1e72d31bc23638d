package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the gatekeeper server.
// Tags use mapstructure for Viper unmarshalling.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`

	// Signing configuration. Algorithm is HS256 or RS256; HS256 uses
	// SigningSecret, RS256 reads the PEM key pair from the given paths.
	SigningAlgorithm  string `mapstructure:"SIGNING_ALGORITHM"`
	SigningSecret     string `mapstructure:"SIGNING_SECRET"`
	RSAPrivateKeyPath string `mapstructure:"RSA_PRIVATE_KEY_PATH"`
	RSAPublicKeyPath  string `mapstructure:"RSA_PUBLIC_KEY_PATH"`
	Issuer            string `mapstructure:"TOKEN_ISSUER"`

	// DefaultExpiration applies when a client has no expiration phrase
	// of its own. Accepts the same phrases clients use ("10 minutes").
	DefaultExpiration string `mapstructure:"DEFAULT_EXPIRATION"`

	// OriginBinding toggles recording and enforcing the caller's web
	// origin on issued tokens.
	OriginBinding bool `mapstructure:"ORIGIN_BINDING"`

	// RedisAddr enables the Redis token cache when non-empty; otherwise
	// an in-memory cache is used. CacheTTL bounds cache entry lifetime.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	CacheTTL      string `mapstructure:"CACHE_TTL"`

	BcryptCost int `mapstructure:"BCRYPT_COST"`
}

// LoadConfig reads configuration from file, environment variables, and
// defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("/etc/gatekeeper/")
	v.AddConfigPath("$HOME/.gatekeeper")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/gatekeeper")
	v.SetDefault("MONGO_DB_NAME", "gatekeeper")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("SIGNING_ALGORITHM", "HS256")
	v.SetDefault("TOKEN_ISSUER", "gatekeeper")
	v.SetDefault("DEFAULT_EXPIRATION", "1 hour")
	v.SetDefault("ORIGIN_BINDING", true)
	v.SetDefault("CACHE_TTL", "5 minutes")
	v.SetDefault("BCRYPT_COST", 12)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env vars apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
