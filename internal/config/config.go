package config

import (
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application. Source credentials are
// optional: a missing credential disables that adapter at construction time,
// it never fails startup.
type Config struct {
	// Application settings
	Port       string `envconfig:"PORT" default:"8080"`
	GinMode    string `envconfig:"GIN_MODE" default:"debug"`
	MongodbURL string `envconfig:"MONGODB_URL" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"bandroom"`

	// Optional hot cache in front of the Mongo result cache
	ValkeyURL string `envconfig:"VALKEY_URL"`

	// Source credentials
	SpotifyClientID     string `envconfig:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `envconfig:"SPOTIFY_CLIENT_SECRET"`
	GeniusAccessToken   string `envconfig:"GENIUS_ACCESS_TOKEN"`
	AuddAPIToken        string `envconfig:"AUDD_API_TOKEN"`
	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`

	// Optional path to a TOML cache-policy file overriding TTLs and
	// generative timeouts
	CachePolicyPath string `envconfig:"CACHE_POLICY_PATH"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// HasSpotify reports whether the Spotify metadata source is configured.
func (c *Config) HasSpotify() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}

// HasGenius reports whether the Genius lyrics source is configured.
func (c *Config) HasGenius() bool {
	return c.GeniusAccessToken != ""
}

// HasAudd reports whether the AUdD recognition source is configured.
func (c *Config) HasAudd() bool {
	return c.AuddAPIToken != ""
}

// HasOpenAI reports whether the generative fallback source is configured.
func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
