// Package config loads the process configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/planfest/planfest-auth/providers"
)

var ErrMissingProviders = errors.New("config: no oauth provider is configured")

type Config struct {
	AppName string `env:"APP_NAME" envDefault:"planfest-auth"`
	Env     string `env:"APP_ENV" envDefault:"development"`
	Port    int    `env:"PORT" envDefault:"8080"`
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Session   SessionConfig   `envPrefix:"SESSION_"`
	Login     LoginConfig     `envPrefix:"LOGIN_"`
	Directory DirectoryConfig `envPrefix:"DIRECTORY_"`

	Google    ProviderConfig `envPrefix:"GOOGLE_"`
	Microsoft ProviderConfig `envPrefix:"MICROSOFT_"`
	Meta      ProviderConfig `envPrefix:"META_"`

	Upstreams UpstreamConfig `envPrefix:"UPSTREAM_"`
}

type SessionConfig struct {
	// Secret signs the session cookie. At least 32 bytes.
	Secret        string        `env:"SECRET,required,notEmpty"`
	TTL           time.Duration `env:"TTL" envDefault:"12h"`
	RefreshWithin time.Duration `env:"REFRESH_WITHIN" envDefault:"1h"`
	// CookieSecure is off only for local development over plain http.
	CookieSecure bool `env:"COOKIE_SECURE" envDefault:"true"`
}

type LoginConfig struct {
	// StateKey seals the login transaction cookie, base64-encoded 32 bytes.
	StateKey string `env:"STATE_KEY,required,notEmpty"`
	// TransactionTTL bounds how long a pending login redirect stays valid.
	TransactionTTL time.Duration `env:"TRANSACTION_TTL" envDefault:"10m"`
}

type DirectoryConfig struct {
	BaseURL  string        `env:"BASE_URL,required,notEmpty"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"30s"`
}

type ProviderConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
}

// UpstreamConfig names the role-area application servers the gateway fronts.
// An empty URL leaves that area unproxied.
type UpstreamConfig struct {
	Organizer string `env:"ORGANIZER_URL"`
	Supplier  string `env:"SUPPLIER_URL"`
	Buyer     string `env:"BUYER_URL"`
}

// Load reads the .env file if present, then parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	if len(cfg.ProviderCredentials()) == 0 {
		return Config{}, ErrMissingProviders
	}
	return cfg, nil
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c Config) Development() bool {
	return c.Env == "development"
}

// ProviderCredentials returns the credential set for every provider with a
// configured client id. The redirect URL follows the callback route shape.
func (c Config) ProviderCredentials() map[providers.Name]providers.Credentials {
	creds := map[providers.Name]providers.Credentials{}
	for name, pc := range map[providers.Name]ProviderConfig{
		providers.Google:    c.Google,
		providers.Microsoft: c.Microsoft,
		providers.Meta:      c.Meta,
	} {
		if pc.ClientID == "" {
			continue
		}
		creds[name] = providers.Credentials{
			ClientID:     pc.ClientID,
			ClientSecret: pc.ClientSecret,
			RedirectURL:  fmt.Sprintf("%s/auth/callback/%s", c.BaseURL, name),
		}
	}
	return creds
}
