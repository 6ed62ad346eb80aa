package cmsclient

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/manas-swain-001/cms-client/pkg/constants"
)

// Config wires the whole client. Zero values are filled from the
// environment, then from defaults.
type Config struct {
	// BaseURL is the API root, e.g. https://hr.example.com/api.
	BaseURL string `yaml:"base_url"`
	// SocketURL overrides the derived realtime endpoint.
	SocketURL string `yaml:"socket_url"`
	// StorePath is the location of the obfuscated local store file.
	StorePath string `yaml:"store_path"`
	// StoreSecret keys the store obfuscation. Derived from StorePath if empty.
	StoreSecret string `yaml:"store_secret"`
	// Retries is the request client's retry budget.
	Retries int `yaml:"retries"`
	// Debug enables request logging.
	Debug bool `yaml:"debug"`
}

// GetEnvOrDefault returns the environment value for key, or defaultValue
// when unset or empty.
func GetEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// LoadConfig builds a Config from an optional YAML file named by CMS_CONFIG,
// with environment variables taking precedence over file values.
func LoadConfig() (Config, error) {
	var cfg Config

	if path := os.Getenv("CMS_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.BaseURL = GetEnvOrDefault("CMS_API_BASE_URL", cfg.BaseURL)
	cfg.SocketURL = GetEnvOrDefault("CMS_SOCKET_URL", cfg.SocketURL)
	cfg.StorePath = GetEnvOrDefault("CMS_STORE_PATH", cfg.StorePath)
	cfg.StoreSecret = GetEnvOrDefault("CMS_STORE_SECRET", cfg.StoreSecret)
	if v := os.Getenv("CMS_DEBUG"); v != "" {
		cfg.Debug, _ = strconv.ParseBool(v)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = constants.DefaultAPIBaseURL
	}
	if c.StorePath == "" {
		c.StorePath = defaultStorePath()
	}
	if c.Retries == 0 {
		c.Retries = constants.DefaultRetries
	}
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "cms-client", "store.bin")
}
