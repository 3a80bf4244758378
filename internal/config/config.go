package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"

	"github.com/micahrl/cobsync/internal/cobbler"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "cobsync.toml"

// Config holds the connection settings for a Cobbler server.
type Config struct {
	Host          string `toml:"host" env:"COBBLER_HOST" env-description:"Cobbler server name or address (default 127.0.0.1)"`
	Port          int    `toml:"port" env:"COBBLER_PORT" env-description:"Cobbler port (default 443 with SSL, 80 without)"`
	Username      string `toml:"username" env:"COBBLER_USERNAME" env-description:"Cobbler username (default cobbler)"`
	Password      string `toml:"password" env:"COBBLER_PASSWORD" env-description:"Cobbler password"`
	UseSSL        bool   `toml:"use-ssl" env:"COBBLER_USE_SSL" env-description:"Use HTTPS (default true)"`
	ValidateCerts bool   `toml:"validate-certs" env:"COBBLER_VALIDATE_CERTS" env-description:"Validate TLS certificates (default true)"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Host:          "127.0.0.1",
		Username:      "cobbler",
		UseSSL:        true,
		ValidateCerts: true,
	}
}

// Load reads the defaults, then the TOML file at path, then the environment.
// A missing file is fine when optional is set. Keys in the file that are not
// recognised are returned so the caller can warn about them.
func Load(path string, optional bool) (Config, []string, error) {
	cfg := Default()

	var unknown []string
	_, err := os.Stat(path)
	switch {
	case os.IsNotExist(err) && optional:
		// no config file, use defaults and environment
	case err != nil:
		return cfg, nil, errors.Wrapf(err, "reading config file %s", path)
	default:
		meta, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return cfg, nil, errors.Wrapf(err, "reading config file %s", path)
		}
		for _, key := range meta.Undecoded() {
			unknown = append(unknown, key.String())
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, unknown, errors.Wrap(err, "reading config from environment")
	}
	return cfg, unknown, nil
}

// EnvUsage describes the environment variables Load understands.
func EnvUsage() string {
	var cfg Config
	usage, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return usage
}

// Validate checks that the settings can form a connection.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	return nil
}

// Conn returns the connection description for the cobbler client.
func (c Config) Conn() cobbler.Conn {
	return cobbler.Conn{
		Host:          strings.TrimSpace(c.Host),
		Port:          c.Port,
		UseSSL:        c.UseSSL,
		ValidateCerts: c.ValidateCerts,
	}
}
