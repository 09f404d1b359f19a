// Package config loads the CLI configuration file.
//
// The file is YAML:
//
//	host: contoso.azure-devices-provisioning.net
//	keyName: provisioningserviceowner
//	apiVersion: "2021-10-01"
//	timeout: 30s
//	log:
//	  json: true
//	  debug: false
//	  service: provisioning-cli
//
// keyName selects a connection string file under ~/.config/provisioning/keys.
// connectionString may be given inline instead; setting both is an error.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/anchorageoss/provisioningclient/api"
	"github.com/anchorageoss/provisioningclient/keys"
	"github.com/anchorageoss/provisioningclient/wire"
)

const defaultTimeout = 30 * time.Second

// ErrInvalidConfig is returned when the configuration file fails validation.
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Host             string        `yaml:"host"`
	KeyName          string        `yaml:"keyName"`
	ConnectionString string        `yaml:"connectionString"`
	APIVersion       string        `yaml:"apiVersion"`
	Timeout          time.Duration `yaml:"timeout"`
	Log              LogConfig     `yaml:"log"`
}

type LogConfig struct {
	JSON    bool   `yaml:"json"`
	Debug   bool   `yaml:"debug"`
	Service string `yaml:"service"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		APIVersion: api.DefaultAPIVersion,
		Timeout:    defaultTimeout,
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML configuration. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.APIVersion == "" {
		cfg.APIVersion = api.DefaultAPIVersion
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.KeyName != "" && c.ConnectionString != "" {
		return fmt.Errorf("%w: keyName and connectionString are mutually exclusive", ErrInvalidConfig)
	}
	if c.Host != "" {
		if err := wire.ValidateHostName(c.Host); err != nil {
			return fmt.Errorf("%w: host: %w", ErrInvalidConfig, err)
		}
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

// CredentialProvider returns the provider selected by the configuration, or
// nil when neither keyName nor connectionString is set.
func (c *Config) CredentialProvider() api.CredentialProvider {
	switch {
	case c.ConnectionString != "":
		return &keys.StaticKeyProvider{ConnectionString: c.ConnectionString}
	case c.KeyName != "":
		return &keys.FileKeyProvider{KeyName: c.KeyName}
	default:
		return nil
	}
}

// HostURI returns the service base URI, or "" to derive it from the credential.
func (c *Config) HostURI() string {
	if c.Host == "" {
		return ""
	}
	return "https://" + c.Host
}
