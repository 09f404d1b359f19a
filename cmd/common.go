package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/anchorageoss/provisioningclient/api"
	"github.com/anchorageoss/provisioningclient/config"
	"github.com/anchorageoss/provisioningclient/logging"
	"github.com/anchorageoss/provisioningclient/wire"
)

// newHTTPClient is replaced in tests.
var newHTTPClient = func(timeout time.Duration) api.HTTPClient {
	return &http.Client{Timeout: timeout}
}

// serviceFlags are shared by every command that talks to the provisioning
// service. They override the values from --config.
func serviceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "host",
			Usage: "Provisioning service host name (defaults to the credential's HostName)",
		},
		&cli.StringFlag{
			Name:  "key-name",
			Usage: "Name of the connection string file under ~/.config/provisioning/keys",
		},
		&cli.StringFlag{
			Name:    "connection-string",
			Usage:   "Service connection string (HostName=...;SharedAccessKeyName=...;SharedAccessKey=...)",
			Sources: cli.EnvVars("PROVISIONING_CONNECTION_STRING"),
		},
	}
}

// loadConfig reads the --config file, if any, and applies flag overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	root := cmd.Root()

	cfg := config.Default()
	if path := root.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	switch {
	case cmd.IsSet("connection-string"):
		cfg.ConnectionString = cmd.String("connection-string")
		cfg.KeyName = ""
	case cmd.IsSet("key-name"):
		cfg.KeyName = cmd.String("key-name")
		cfg.ConnectionString = ""
	}

	if root.IsSet("log-json") {
		cfg.Log.JSON = root.Bool("log-json")
	}
	if root.IsSet("log-debug") {
		cfg.Log.Debug = root.Bool("log-debug")
	}
	if root.IsSet("log-service") {
		cfg.Log.Service = root.String("log-service")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cli.Command, cfg *config.Config) *slog.Logger {
	root := cmd.Root()
	return logging.Setup(logging.Options{
		Debug:   cfg.Log.Debug,
		JSON:    cfg.Log.JSON,
		Service: cfg.Log.Service,
		Version: logging.Version,
		UID:     root.Bool("log-uid"),
		Writer:  root.ErrWriter,
	})
}

// newClient builds a service client from the configuration and flags.
func newClient(cmd *cli.Command) (*api.Client, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	provider := cfg.CredentialProvider()
	if provider == nil {
		return nil, nil, errors.New("no credential configured: set --key-name or --connection-string")
	}

	client, err := api.NewClient(cfg.HostURI(), newHTTPClient(cfg.Timeout), provider)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create API client: %w", err)
	}

	logger := newLogger(cmd, cfg)
	client.APIVersion = cfg.APIVersion
	client.Logger = logger
	return client, logger, nil
}

// readDocument loads a JSON or YAML document into the generic tree used by
// the decoders. "-" reads from standard input as JSON.
func readDocument(cmd *cli.Command, path string) (any, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.Root().Reader)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML document: %w", err)
		}
		return wire.Normalize(doc)
	default:
		return wire.Parse(data)
	}
}

func writeJSON(w io.Writer, v any) error {
	out, err := wire.StringifyIndent(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
