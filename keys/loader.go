// Package keys provides service credential loading and management.
//
// This package implements the api.CredentialProvider interface for loading
// provisioning service shared access policies from connection strings.
//
// # Connection String Format
//
// A connection string is a ';' separated list of key=value pairs:
//
//	HostName=<service>.azure-devices-provisioning.net;SharedAccessKeyName=<policy>;SharedAccessKey=<base64 key>
//
// # Loading Keys
//
// Connection strings are stored in ~/.config/provisioning/keys/ as
// <key-name>.connstr. Load one using the FileKeyProvider:
//
//	provider := &keys.FileKeyProvider{KeyName: "my-service"}
//	credential, err := provider.GetCredential(context.Background())
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Or use a connection string from configuration directly:
//
//	provider := &keys.StaticKeyProvider{ConnectionString: connStr}
package keys

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/anchorageoss/provisioningclient/api"
	"github.com/anchorageoss/provisioningclient/wire"
)

const (
	fieldHostName            = "HostName"
	fieldSharedAccessKeyName = "SharedAccessKeyName"
	fieldSharedAccessKey     = "SharedAccessKey"

	connectionStringExt = ".connstr"
)

// ErrInvalidConnectionString is returned when a connection string is missing
// a field or carries a malformed value.
var ErrInvalidConnectionString = errors.New("invalid connection string")

// FileKeyProvider implements api.CredentialProvider by reading from files
type FileKeyProvider struct {
	KeyName string
	// Dir overrides the default key directory.
	Dir string
}

// GetCredential loads the credential from the key file
func (f *FileKeyProvider) GetCredential(ctx context.Context) (*api.Credential, error) {
	if f.Dir != "" {
		return loadCredentialFromDir(f.Dir, f.KeyName)
	}
	return LoadCredentialFromFile(f.KeyName)
}

// StaticKeyProvider implements api.CredentialProvider from an in-memory
// connection string.
type StaticKeyProvider struct {
	ConnectionString string
}

func (s *StaticKeyProvider) GetCredential(ctx context.Context) (*api.Credential, error) {
	return ParseConnectionString(s.ConnectionString)
}

// DefaultDir returns the directory key files are read from.
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "provisioning", "keys"), nil
}

// LoadCredentialFromFile loads the named connection string from the default
// key directory
func LoadCredentialFromFile(keyName string) (*api.Credential, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return loadCredentialFromDir(dir, keyName)
}

func loadCredentialFromDir(dir, keyName string) (*api.Credential, error) {
	if keyName == "" {
		return nil, errors.New("key name must not be empty")
	}
	if strings.ContainsAny(keyName, `/\`) {
		return nil, fmt.Errorf("invalid key name %q", keyName)
	}

	data, err := os.ReadFile(filepath.Join(dir, keyName+connectionStringExt))
	if err != nil {
		return nil, fmt.Errorf("failed to read connection string file: %w", err)
	}

	credential, err := ParseConnectionString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("key %q: %w", keyName, err)
	}
	return credential, nil
}

// ParseConnectionString parses a service connection string.
func ParseConnectionString(connStr string) (*api.Credential, error) {
	fields := map[string]string{}
	for _, part := range strings.Split(connStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		// Base64 keys end in '=', so split on the first one only.
		name, value, ok := strings.Cut(part, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: malformed segment %q", ErrInvalidConnectionString, part)
		}
		fields[name] = value
	}

	for _, required := range []string{fieldHostName, fieldSharedAccessKeyName, fieldSharedAccessKey} {
		if fields[required] == "" {
			return nil, fmt.Errorf("%w: missing %s", ErrInvalidConnectionString, required)
		}
	}

	if err := wire.ValidateHostName(fields[fieldHostName]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConnectionString, err)
	}
	if _, err := base64.StdEncoding.DecodeString(fields[fieldSharedAccessKey]); err != nil {
		return nil, fmt.Errorf("%w: %s is not valid base64: %w", ErrInvalidConnectionString, fieldSharedAccessKey, err)
	}

	return &api.Credential{
		HostName: fields[fieldHostName],
		KeyName:  fields[fieldSharedAccessKeyName],
		Key:      fields[fieldSharedAccessKey],
	}, nil
}
