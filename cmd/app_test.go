package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/anchorageoss/provisioningclient/api"
)

const testConnectionString = "HostName=contoso.azure-devices-provisioning.net;" +
	"SharedAccessKeyName=provisioningserviceowner;SharedAccessKey=dGVzdC1rZXk="

// Mock implementations for testing

type mockHTTPClient struct {
	status int
	body   string

	requests []*http.Request
	bodies   []string
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.requests = append(m.requests, req)
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}
	m.bodies = append(m.bodies, string(body))

	return &http.Response{
		StatusCode: m.status,
		Body:       io.NopCloser(strings.NewReader(m.body)),
	}, nil
}

func (m *mockHTTPClient) lastRequest(t *testing.T) *http.Request {
	t.Helper()
	require.NotEmpty(t, m.requests)
	return m.requests[len(m.requests)-1]
}

func useMockHTTPClient(t *testing.T, m *mockHTTPClient) {
	t.Helper()
	previous := newHTTPClient
	newHTTPClient = func(time.Duration) api.HTTPClient { return m }
	t.Cleanup(func() { newHTTPClient = previous })
}

// runApp runs the CLI and returns what it wrote to stdout and stderr.
func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := App()
	app.Writer = &stdout
	app.ErrWriter = &stderr

	err := app.Run(context.Background(), append([]string{"provisioning"}, args...))
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func TestApp(t *testing.T) {
	app := App()

	require.Equal(t, "provisioning", app.Name)
	require.NotEmpty(t, app.Usage)

	var names []string
	for _, c := range app.Commands {
		names = append(names, c.Name)
	}
	require.Equal(t, []string{"attestation", "twin", "enrollment", "group", "registration", "keys"}, names)

	var hasConfig, hasLogJSON, hasLogDebug, hasLogUID, hasLogService bool
	for _, flag := range app.Flags {
		switch f := flag.(type) {
		case *cli.StringFlag:
			if f.Name == "config" {
				hasConfig = true
			}
			if f.Name == "log-service" {
				hasLogService = true
			}
		case *cli.BoolFlag:
			if f.Name == "log-json" {
				hasLogJSON = true
			}
			if f.Name == "log-debug" {
				hasLogDebug = true
			}
			if f.Name == "log-uid" {
				hasLogUID = true
			}
		}
	}

	require.True(t, hasConfig, "Should have --config flag")
	require.True(t, hasLogJSON, "Should have --log-json flag")
	require.True(t, hasLogDebug, "Should have --log-debug flag")
	require.True(t, hasLogUID, "Should have --log-uid flag")
	require.True(t, hasLogService, "Should have --log-service flag")
}

func TestServiceFlags(t *testing.T) {
	flags := serviceFlags()
	require.Len(t, flags, 3)

	for _, flag := range flags {
		f, ok := flag.(*cli.StringFlag)
		require.True(t, ok)
		require.False(t, f.Required, "%s must be optional so --config can supply it", f.Name)
	}
}

func TestReadDocument(t *testing.T) {
	cmd := &cli.Command{}

	t.Run("json", func(t *testing.T) {
		doc, err := readDocument(cmd, writeFile(t, "doc.json", []byte(`{"a": 1}`)))
		require.NoError(t, err)
		require.Equal(t, map[string]any{"a": json.Number("1")}, doc)
	})

	t.Run("yaml", func(t *testing.T) {
		doc, err := readDocument(cmd, writeFile(t, "doc.yml", []byte("a: 1\nb: [x, true]\n")))
		require.NoError(t, err)
		require.Equal(t, map[string]any{"a": json.Number("1"), "b": []any{"x", true}}, doc)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := readDocument(cmd, filepath.Join(t.TempDir(), "missing.json"))
		require.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := readDocument(cmd, writeFile(t, "doc.yaml", []byte("a: [")))
		require.Error(t, err)
	})
}
