package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anchorageoss/provisioningclient/cmd"
)

func TestMainApp(t *testing.T) {
	t.Run("help command", func(t *testing.T) {
		var buf bytes.Buffer

		app := cmd.App()
		app.Writer = &buf

		err := app.Run(context.Background(), []string{"provisioning", "--help"})
		require.NoError(t, err)

		output := buf.String()
		require.Contains(t, output, "provisioning")
		require.Contains(t, output, "COMMANDS:")
		require.Contains(t, output, "enrollment")
	})

	t.Run("unknown command", func(t *testing.T) {
		var buf bytes.Buffer

		app := cmd.App()
		app.Writer = &buf
		app.ErrWriter = &buf

		commandNames := make(map[string]bool)
		for _, c := range app.Commands {
			commandNames[c.Name] = true
		}
		require.False(t, commandNames["invalid-command"])
	})
}

// TestMainCommands verifies that all commands are properly registered
func TestMainCommands(t *testing.T) {
	testCases := []struct {
		name     string
		args     []string
		contains string
	}{
		{
			name:     "attestation help",
			args:     []string{"provisioning", "attestation", "--help"},
			contains: "certificate-info",
		},
		{
			name:     "twin help",
			args:     []string{"provisioning", "twin", "--help"},
			contains: "render",
		},
		{
			name:     "enrollment help",
			args:     []string{"provisioning", "enrollment", "--help"},
			contains: "bulk",
		},
		{
			name:     "group help",
			args:     []string{"provisioning", "group", "--help"},
			contains: "delete",
		},
		{
			name:     "registration help",
			args:     []string{"provisioning", "registration", "--help"},
			contains: "get",
		},
		{
			name:     "keys help",
			args:     []string{"provisioning", "keys", "--help"},
			contains: "derive",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer

			app := cmd.App()
			app.Writer = &buf
			app.ErrWriter = &buf

			err := app.Run(context.Background(), tc.args)
			require.NoError(t, err)
			require.Contains(t, buf.String(), tc.contains)
		})
	}
}
