package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anchorageoss/provisioningclient/testdata"
	"github.com/anchorageoss/provisioningclient/twin"
)

const plainTwin = `{
	"tags": {"building": "43", "floor": 2},
	"properties": {"desired": {"MaxSpeed": {"Value": 500}}}
}`

func TestTwinCommand(t *testing.T) {
	cmd := TwinCommand()

	require.Equal(t, "twin", cmd.Name)
	require.Len(t, cmd.Commands, 1)
	require.Equal(t, "render", cmd.Commands[0].Name)
}

func TestRenderTwinCommand(t *testing.T) {
	jsonPath := writeFile(t, "twin.json", testdata.TwinJSON)
	yamlPath := writeFile(t, "twin.yaml", testdata.TwinYAML)

	t.Run("strips metadata", func(t *testing.T) {
		for _, path := range []string{jsonPath, yamlPath} {
			out, _, err := runApp(t, "twin", "render", "--file", path)
			require.NoError(t, err)
			require.JSONEq(t, plainTwin, out)
		}
	})

	t.Run("keeps metadata", func(t *testing.T) {
		for _, path := range []string{jsonPath, yamlPath} {
			out, _, err := runApp(t, "twin", "render", "--file", path, "--metadata")
			require.NoError(t, err)
			require.JSONEq(t, string(testdata.TwinJSON), out)
		}
	})

	t.Run("malformed metadata", func(t *testing.T) {
		path := writeFile(t, "bad.json", []byte(`{"tags": {"$metadata": {"$lastUpdated": 7}}}`))

		_, _, err := runApp(t, "twin", "render", "--file", path)
		require.ErrorIs(t, err, twin.ErrMalformedMetadata)
	})

	t.Run("missing file flag", func(t *testing.T) {
		_, _, err := runApp(t, "twin", "render")
		require.Error(t, err)
	})
}
