package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/anchorageoss/provisioningclient/twin"
)

// TwinCommand creates the twin command
func TwinCommand() *cli.Command {
	return &cli.Command{
		Name:  "twin",
		Usage: "Work with initial twin documents",
		Commands: []*cli.Command{
			renderTwinCommand(),
		},
	}
}

func renderTwinCommand() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "Validate a twin document (JSON or YAML) and print its wire form",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Usage:    "Path to the twin document, or - for stdin",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "metadata",
				Usage: "Keep $metadata and $version annotations in the output",
			},
		},
		Action: runRenderTwinCommand,
	}
}

func runRenderTwinCommand(ctx context.Context, cmd *cli.Command) error {
	doc, err := readDocument(cmd, cmd.String("file"))
	if err != nil {
		return err
	}

	state, err := twin.DecodeState(doc)
	if err != nil {
		return fmt.Errorf("invalid twin document: %w", err)
	}

	if cmd.Bool("metadata") {
		return writeJSON(cmd.Root().Writer, state.ToJSONWithMetadata())
	}
	return writeJSON(cmd.Root().Writer, state.ToJSON())
}
