package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/anchorageoss/provisioningclient/attestation"
	"github.com/anchorageoss/provisioningclient/inspect"
)

// AttestationCommand creates the attestation command
func AttestationCommand() *cli.Command {
	return &cli.Command{
		Name:  "attestation",
		Usage: "Inspect attestation mechanisms and certificates offline",
		Commands: []*cli.Command{
			inspectAttestationCommand(),
			certificateInfoCommand(),
		},
	}
}

func inspectAttestationCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Decode and validate an attestation mechanism document (JSON or YAML)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Usage:    "Path to the attestation document, or - for stdin",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the normalized wire form instead of a summary",
			},
		},
		Action: runInspectAttestationCommand,
	}
}

func runInspectAttestationCommand(ctx context.Context, cmd *cli.Command) error {
	doc, err := readDocument(cmd, cmd.String("file"))
	if err != nil {
		return err
	}

	mechanism, err := attestation.DecodeMechanism(doc)
	if err != nil {
		return fmt.Errorf("invalid attestation mechanism: %w", err)
	}

	w := cmd.Root().Writer
	if cmd.Bool("json") {
		return writeJSON(w, mechanism.ToJSON())
	}
	_, err = fmt.Fprint(w, inspect.NewFormatter().FormatMechanism(mechanism, ""))
	return err
}

func certificateInfoCommand() *cli.Command {
	return &cli.Command{
		Name:  "certificate-info",
		Usage: "Show the info block the service would report for a PEM certificate",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Usage:    "Path to the PEM certificate",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the info block in its wire form",
			},
		},
		Action: runCertificateInfoCommand,
	}
}

func runCertificateInfoCommand(ctx context.Context, cmd *cli.Command) error {
	data, err := os.ReadFile(cmd.String("file"))
	if err != nil {
		return fmt.Errorf("failed to read certificate: %w", err)
	}

	info, err := attestation.ParseCertificateInfo(string(data))
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	if cmd.Bool("json") {
		return writeJSON(w, info.ToJSON())
	}
	_, err = fmt.Fprint(w, inspect.NewFormatter().FormatCertificateInfo(info, ""))
	return err
}
