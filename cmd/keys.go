package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/anchorageoss/provisioningclient/crypto"
)

// KeysCommand creates the keys command
func KeysCommand() *cli.Command {
	return &cli.Command{
		Name:  "keys",
		Usage: "Generate and derive symmetric attestation keys",
		Commands: []*cli.Command{
			generateKeyCommand(),
			deriveKeyCommand(),
		},
	}
}

func generateKeyCommand() *cli.Command {
	return &cli.Command{
		Name:   "generate",
		Usage:  "Generate a random base64 symmetric key",
		Action: runGenerateKeyCommand,
	}
}

func runGenerateKeyCommand(ctx context.Context, cmd *cli.Command) error {
	key, err := crypto.GenerateSymmetricKey()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.Root().Writer, key)
	return err
}

func deriveKeyCommand() *cli.Command {
	return &cli.Command{
		Name:  "derive",
		Usage: "Derive a device key from an enrollment group key",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "group-key",
				Usage:    "Base64 enrollment group key",
				Required: true,
				Sources:  cli.EnvVars("PROVISIONING_GROUP_KEY"),
			},
			&cli.StringFlag{
				Name:     "registration-id",
				Usage:    "Registration ID of the device",
				Required: true,
			},
		},
		Action: runDeriveKeyCommand,
	}
}

func runDeriveKeyCommand(ctx context.Context, cmd *cli.Command) error {
	key, err := crypto.DeriveDeviceKey(cmd.String("group-key"), cmd.String("registration-id"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.Root().Writer, key)
	return err
}
