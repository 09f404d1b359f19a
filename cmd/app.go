package cmd

import (
	"github.com/urfave/cli/v3"

	"github.com/anchorageoss/provisioningclient/logging"
)

// App creates the root command with the global flags shared by every
// subcommand.
func App() *cli.Command {
	return &cli.Command{
		Name:    "provisioning",
		Usage:   "Device provisioning service client",
		Version: logging.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to a YAML configuration file",
				Sources: cli.EnvVars("PROVISIONING_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "Log in JSON format",
			},
			&cli.BoolFlag{
				Name:  "log-debug",
				Usage: "Log debug messages",
			},
			&cli.BoolFlag{
				Name:  "log-uid",
				Usage: "Attach a random uid to every log line of this run",
			},
			&cli.StringFlag{
				Name:  "log-service",
				Usage: "Service name attached to every log line",
			},
		},
		Commands: []*cli.Command{
			AttestationCommand(),
			TwinCommand(),
			EnrollmentCommand(),
			GroupCommand(),
			RegistrationCommand(),
			KeysCommand(),
		},
	}
}
