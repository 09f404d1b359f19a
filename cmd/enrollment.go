package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/anchorageoss/provisioningclient/api"
	"github.com/anchorageoss/provisioningclient/attestation"
	"github.com/anchorageoss/provisioningclient/inspect"
	"github.com/anchorageoss/provisioningclient/wire"
)

// EnrollmentCommand creates the enrollment command
func EnrollmentCommand() *cli.Command {
	return &cli.Command{
		Name:  "enrollment",
		Usage: "Manage individual enrollments",
		Commands: []*cli.Command{
			getEnrollmentCommand(),
			createEnrollmentCommand(),
			deleteEnrollmentCommand(),
			bulkEnrollmentCommand(),
		},
	}
}

func registrationIDFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "registration-id",
		Usage:    "Registration ID of the device",
		Required: required,
	}
}

func etagFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "etag",
		Usage: "Only apply the change if the record still has this ETag",
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Print the wire form instead of a summary",
	}
}

func getEnrollmentCommand() *cli.Command {
	return &cli.Command{
		Name:   "get",
		Usage:  "Get an individual enrollment",
		Flags:  append(serviceFlags(), registrationIDFlag(true), jsonFlag()),
		Action: runGetEnrollmentCommand,
	}
}

func runGetEnrollmentCommand(ctx context.Context, cmd *cli.Command) error {
	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}

	enrollment, err := client.GetIndividualEnrollment(ctx, cmd.String("registration-id"))
	if err != nil {
		return fmt.Errorf("failed to get enrollment: %w", err)
	}
	return printEnrollment(cmd, enrollment)
}

func printEnrollment(cmd *cli.Command, enrollment *api.IndividualEnrollment) error {
	w := cmd.Root().Writer
	if cmd.Bool("json") {
		return writeJSON(w, enrollment.ToJSON())
	}
	_, err := fmt.Fprint(w, inspect.NewFormatter().FormatIndividualEnrollment(enrollment))
	return err
}

func createEnrollmentCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create or update an individual enrollment",
		Description: "With --file the enrollment document is sent as is. Otherwise a symmetric key\n" +
			"enrollment is created; keys left empty are generated by the service and a\n" +
			"missing registration ID is replaced with a random one.",
		Flags: append(serviceFlags(),
			&cli.StringFlag{
				Name:  "file",
				Usage: "Path to an enrollment document (JSON or YAML), or - for stdin",
			},
			registrationIDFlag(false),
			&cli.StringFlag{
				Name:  "primary-key",
				Usage: "Base64 primary symmetric key",
			},
			&cli.StringFlag{
				Name:  "secondary-key",
				Usage: "Base64 secondary symmetric key",
			},
			&cli.StringFlag{
				Name:  "iot-hub",
				Usage: "IoT hub the device is assigned to",
			},
			&cli.BoolFlag{
				Name:  "disabled",
				Usage: "Create the enrollment with provisioning disabled",
			},
			jsonFlag(),
		),
		Action: runCreateEnrollmentCommand,
	}
}

func runCreateEnrollmentCommand(ctx context.Context, cmd *cli.Command) error {
	enrollment, err := enrollmentFromFlags(cmd)
	if err != nil {
		return err
	}

	client, logger, err := newClient(cmd)
	if err != nil {
		return err
	}

	created, err := client.CreateOrUpdateIndividualEnrollment(ctx, enrollment)
	if err != nil {
		return fmt.Errorf("failed to create enrollment: %w", err)
	}
	logger.Info("enrollment stored", "registration_id", created.RegistrationID, "etag", created.ETag)
	return printEnrollment(cmd, created)
}

func enrollmentFromFlags(cmd *cli.Command) (*api.IndividualEnrollment, error) {
	if path := cmd.String("file"); path != "" {
		doc, err := readDocument(cmd, path)
		if err != nil {
			return nil, err
		}
		enrollment, err := api.DecodeIndividualEnrollment(doc)
		if err != nil {
			return nil, fmt.Errorf("invalid enrollment document: %w", err)
		}
		return enrollment, nil
	}

	registrationID := cmd.String("registration-id")
	if registrationID == "" {
		registrationID = uuid.NewString()
	}

	enrollment, err := api.NewIndividualEnrollment(registrationID,
		attestation.NewSymmetricKeyAttestation(cmd.String("primary-key"), cmd.String("secondary-key")))
	if err != nil {
		return nil, err
	}
	enrollment.IoTHubHostName = cmd.String("iot-hub")
	if cmd.Bool("disabled") {
		enrollment.ProvisioningStatus = api.ProvisioningStatusDisabled
	}
	return enrollment, nil
}

func deleteEnrollmentCommand() *cli.Command {
	return &cli.Command{
		Name:   "delete",
		Usage:  "Delete an individual enrollment",
		Flags:  append(serviceFlags(), registrationIDFlag(true), etagFlag()),
		Action: runDeleteEnrollmentCommand,
	}
}

func runDeleteEnrollmentCommand(ctx context.Context, cmd *cli.Command) error {
	client, logger, err := newClient(cmd)
	if err != nil {
		return err
	}

	registrationID := cmd.String("registration-id")
	if err := client.DeleteIndividualEnrollment(ctx, registrationID, cmd.String("etag")); err != nil {
		return fmt.Errorf("failed to delete enrollment: %w", err)
	}
	logger.Info("enrollment deleted", "registration_id", registrationID)
	return nil
}

func bulkEnrollmentCommand() *cli.Command {
	return &cli.Command{
		Name:  "bulk",
		Usage: "Apply one operation to a list of individual enrollments",
		Flags: append(serviceFlags(),
			&cli.StringFlag{
				Name:     "file",
				Usage:    "Path to a JSON or YAML list of enrollments, or - for stdin",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "create, update, updateIfMatchETag or delete",
				Value: string(api.BulkOperationModeCreate),
			},
		),
		Action: runBulkEnrollmentCommand,
	}
}

func runBulkEnrollmentCommand(ctx context.Context, cmd *cli.Command) error {
	doc, err := readDocument(cmd, cmd.String("file"))
	if err != nil {
		return err
	}

	items, ok := doc.([]any)
	if !ok {
		obj, isObj := wire.Object(doc)
		if isObj {
			items, ok = obj["enrollments"].([]any)
		}
		if !ok {
			return errors.New("bulk document must be a list of enrollments or an object with an enrollments list")
		}
	}

	op := &api.BulkEnrollmentOperation{Mode: api.BulkOperationMode(cmd.String("mode"))}
	for i, item := range items {
		enrollment, err := api.DecodeIndividualEnrollment(item)
		if err != nil {
			return fmt.Errorf("invalid enrollment at index %d: %w", i, err)
		}
		op.Enrollments = append(op.Enrollments, enrollment)
	}

	client, logger, err := newClient(cmd)
	if err != nil {
		return err
	}

	result, err := client.RunBulkEnrollmentOperation(ctx, op)
	if err != nil {
		return fmt.Errorf("bulk operation failed: %w", err)
	}

	w := cmd.Root().Writer
	if result.IsSuccessful {
		logger.Info("bulk operation succeeded", "mode", op.Mode, "count", len(op.Enrollments))
		_, err = fmt.Fprintf(w, "✓ %s applied to %d enrollments\n", op.Mode, len(op.Enrollments))
		return err
	}

	for _, e := range result.Errors {
		fmt.Fprintf(w, "✗ %s: %d %s\n", e.RegistrationID, e.ErrorCode, e.ErrorStatus)
	}
	return fmt.Errorf("bulk operation failed for %d of %d enrollments", len(result.Errors), len(op.Enrollments))
}

// GroupCommand creates the group command
func GroupCommand() *cli.Command {
	groupIDFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:     "group-id",
			Usage:    "Enrollment group ID",
			Required: true,
		}
	}

	return &cli.Command{
		Name:  "group",
		Usage: "Manage enrollment groups",
		Commands: []*cli.Command{
			{
				Name:   "get",
				Usage:  "Get an enrollment group",
				Flags:  append(serviceFlags(), groupIDFlag(), jsonFlag()),
				Action: runGetGroupCommand,
			},
			{
				Name:  "create",
				Usage: "Create or update an enrollment group from a document",
				Flags: append(serviceFlags(),
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Path to an enrollment group document (JSON or YAML), or - for stdin",
						Required: true,
					},
					jsonFlag(),
				),
				Action: runCreateGroupCommand,
			},
			{
				Name:   "delete",
				Usage:  "Delete an enrollment group",
				Flags:  append(serviceFlags(), groupIDFlag(), etagFlag()),
				Action: runDeleteGroupCommand,
			},
		},
	}
}

func printGroup(cmd *cli.Command, group *api.EnrollmentGroup) error {
	w := cmd.Root().Writer
	if cmd.Bool("json") {
		return writeJSON(w, group.ToJSON())
	}
	_, err := fmt.Fprint(w, inspect.NewFormatter().FormatEnrollmentGroup(group))
	return err
}

func runGetGroupCommand(ctx context.Context, cmd *cli.Command) error {
	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}

	group, err := client.GetEnrollmentGroup(ctx, cmd.String("group-id"))
	if err != nil {
		return fmt.Errorf("failed to get enrollment group: %w", err)
	}
	return printGroup(cmd, group)
}

func runCreateGroupCommand(ctx context.Context, cmd *cli.Command) error {
	doc, err := readDocument(cmd, cmd.String("file"))
	if err != nil {
		return err
	}
	group, err := api.DecodeEnrollmentGroup(doc)
	if err != nil {
		return fmt.Errorf("invalid enrollment group document: %w", err)
	}

	client, logger, err := newClient(cmd)
	if err != nil {
		return err
	}

	created, err := client.CreateOrUpdateEnrollmentGroup(ctx, group)
	if err != nil {
		return fmt.Errorf("failed to create enrollment group: %w", err)
	}
	logger.Info("enrollment group stored", "enrollment_group_id", created.EnrollmentGroupID, "etag", created.ETag)
	return printGroup(cmd, created)
}

func runDeleteGroupCommand(ctx context.Context, cmd *cli.Command) error {
	client, logger, err := newClient(cmd)
	if err != nil {
		return err
	}

	groupID := cmd.String("group-id")
	if err := client.DeleteEnrollmentGroup(ctx, groupID, cmd.String("etag")); err != nil {
		return fmt.Errorf("failed to delete enrollment group: %w", err)
	}
	logger.Info("enrollment group deleted", "enrollment_group_id", groupID)
	return nil
}

// RegistrationCommand creates the registration command
func RegistrationCommand() *cli.Command {
	return &cli.Command{
		Name:  "registration",
		Usage: "Inspect device registration states",
		Commands: []*cli.Command{
			{
				Name:   "get",
				Usage:  "Get the registration state of a device",
				Flags:  append(serviceFlags(), registrationIDFlag(true)),
				Action: runGetRegistrationCommand,
			},
			{
				Name:   "delete",
				Usage:  "Delete the registration state of a device",
				Flags:  append(serviceFlags(), registrationIDFlag(true), etagFlag()),
				Action: runDeleteRegistrationCommand,
			},
		},
	}
}

func runGetRegistrationCommand(ctx context.Context, cmd *cli.Command) error {
	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}

	state, err := client.GetDeviceRegistrationState(ctx, cmd.String("registration-id"))
	if err != nil {
		return fmt.Errorf("failed to get registration state: %w", err)
	}
	_, err = fmt.Fprint(cmd.Root().Writer, inspect.NewFormatter().FormatRegistrationState(state, ""))
	return err
}

func runDeleteRegistrationCommand(ctx context.Context, cmd *cli.Command) error {
	client, logger, err := newClient(cmd)
	if err != nil {
		return err
	}

	registrationID := cmd.String("registration-id")
	if err := client.DeleteDeviceRegistrationState(ctx, registrationID, cmd.String("etag")); err != nil {
		return fmt.Errorf("failed to delete registration state: %w", err)
	}
	logger.Info("registration state deleted", "registration_id", registrationID)
	return nil
}
