// Package api provides a client for the device provisioning service.
//
// The client handles:
// - Shared access signature authorization from a service connection string
// - Individual enrollment, enrollment group and registration state requests
// - Bulk enrollment operations
// - Mapping of non-success status codes to typed errors
//
// # Usage
//
// Create a client using NewClient with a credential provider:
//
//	client, err := api.NewClient("", http.DefaultClient, &keys.FileKeyProvider{KeyName: "my-service"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Create or update an individual enrollment:
//
//	tpm, err := attestation.NewTPMAttestation(endorsementKey, "")
//	if err != nil {
//		log.Fatal(err)
//	}
//	enrollment, err := api.NewIndividualEnrollment("device-01", tpm)
//	if err != nil {
//		log.Fatal(err)
//	}
//	stored, err := client.CreateOrUpdateIndividualEnrollment(ctx, enrollment)
//
// Failed requests return a *ServiceError that matches one of the sentinel
// errors with errors.Is:
//
//	if errors.Is(err, api.ErrNotFound) {
//		...
//	}
package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anchorageoss/provisioningclient/wire"
)

// ErrInvalidArgument is returned when an entity fails validation before it is
// sent, or when a service response cannot be decoded into one.
var ErrInvalidArgument = errors.New("invalid argument")

// Credential is a shared access policy of the provisioning service.
type Credential struct {
	HostName string
	KeyName  string
	// Key is the base64 encoded policy key.
	Key string
}

// CredentialProvider interface for providing service credentials
type CredentialProvider interface {
	GetCredential(ctx context.Context) (*Credential, error)
}

// ProvisioningStatus tells the service whether an enrollment may provision devices.
type ProvisioningStatus string

const (
	ProvisioningStatusEnabled  ProvisioningStatus = "enabled"
	ProvisioningStatusDisabled ProvisioningStatus = "disabled"
)

func (s ProvisioningStatus) valid() bool {
	return s == "" || s == ProvisioningStatusEnabled || s == ProvisioningStatusDisabled
}

// RegistrationStatus is the state of a device registration.
type RegistrationStatus string

const (
	RegistrationStatusUnassigned RegistrationStatus = "unassigned"
	RegistrationStatusAssigning  RegistrationStatus = "assigning"
	RegistrationStatusAssigned   RegistrationStatus = "assigned"
	RegistrationStatusFailed     RegistrationStatus = "failed"
	RegistrationStatusDisabled   RegistrationStatus = "disabled"
)

// BulkOperationMode selects what a bulk enrollment operation does.
type BulkOperationMode string

const (
	BulkOperationModeCreate            BulkOperationMode = "create"
	BulkOperationModeUpdate            BulkOperationMode = "update"
	BulkOperationModeUpdateIfMatchETag BulkOperationMode = "updateIfMatchETag"
	BulkOperationModeDelete            BulkOperationMode = "delete"
)

func (m BulkOperationMode) valid() bool {
	switch m {
	case BulkOperationModeCreate, BulkOperationModeUpdate, BulkOperationModeUpdateIfMatchETag, BulkOperationModeDelete:
		return true
	}
	return false
}

// Wire names shared by the entities.
const (
	fieldRegistrationID     = "registrationId"
	fieldEnrollmentGroupID  = "enrollmentGroupId"
	fieldDeviceID           = "deviceId"
	fieldAttestation        = "attestation"
	fieldIoTHubHostName     = "iotHubHostName"
	fieldInitialTwin        = "initialTwin"
	fieldProvisioningStatus = "provisioningStatus"
	fieldETag               = "etag"
	fieldCreated            = "createdDateTimeUtc"
	fieldLastUpdated        = "lastUpdatedDateTimeUtc"
	fieldRegistrationState  = "registrationState"
	fieldAssignedHub        = "assignedHub"
	fieldStatus             = "status"
	fieldErrorCode          = "errorCode"
	fieldErrorMessage       = "errorMessage"
	fieldErrorStatus        = "errorStatus"
	fieldMode               = "mode"
	fieldEnrollments        = "enrollments"
	fieldIsSuccessful       = "isSuccessful"
	fieldErrors             = "errors"
)

func putTime(out map[string]any, key string, t time.Time) {
	if !t.IsZero() {
		out[key] = wire.FormatDateTime(t)
	}
}

func putString(out map[string]any, key, value string) {
	if value != "" {
		out[key] = value
	}
}

func timeField(obj map[string]any, key string) (time.Time, error) {
	s, err := wire.StringField(obj, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if s == "" {
		return time.Time{}, nil
	}
	t, err := wire.ParseDateTime(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %w", ErrInvalidArgument, key, err)
	}
	return t, nil
}

// stringFields reads several optional string fields at once.
func stringFields(obj map[string]any, dst map[string]*string) error {
	for key, ptr := range dst {
		s, err := wire.StringField(obj, key)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		*ptr = s
	}
	return nil
}
