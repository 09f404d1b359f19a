package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/anchorageoss/provisioningclient/attestation"
	"github.com/anchorageoss/provisioningclient/twin"
	"github.com/anchorageoss/provisioningclient/wire"
)

// IndividualEnrollment binds one device to an attestation mechanism.
type IndividualEnrollment struct {
	RegistrationID     string
	DeviceID           string
	Attestation        *attestation.Mechanism
	IoTHubHostName     string
	InitialTwin        *twin.State
	ProvisioningStatus ProvisioningStatus
	ETag               string

	// Set by the service.
	CreatedAt         time.Time
	LastUpdatedAt     time.Time
	RegistrationState *DeviceRegistrationState
}

// NewIndividualEnrollment creates an enabled enrollment for registrationID.
func NewIndividualEnrollment(registrationID string, a attestation.Attestation) (*IndividualEnrollment, error) {
	if err := wire.ValidateRegistrationID(registrationID); err != nil {
		return nil, fmt.Errorf("%w: registration ID: %w", ErrInvalidArgument, err)
	}
	mechanism, err := attestation.NewMechanism(a)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return &IndividualEnrollment{
		RegistrationID:     registrationID,
		Attestation:        mechanism,
		ProvisioningStatus: ProvisioningStatusEnabled,
	}, nil
}

// Validate checks the fields a caller sets before the enrollment is sent.
func (e *IndividualEnrollment) Validate() error {
	if err := wire.ValidateRegistrationID(e.RegistrationID); err != nil {
		return fmt.Errorf("%w: registration ID: %w", ErrInvalidArgument, err)
	}
	if e.Attestation == nil {
		return fmt.Errorf("%w: enrollment %q has no attestation", ErrInvalidArgument, e.RegistrationID)
	}
	return validateCommon(e.IoTHubHostName, e.ProvisioningStatus)
}

func (e *IndividualEnrollment) ToJSON() map[string]any {
	out := map[string]any{fieldRegistrationID: e.RegistrationID}
	putString(out, fieldDeviceID, e.DeviceID)
	putCommon(out, e.Attestation, e.IoTHubHostName, e.InitialTwin, e.ProvisioningStatus, e.ETag, e.CreatedAt, e.LastUpdatedAt)
	if e.RegistrationState != nil {
		out[fieldRegistrationState] = e.RegistrationState.ToJSON()
	}
	return out
}

// DecodeIndividualEnrollment builds an enrollment from a parsed JSON object.
func DecodeIndividualEnrollment(raw any) (*IndividualEnrollment, error) {
	obj, ok := wire.Object(raw)
	if !ok {
		return nil, fmt.Errorf("%w: enrollment must be an object, got %T", ErrInvalidArgument, raw)
	}

	e := &IndividualEnrollment{}
	if err := stringFields(obj, map[string]*string{
		fieldRegistrationID: &e.RegistrationID,
		fieldDeviceID:       &e.DeviceID,
	}); err != nil {
		return nil, err
	}

	c, err := decodeCommon(obj)
	if err != nil {
		return nil, fmt.Errorf("enrollment %q: %w", e.RegistrationID, err)
	}
	e.Attestation = c.attestation
	e.IoTHubHostName = c.hubHostName
	e.InitialTwin = c.initialTwin
	e.ProvisioningStatus = c.status
	e.ETag = c.etag
	e.CreatedAt = c.created
	e.LastUpdatedAt = c.lastUpdated

	stateRaw, err := wire.ObjectField(obj, fieldRegistrationState)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if stateRaw != nil {
		if e.RegistrationState, err = DecodeDeviceRegistrationState(stateRaw); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *IndividualEnrollment) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToJSON())
}

func (e *IndividualEnrollment) UnmarshalJSON(data []byte) error {
	raw, err := wire.Parse(data)
	if err != nil {
		return err
	}
	decoded, err := DecodeIndividualEnrollment(raw)
	if err != nil {
		return err
	}
	*e = *decoded
	return nil
}

// EnrollmentGroup binds every device whose certificate chains to a signing
// certificate, or that holds a key derived from the group key.
type EnrollmentGroup struct {
	EnrollmentGroupID  string
	Attestation        *attestation.Mechanism
	IoTHubHostName     string
	InitialTwin        *twin.State
	ProvisioningStatus ProvisioningStatus
	ETag               string

	// Set by the service.
	CreatedAt     time.Time
	LastUpdatedAt time.Time
}

// NewEnrollmentGroup creates an enabled enrollment group. TPM attestation and
// client certificates cannot be used for a group.
func NewEnrollmentGroup(enrollmentGroupID string, a attestation.Attestation) (*EnrollmentGroup, error) {
	if err := wire.ValidateRegistrationID(enrollmentGroupID); err != nil {
		return nil, fmt.Errorf("%w: enrollment group ID: %w", ErrInvalidArgument, err)
	}
	mechanism, err := attestation.NewMechanism(a)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if err := validateGroupAttestation(mechanism); err != nil {
		return nil, err
	}

	return &EnrollmentGroup{
		EnrollmentGroupID:  enrollmentGroupID,
		Attestation:        mechanism,
		ProvisioningStatus: ProvisioningStatusEnabled,
	}, nil
}

func validateGroupAttestation(m *attestation.Mechanism) error {
	a, err := m.Attestation()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	switch v := a.(type) {
	case *attestation.TPMAttestation:
		return fmt.Errorf("%w: enrollment groups do not support TPM attestation", ErrInvalidArgument)
	case *attestation.X509Attestation:
		if v.ClientCertificates() != nil {
			return fmt.Errorf("%w: enrollment groups need signing certificates or CA references", ErrInvalidArgument)
		}
	case *attestation.SymmetricKeyAttestation:
	}
	return nil
}

// Validate checks the fields a caller sets before the group is sent.
func (g *EnrollmentGroup) Validate() error {
	if err := wire.ValidateRegistrationID(g.EnrollmentGroupID); err != nil {
		return fmt.Errorf("%w: enrollment group ID: %w", ErrInvalidArgument, err)
	}
	if g.Attestation == nil {
		return fmt.Errorf("%w: enrollment group %q has no attestation", ErrInvalidArgument, g.EnrollmentGroupID)
	}
	if err := validateGroupAttestation(g.Attestation); err != nil {
		return err
	}
	return validateCommon(g.IoTHubHostName, g.ProvisioningStatus)
}

func (g *EnrollmentGroup) ToJSON() map[string]any {
	out := map[string]any{fieldEnrollmentGroupID: g.EnrollmentGroupID}
	putCommon(out, g.Attestation, g.IoTHubHostName, g.InitialTwin, g.ProvisioningStatus, g.ETag, g.CreatedAt, g.LastUpdatedAt)
	return out
}

// DecodeEnrollmentGroup builds an enrollment group from a parsed JSON object.
func DecodeEnrollmentGroup(raw any) (*EnrollmentGroup, error) {
	obj, ok := wire.Object(raw)
	if !ok {
		return nil, fmt.Errorf("%w: enrollment group must be an object, got %T", ErrInvalidArgument, raw)
	}

	g := &EnrollmentGroup{}
	id, err := wire.StringField(obj, fieldEnrollmentGroupID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	g.EnrollmentGroupID = id

	c, err := decodeCommon(obj)
	if err != nil {
		return nil, fmt.Errorf("enrollment group %q: %w", id, err)
	}
	g.Attestation = c.attestation
	g.IoTHubHostName = c.hubHostName
	g.InitialTwin = c.initialTwin
	g.ProvisioningStatus = c.status
	g.ETag = c.etag
	g.CreatedAt = c.created
	g.LastUpdatedAt = c.lastUpdated
	return g, nil
}

func (g *EnrollmentGroup) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.ToJSON())
}

func (g *EnrollmentGroup) UnmarshalJSON(data []byte) error {
	raw, err := wire.Parse(data)
	if err != nil {
		return err
	}
	decoded, err := DecodeEnrollmentGroup(raw)
	if err != nil {
		return err
	}
	*g = *decoded
	return nil
}

func validateCommon(hubHostName string, status ProvisioningStatus) error {
	if hubHostName != "" {
		if err := wire.ValidateHostName(hubHostName); err != nil {
			return fmt.Errorf("%w: IoT hub host name: %w", ErrInvalidArgument, err)
		}
	}
	if !status.valid() {
		return fmt.Errorf("%w: unknown provisioning status %q", ErrInvalidArgument, status)
	}
	return nil
}

func putCommon(out map[string]any, m *attestation.Mechanism, hub string, initialTwin *twin.State,
	status ProvisioningStatus, etag string, created, lastUpdated time.Time,
) {
	if m != nil {
		out[fieldAttestation] = m.ToJSON()
	}
	putString(out, fieldIoTHubHostName, hub)
	if initialTwin != nil {
		out[fieldInitialTwin] = initialTwin.ToJSON()
	}
	putString(out, fieldProvisioningStatus, string(status))
	putString(out, fieldETag, etag)
	putTime(out, fieldCreated, created)
	putTime(out, fieldLastUpdated, lastUpdated)
}

type commonFields struct {
	attestation *attestation.Mechanism
	hubHostName string
	initialTwin *twin.State
	status      ProvisioningStatus
	etag        string
	created     time.Time
	lastUpdated time.Time
}

func decodeCommon(obj map[string]any) (*commonFields, error) {
	c := &commonFields{}

	var status string
	if err := stringFields(obj, map[string]*string{
		fieldIoTHubHostName:     &c.hubHostName,
		fieldProvisioningStatus: &status,
		fieldETag:               &c.etag,
	}); err != nil {
		return nil, err
	}
	c.status = ProvisioningStatus(status)

	rawMechanism, err := wire.ObjectField(obj, fieldAttestation)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if rawMechanism == nil {
		return nil, fmt.Errorf("%w: attestation is required", ErrInvalidArgument)
	}
	if c.attestation, err = attestation.DecodeMechanism(rawMechanism); err != nil {
		return nil, fmt.Errorf("%w: attestation: %w", ErrInvalidArgument, err)
	}

	rawTwin, err := wire.ObjectField(obj, fieldInitialTwin)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if rawTwin != nil {
		if c.initialTwin, err = twin.DecodeState(rawTwin); err != nil {
			return nil, fmt.Errorf("%w: initial twin: %w", ErrInvalidArgument, err)
		}
	}

	if c.created, err = timeField(obj, fieldCreated); err != nil {
		return nil, err
	}
	if c.lastUpdated, err = timeField(obj, fieldLastUpdated); err != nil {
		return nil, err
	}
	return c, nil
}
