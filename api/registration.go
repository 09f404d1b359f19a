package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/anchorageoss/provisioningclient/wire"
)

// DeviceRegistrationState is the service's record of a device registration.
// It is read only.
type DeviceRegistrationState struct {
	RegistrationID string
	CreatedAt      time.Time
	AssignedHub    string
	DeviceID       string
	Status         RegistrationStatus
	ErrorCode      int
	ErrorMessage   string
	LastUpdatedAt  time.Time
	ETag           string
}

func (s *DeviceRegistrationState) ToJSON() map[string]any {
	out := map[string]any{fieldRegistrationID: s.RegistrationID}
	putTime(out, fieldCreated, s.CreatedAt)
	putString(out, fieldAssignedHub, s.AssignedHub)
	putString(out, fieldDeviceID, s.DeviceID)
	putString(out, fieldStatus, string(s.Status))
	if s.ErrorCode != 0 {
		out[fieldErrorCode] = s.ErrorCode
	}
	putString(out, fieldErrorMessage, s.ErrorMessage)
	putTime(out, fieldLastUpdated, s.LastUpdatedAt)
	putString(out, fieldETag, s.ETag)
	return out
}

// DecodeDeviceRegistrationState builds a registration state from a parsed JSON
// object.
func DecodeDeviceRegistrationState(raw any) (*DeviceRegistrationState, error) {
	obj, ok := wire.Object(raw)
	if !ok {
		return nil, fmt.Errorf("%w: registration state must be an object, got %T", ErrInvalidArgument, raw)
	}

	s := &DeviceRegistrationState{}
	var status string
	if err := stringFields(obj, map[string]*string{
		fieldRegistrationID: &s.RegistrationID,
		fieldAssignedHub:    &s.AssignedHub,
		fieldDeviceID:       &s.DeviceID,
		fieldStatus:         &status,
		fieldErrorMessage:   &s.ErrorMessage,
		fieldETag:           &s.ETag,
	}); err != nil {
		return nil, err
	}
	s.Status = RegistrationStatus(status)

	code, _, err := wire.IntField(obj, fieldErrorCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	s.ErrorCode = int(code)

	if s.CreatedAt, err = timeField(obj, fieldCreated); err != nil {
		return nil, err
	}
	if s.LastUpdatedAt, err = timeField(obj, fieldLastUpdated); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *DeviceRegistrationState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.ToJSON())
}

func (s *DeviceRegistrationState) UnmarshalJSON(data []byte) error {
	raw, err := wire.Parse(data)
	if err != nil {
		return err
	}
	decoded, err := DecodeDeviceRegistrationState(raw)
	if err != nil {
		return err
	}
	*s = *decoded
	return nil
}
