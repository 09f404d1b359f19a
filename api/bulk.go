package api

import (
	"fmt"

	"github.com/anchorageoss/provisioningclient/wire"
)

// BulkEnrollmentOperation applies one mode to several individual enrollments.
type BulkEnrollmentOperation struct {
	Mode        BulkOperationMode
	Enrollments []*IndividualEnrollment
}

func (o *BulkEnrollmentOperation) Validate() error {
	if !o.Mode.valid() {
		return fmt.Errorf("%w: unknown bulk operation mode %q", ErrInvalidArgument, o.Mode)
	}
	if len(o.Enrollments) == 0 {
		return fmt.Errorf("%w: bulk operation has no enrollments", ErrInvalidArgument)
	}
	for _, e := range o.Enrollments {
		if e == nil {
			return fmt.Errorf("%w: bulk operation contains a nil enrollment", ErrInvalidArgument)
		}
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (o *BulkEnrollmentOperation) ToJSON() map[string]any {
	enrollments := make([]any, 0, len(o.Enrollments))
	for _, e := range o.Enrollments {
		enrollments = append(enrollments, e.ToJSON())
	}
	return map[string]any{
		fieldMode:        string(o.Mode),
		fieldEnrollments: enrollments,
	}
}

// DeviceRegistrationOperationError reports why one enrollment of a bulk
// operation failed.
type DeviceRegistrationOperationError struct {
	RegistrationID string
	ErrorCode      int
	ErrorStatus    string
}

// BulkEnrollmentOperationResult is the service's answer to a bulk operation.
type BulkEnrollmentOperationResult struct {
	IsSuccessful bool
	Errors       []DeviceRegistrationOperationError
}

// DecodeBulkEnrollmentOperationResult builds a result from a parsed JSON object.
func DecodeBulkEnrollmentOperationResult(raw any) (*BulkEnrollmentOperationResult, error) {
	obj, ok := wire.Object(raw)
	if !ok {
		return nil, fmt.Errorf("%w: bulk operation result must be an object, got %T", ErrInvalidArgument, raw)
	}

	result := &BulkEnrollmentOperationResult{}
	if v, present := obj[fieldIsSuccessful]; present && v != nil {
		b, isBool := v.(bool)
		if !isBool {
			return nil, fmt.Errorf("%w: %s must be a boolean, got %T", ErrInvalidArgument, fieldIsSuccessful, v)
		}
		result.IsSuccessful = b
	}

	rawErrors, present := obj[fieldErrors]
	if !present || rawErrors == nil {
		return result, nil
	}
	list, isList := rawErrors.([]any)
	if !isList {
		return nil, fmt.Errorf("%w: %s must be an array, got %T", ErrInvalidArgument, fieldErrors, rawErrors)
	}

	for i, item := range list {
		entry, isObject := wire.Object(item)
		if !isObject {
			return nil, fmt.Errorf("%w: %s[%d] must be an object", ErrInvalidArgument, fieldErrors, i)
		}

		var opErr DeviceRegistrationOperationError
		if err := stringFields(entry, map[string]*string{
			fieldRegistrationID: &opErr.RegistrationID,
			fieldErrorStatus:    &opErr.ErrorStatus,
		}); err != nil {
			return nil, err
		}
		code, _, err := wire.IntField(entry, fieldErrorCode)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		opErr.ErrorCode = int(code)
		result.Errors = append(result.Errors, opErr)
	}
	return result, nil
}
