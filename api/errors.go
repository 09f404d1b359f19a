package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/anchorageoss/provisioningclient/wire"
)

// Sentinel errors matched by *ServiceError through errors.Is.
var (
	ErrBadRequest         = errors.New("bad request")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not found")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrTooManyRequests    = errors.New("too many requests")
	ErrInternalServer     = errors.New("internal server error")
	ErrUnexpectedStatus   = errors.New("unexpected status")
)

// ServiceError is returned for every non-success response.
type ServiceError struct {
	StatusCode int
	ErrorCode  int
	TrackingID string
	Message    string
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("provisioning service returned status %d", e.StatusCode)
	if e.ErrorCode != 0 {
		msg += fmt.Sprintf(", error code %d", e.ErrorCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.TrackingID != "" {
		msg += " (tracking ID " + e.TrackingID + ")"
	}
	return msg
}

// Unwrap maps the status code to a sentinel error.
func (e *ServiceError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusBadRequest:
		return ErrBadRequest
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusPreconditionFailed:
		return ErrPreconditionFailed
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrTooManyRequests
	case e.StatusCode >= http.StatusInternalServerError:
		return ErrInternalServer
	default:
		return ErrUnexpectedStatus
	}
}

// newServiceError reads the error envelope of a failed response. Bodies that
// are not the service's JSON envelope end up in Message verbatim.
func newServiceError(statusCode int, body []byte) *ServiceError {
	e := &ServiceError{StatusCode: statusCode}
	if len(body) == 0 {
		return e
	}

	raw, err := wire.Parse(body)
	obj, isObject := wire.Object(raw)
	if err != nil || !isObject {
		e.Message = string(body)
		return e
	}

	if code, ok, _ := wire.IntField(obj, "errorCode"); ok {
		e.ErrorCode = int(code)
	}
	e.TrackingID, _ = wire.StringField(obj, "trackingId")
	e.Message, _ = wire.StringField(obj, "message")
	if e.Message == "" {
		e.Message, _ = wire.StringField(obj, "Message")
	}
	return e
}
