package wire

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidIdentifier is returned when a registration ID, enrollment group ID
// or host name does not match the format accepted by the service.
var ErrInvalidIdentifier = errors.New("invalid identifier")

const maxIdentifierLength = 128

var (
	registrationIDRegex = regexp.MustCompile(`^[a-z0-9\-._:]+$`)
	hostNameRegex       = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)
)

// ValidateRegistrationID checks an individual enrollment registration ID or an
// enrollment group ID.
func ValidateRegistrationID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: must not be empty", ErrInvalidIdentifier)
	}
	if len(id) > maxIdentifierLength {
		return fmt.Errorf("%w: %q exceeds %d characters", ErrInvalidIdentifier, id, maxIdentifierLength)
	}
	if !registrationIDRegex.MatchString(id) {
		return fmt.Errorf("%w: %q may only contain lowercase alphanumerics and '-', '.', '_', ':'", ErrInvalidIdentifier, id)
	}
	return nil
}

// ValidateHostName checks a fully qualified host name such as a hub host.
func ValidateHostName(host string) error {
	if host == "" {
		return fmt.Errorf("%w: host name must not be empty", ErrInvalidIdentifier)
	}
	if len(host) > 253 || !hostNameRegex.MatchString(host) {
		return fmt.Errorf("%w: %q is not a valid host name", ErrInvalidIdentifier, host)
	}
	return nil
}
