package twin

import (
	"errors"
	"fmt"
	"time"

	"github.com/anchorageoss/provisioningclient/wire"
)

var (
	// ErrInvalidArgument is returned for nil inputs, non-object collections and
	// reserved keys set through the builder API.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMalformedMetadata is returned when a reserved metadata key holds a value
	// of the wrong shape.
	ErrMalformedMetadata = errors.New("malformed twin metadata")
)

// Reserved keys of the with-metadata wire format.
const (
	KeyMetadata           = "$metadata"
	KeyVersion            = "$version"
	KeyLastUpdated        = "$lastUpdated"
	KeyLastUpdatedVersion = "$lastUpdatedVersion"
)

// IsReservedKey reports whether key is one of the reserved metadata keys.
func IsReservedKey(key string) bool {
	switch key {
	case KeyMetadata, KeyVersion, KeyLastUpdated, KeyLastUpdatedVersion:
		return true
	}
	return false
}

// lastUpdatedLayout renders timestamps built locally with fixed-width
// milliseconds, the precision the service reports.
const lastUpdatedLayout = "2006-01-02T15:04:05.000Z07:00"

// Metadata describes when a twin node was last updated. At least one of the
// two fields is always set.
type Metadata struct {
	lastUpdated        *time.Time
	lastUpdatedVersion *int64

	// lastUpdatedRaw is the timestamp as decoded from the wire, emitted
	// unchanged.
	lastUpdatedRaw string
}

// NewMetadata creates node metadata. Passing nil for both fields fails.
func NewMetadata(lastUpdated *time.Time, lastUpdatedVersion *int64) (*Metadata, error) {
	if lastUpdated == nil && lastUpdatedVersion == nil {
		return nil, fmt.Errorf("%w: metadata needs a last updated time or version", ErrInvalidArgument)
	}

	m := &Metadata{}
	if lastUpdated != nil {
		t := lastUpdated.UTC()
		m.lastUpdated = &t
	}
	if lastUpdatedVersion != nil {
		v := *lastUpdatedVersion
		m.lastUpdatedVersion = &v
	}
	return m, nil
}

// LastUpdated returns the UTC update time, if known.
func (m *Metadata) LastUpdated() (time.Time, bool) {
	if m.lastUpdated == nil {
		return time.Time{}, false
	}
	return *m.lastUpdated, true
}

// LastUpdatedVersion returns the version at the last update, if known.
func (m *Metadata) LastUpdatedVersion() (int64, bool) {
	if m.lastUpdatedVersion == nil {
		return 0, false
	}
	return *m.lastUpdatedVersion, true
}

func (m *Metadata) clone() *Metadata {
	if m == nil {
		return nil
	}
	c, _ := NewMetadata(m.lastUpdated, m.lastUpdatedVersion)
	c.lastUpdatedRaw = m.lastUpdatedRaw
	return c
}

func (m *Metadata) toJSON() map[string]any {
	out := map[string]any{}
	switch {
	case m.lastUpdatedRaw != "":
		out[KeyLastUpdated] = m.lastUpdatedRaw
	case m.lastUpdated != nil:
		out[KeyLastUpdated] = m.lastUpdated.UTC().Format(lastUpdatedLayout)
	}
	if m.lastUpdatedVersion != nil {
		out[KeyLastUpdatedVersion] = *m.lastUpdatedVersion
	}
	return out
}

// decodeMetadata reads the two node-level keys of obj. It returns nil when
// neither is present.
func decodeMetadata(obj map[string]any) (*Metadata, error) {
	var (
		lastUpdated    *time.Time
		version        *int64
		lastUpdatedRaw string
	)

	if raw, ok := obj[KeyLastUpdated]; ok {
		s, isString := raw.(string)
		if !isString {
			return nil, fmt.Errorf("%w: %s must be a date-time string, got %T", ErrMalformedMetadata, KeyLastUpdated, raw)
		}
		t, err := wire.ParseDateTime(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformedMetadata, KeyLastUpdated, err)
		}
		lastUpdated = &t
		lastUpdatedRaw = s
	}

	if raw, ok := obj[KeyLastUpdatedVersion]; ok {
		v, isInt := wire.Int64(raw)
		if !isInt {
			return nil, fmt.Errorf("%w: %s must be an integer, got %v", ErrMalformedMetadata, KeyLastUpdatedVersion, raw)
		}
		version = &v
	}

	if lastUpdated == nil && version == nil {
		return nil, nil
	}
	m, err := NewMetadata(lastUpdated, version)
	if err != nil {
		return nil, err
	}
	m.lastUpdatedRaw = lastUpdatedRaw
	return m, nil
}
