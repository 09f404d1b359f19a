package attestation

import (
	"fmt"

	"github.com/anchorageoss/provisioningclient/wire"
)

const (
	fieldPrimaryKey   = "primaryKey"
	fieldSecondaryKey = "secondaryKey"
)

// SymmetricKeyAttestation identifies a device by a pre-shared key pair. Empty
// keys ask the service to generate them.
type SymmetricKeyAttestation struct {
	primaryKey   string
	secondaryKey string
}

// NewSymmetricKeyAttestation stores both base64 keys verbatim.
func NewSymmetricKeyAttestation(primaryKey, secondaryKey string) *SymmetricKeyAttestation {
	return &SymmetricKeyAttestation{
		primaryKey:   primaryKey,
		secondaryKey: secondaryKey,
	}
}

// CopySymmetricKeyAttestation copies src. Unlike the other variants a nil
// source is not an error; it yields an attestation with empty keys.
func CopySymmetricKeyAttestation(src *SymmetricKeyAttestation) *SymmetricKeyAttestation {
	if src == nil {
		return NewSymmetricKeyAttestation("", "")
	}
	return NewSymmetricKeyAttestation(src.primaryKey, src.secondaryKey)
}

func (a *SymmetricKeyAttestation) PrimaryKey() string   { return a.primaryKey }
func (a *SymmetricKeyAttestation) SecondaryKey() string { return a.secondaryKey }

func (*SymmetricKeyAttestation) Type() Type { return TypeSymmetricKey }

func (a *SymmetricKeyAttestation) ToJSON() map[string]any {
	return map[string]any{
		fieldPrimaryKey:   a.primaryKey,
		fieldSecondaryKey: a.secondaryKey,
	}
}

func (*SymmetricKeyAttestation) sealed() {}

// DecodeSymmetricKeyAttestation builds a symmetric key attestation from its
// wire object. Absent keys decode as empty strings.
func DecodeSymmetricKeyAttestation(raw map[string]any) (*SymmetricKeyAttestation, error) {
	primary, err := wire.StringField(raw, fieldPrimaryKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	secondary, err := wire.StringField(raw, fieldSecondaryKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return NewSymmetricKeyAttestation(primary, secondary), nil
}
