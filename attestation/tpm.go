package attestation

import (
	"fmt"

	"github.com/anchorageoss/provisioningclient/wire"
)

const (
	fieldEndorsementKey = "endorsementKey"
	fieldStorageRootKey = "storageRootKey"
)

// TPMAttestation identifies a device by its TPM endorsement key.
type TPMAttestation struct {
	endorsementKey string
	storageRootKey string
}

// NewTPMAttestation creates a TPM attestation. The storage root key is optional.
func NewTPMAttestation(endorsementKey, storageRootKey string) (*TPMAttestation, error) {
	if endorsementKey == "" {
		return nil, fmt.Errorf("%w: endorsement key must not be empty", ErrInvalidArgument)
	}
	return &TPMAttestation{
		endorsementKey: endorsementKey,
		storageRootKey: storageRootKey,
	}, nil
}

// CopyTPMAttestation deep-copies src.
func CopyTPMAttestation(src *TPMAttestation) (*TPMAttestation, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: TPM attestation must not be nil", ErrInvalidArgument)
	}
	return NewTPMAttestation(src.endorsementKey, src.storageRootKey)
}

func (a *TPMAttestation) EndorsementKey() string { return a.endorsementKey }
func (a *TPMAttestation) StorageRootKey() string { return a.storageRootKey }

func (*TPMAttestation) Type() Type { return TypeTPM }

func (a *TPMAttestation) ToJSON() map[string]any {
	out := map[string]any{fieldEndorsementKey: a.endorsementKey}
	if a.storageRootKey != "" {
		out[fieldStorageRootKey] = a.storageRootKey
	}
	return out
}

func (*TPMAttestation) sealed() {}

// DecodeTPMAttestation builds a TPM attestation from its wire object.
func DecodeTPMAttestation(raw map[string]any) (*TPMAttestation, error) {
	ek, err := wire.StringField(raw, fieldEndorsementKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	srk, err := wire.StringField(raw, fieldStorageRootKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return NewTPMAttestation(ek, srk)
}
