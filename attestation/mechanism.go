package attestation

import (
	"encoding/json"
	"fmt"

	"github.com/anchorageoss/provisioningclient/wire"
)

const (
	fieldType         = "type"
	fieldTPM          = "tpm"
	fieldX509         = "x509"
	fieldSymmetricKey = "symmetricKey"
)

// Mechanism carries exactly one attestation together with its type. The zero
// value has type none and no attestation.
type Mechanism struct {
	typ          Type
	tpm          *TPMAttestation
	x509         *X509Attestation
	symmetricKey *SymmetricKeyAttestation
}

// NewMechanism wraps a deep copy of a.
func NewMechanism(a Attestation) (*Mechanism, error) {
	switch v := a.(type) {
	case *TPMAttestation:
		if v == nil {
			break
		}
		c, err := CopyTPMAttestation(v)
		if err != nil {
			return nil, err
		}
		return &Mechanism{typ: TypeTPM, tpm: c}, nil
	case *X509Attestation:
		if v == nil {
			break
		}
		c, err := CopyX509Attestation(v)
		if err != nil {
			return nil, err
		}
		return &Mechanism{typ: TypeX509, x509: c}, nil
	case *SymmetricKeyAttestation:
		if v == nil {
			break
		}
		return &Mechanism{typ: TypeSymmetricKey, symmetricKey: CopySymmetricKeyAttestation(v)}, nil
	case nil:
	default:
		return nil, fmt.Errorf("%w: unsupported attestation %T", ErrInvalidArgument, a)
	}
	return nil, fmt.Errorf("%w: attestation must not be nil", ErrInvalidArgument)
}

// Type returns the attestation type, TypeNone for an empty mechanism.
func (m *Mechanism) Type() Type {
	if m.typ == "" {
		return TypeNone
	}
	return m.typ
}

// Attestation returns a deep copy of the wrapped attestation. A mechanism whose
// type has no populated attestation fails with ErrUnknownAttestationType.
func (m *Mechanism) Attestation() (Attestation, error) {
	switch m.Type() {
	case TypeTPM:
		if m.tpm != nil {
			return CopyTPMAttestation(m.tpm)
		}
	case TypeX509:
		if m.x509 != nil {
			return CopyX509Attestation(m.x509)
		}
	case TypeSymmetricKey:
		if m.symmetricKey != nil {
			return CopySymmetricKeyAttestation(m.symmetricKey), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAttestationType, m.Type())
}

// ToJSON renders the mechanism with its type tag and the single populated slot.
func (m *Mechanism) ToJSON() map[string]any {
	out := map[string]any{fieldType: m.Type().String()}
	switch {
	case m.tpm != nil:
		out[fieldTPM] = m.tpm.ToJSON()
	case m.x509 != nil:
		out[fieldX509] = m.x509.ToJSON()
	case m.symmetricKey != nil:
		out[fieldSymmetricKey] = m.symmetricKey.ToJSON()
	}
	return out
}

func (m *Mechanism) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.ToJSON())
}

func (m *Mechanism) UnmarshalJSON(data []byte) error {
	raw, err := wire.Parse(data)
	if err != nil {
		return err
	}
	decoded, err := DecodeMechanism(raw)
	if err != nil {
		return err
	}
	*m = *decoded
	return nil
}

// DecodeMechanism builds a mechanism from a parsed JSON value. At most one
// attestation slot may be present and it must match the type tag. A type with
// no populated slot decodes; Attestation then reports ErrUnknownAttestationType.
func DecodeMechanism(raw any) (*Mechanism, error) {
	obj, ok := wire.Object(raw)
	if !ok {
		return nil, fmt.Errorf("%w: attestation mechanism must be an object, got %T", ErrInvalidArgument, raw)
	}

	typ, err := wire.StringField(obj, fieldType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	m := &Mechanism{typ: Type(typ)}

	slots := map[Type]map[string]any{}
	for slotType, name := range map[Type]string{TypeTPM: fieldTPM, TypeX509: fieldX509, TypeSymmetricKey: fieldSymmetricKey} {
		slot, err := wire.ObjectField(obj, name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		if slot != nil {
			slots[slotType] = slot
		}
	}

	if len(slots) > 1 {
		return nil, fmt.Errorf("%w: attestation mechanism carries %d attestations", ErrInvalidArgument, len(slots))
	}
	for slotType, slot := range slots {
		if slotType != m.Type() {
			return nil, fmt.Errorf("%w: attestation mechanism of type %q carries a %q attestation",
				ErrInvalidArgument, m.Type(), slotType)
		}

		switch slotType {
		case TypeTPM:
			if m.tpm, err = DecodeTPMAttestation(slot); err != nil {
				return nil, fmt.Errorf("tpm attestation: %w", err)
			}
		case TypeX509:
			if m.x509, err = DecodeX509Attestation(slot); err != nil {
				return nil, fmt.Errorf("x509 attestation: %w", err)
			}
		case TypeSymmetricKey:
			if m.symmetricKey, err = DecodeSymmetricKeyAttestation(slot); err != nil {
				return nil, fmt.Errorf("symmetric key attestation: %w", err)
			}
		}
	}

	return m, nil
}
