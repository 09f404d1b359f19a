// Package attestation models how a device proves its identity to the
// provisioning service.
//
// Three mechanisms exist and exactly one is active per enrollment:
//   - TPMAttestation: the device's TPM endorsement key (and optionally its
//     storage root key)
//   - X509Attestation: certificates, either client (leaf) certificates for a
//     single device, signing (root) certificates for a group, or references to
//     CA certificates registered with the service
//   - SymmetricKeyAttestation: a pre-shared primary/secondary key pair
//
// # Mechanism
//
// Mechanism is the tagged union the service exchanges on the wire. Build one
// from a concrete attestation and recover the typed variant with Attestation:
//
//	tpm, err := attestation.NewTPMAttestation(endorsementKey, "")
//	if err != nil {
//		log.Fatal(err)
//	}
//	mechanism, err := attestation.NewMechanism(tpm)
//	if err != nil {
//		log.Fatal(err)
//	}
//	a, err := mechanism.Attestation()
//
// # Service supplied information
//
// Certificates uploaded by a caller carry the PEM text only. When the service
// returns an enrollment it replaces the PEM with an X509CertificateInfo block
// (subject, issuer, thumbprints, validity). The two halves never coexist on one
// X509CertificateWithInfo.
//
// All values are immutable after construction and every copy is deep.
package attestation

import "errors"

var (
	// ErrInvalidArgument is returned when a required field is missing or
	// malformed, or when an exactly-one-of rule is violated.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownAttestationType is returned when a Mechanism carries a type
	// with no matching populated attestation.
	ErrUnknownAttestationType = errors.New("unknown attestation type")
)

// Type is the attestation discriminator used on the wire.
type Type string

const (
	TypeNone         Type = "none"
	TypeTPM          Type = "tpm"
	TypeX509         Type = "x509"
	TypeSymmetricKey Type = "symmetricKey"
)

// String returns the wire name of the type.
func (t Type) String() string {
	if t == "" {
		return string(TypeNone)
	}
	return string(t)
}

// Attestation is implemented by *TPMAttestation, *X509Attestation and
// *SymmetricKeyAttestation only.
type Attestation interface {
	// Type returns the discriminator of the concrete attestation.
	Type() Type

	// ToJSON renders the attestation as a generic JSON object.
	ToJSON() map[string]any

	sealed()
}
