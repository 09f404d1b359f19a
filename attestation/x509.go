package attestation

import (
	"fmt"

	"github.com/anchorageoss/provisioningclient/wire"
)

const (
	fieldClientCertificates  = "clientCertificates"
	fieldSigningCertificates = "signingCertificates"
	fieldCAReferences        = "caReferences"
)

// X509CAReferences names CA certificates already registered with the service.
type X509CAReferences struct {
	primary   string
	secondary string
}

func (r *X509CAReferences) Primary() string   { return r.primary }
func (r *X509CAReferences) Secondary() string { return r.secondary }

func (r *X509CAReferences) toJSON() map[string]any {
	out := map[string]any{fieldPrimary: r.primary}
	if r.secondary != "" {
		out[fieldSecondary] = r.secondary
	}
	return out
}

// X509Attestation identifies a device with certificates in exactly one role:
// client certificates for a single device, signing (root) certificates for a
// group, or CA references for a group.
type X509Attestation struct {
	clientCertificates *X509Certificates
	rootCertificates   *X509Certificates
	caReferences       *X509CAReferences
}

// NewX509AttestationFromClientCertificates creates an attestation for a single
// device enrollment.
func NewX509AttestationFromClientCertificates(primary, secondary string) (*X509Attestation, error) {
	if primary == "" {
		return nil, fmt.Errorf("%w: primary client certificate must not be empty", ErrInvalidArgument)
	}
	certs, err := NewX509Certificates(primary, secondary)
	if err != nil {
		return nil, err
	}
	return newX509Attestation(certs, nil, nil)
}

// NewX509AttestationFromRootCertificates creates an attestation for an
// enrollment group whose devices chain to the given signing certificates.
func NewX509AttestationFromRootCertificates(primary, secondary string) (*X509Attestation, error) {
	if primary == "" {
		return nil, fmt.Errorf("%w: primary root certificate must not be empty", ErrInvalidArgument)
	}
	certs, err := NewX509Certificates(primary, secondary)
	if err != nil {
		return nil, err
	}
	return newX509Attestation(nil, certs, nil)
}

// NewX509AttestationFromCAReferences creates an attestation for an enrollment
// group verified against CA certificates stored in the service.
func NewX509AttestationFromCAReferences(primary, secondary string) (*X509Attestation, error) {
	if primary == "" {
		return nil, fmt.Errorf("%w: primary CA reference must not be empty", ErrInvalidArgument)
	}
	return newX509Attestation(nil, nil, &X509CAReferences{primary: primary, secondary: secondary})
}

func newX509Attestation(client, root *X509Certificates, ca *X509CAReferences) (*X509Attestation, error) {
	populated := 0
	for _, set := range []bool{client != nil, root != nil, ca != nil} {
		if set {
			populated++
		}
	}
	if populated != 1 {
		return nil, fmt.Errorf("%w: exactly one of client certificates, root certificates or CA references is required, got %d",
			ErrInvalidArgument, populated)
	}

	return &X509Attestation{
		clientCertificates: client,
		rootCertificates:   root,
		caReferences:       ca,
	}, nil
}

// CopyX509Attestation deep-copies src, re-checking that exactly one role is
// populated.
func CopyX509Attestation(src *X509Attestation) (*X509Attestation, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: X.509 attestation must not be nil", ErrInvalidArgument)
	}

	var (
		client, root *X509Certificates
		ca           *X509CAReferences
		err          error
	)
	if src.clientCertificates != nil {
		if client, err = CopyX509Certificates(src.clientCertificates); err != nil {
			return nil, err
		}
	}
	if src.rootCertificates != nil {
		if root, err = CopyX509Certificates(src.rootCertificates); err != nil {
			return nil, err
		}
	}
	if src.caReferences != nil {
		ca = &X509CAReferences{primary: src.caReferences.primary, secondary: src.caReferences.secondary}
	}

	return newX509Attestation(client, root, ca)
}

func (a *X509Attestation) ClientCertificates() *X509Certificates { return a.clientCertificates }
func (a *X509Attestation) RootCertificates() *X509Certificates   { return a.rootCertificates }
func (a *X509Attestation) CAReferences() *X509CAReferences       { return a.caReferences }

func (a *X509Attestation) certificates() *X509Certificates {
	if a.clientCertificates != nil {
		return a.clientCertificates
	}
	return a.rootCertificates
}

// PrimaryCertificateInfo returns the service supplied info of the primary
// certificate in whichever role is populated.
func (a *X509Attestation) PrimaryCertificateInfo() (*X509CertificateInfo, error) {
	certs := a.certificates()
	if certs == nil {
		return nil, fmt.Errorf("%w: attestation has neither client nor root certificates", ErrInvalidArgument)
	}
	return certs.primary.info, nil
}

// SecondaryCertificateInfo returns the info of the secondary certificate, or
// nil when no secondary certificate is present.
func (a *X509Attestation) SecondaryCertificateInfo() (*X509CertificateInfo, error) {
	certs := a.certificates()
	if certs == nil {
		return nil, fmt.Errorf("%w: attestation has neither client nor root certificates", ErrInvalidArgument)
	}
	if certs.secondary == nil {
		return nil, nil
	}
	return certs.secondary.info, nil
}

func (*X509Attestation) Type() Type { return TypeX509 }

func (a *X509Attestation) ToJSON() map[string]any {
	out := map[string]any{}
	switch {
	case a.clientCertificates != nil:
		out[fieldClientCertificates] = a.clientCertificates.ToJSON()
	case a.rootCertificates != nil:
		out[fieldSigningCertificates] = a.rootCertificates.ToJSON()
	case a.caReferences != nil:
		out[fieldCAReferences] = a.caReferences.toJSON()
	}
	return out
}

func (*X509Attestation) sealed() {}

// DecodeX509Attestation builds an X.509 attestation from its wire object.
func DecodeX509Attestation(raw map[string]any) (*X509Attestation, error) {
	var (
		client, root *X509Certificates
		ca           *X509CAReferences
	)

	clientRaw, err := wire.ObjectField(raw, fieldClientCertificates)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if clientRaw != nil {
		if client, err = decodeCertificates(clientRaw); err != nil {
			return nil, fmt.Errorf("client certificates: %w", err)
		}
	}

	rootRaw, err := wire.ObjectField(raw, fieldSigningCertificates)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if rootRaw != nil {
		if root, err = decodeCertificates(rootRaw); err != nil {
			return nil, fmt.Errorf("signing certificates: %w", err)
		}
	}

	caRaw, err := wire.ObjectField(raw, fieldCAReferences)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if caRaw != nil {
		primary, err := wire.StringField(caRaw, fieldPrimary)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		if primary == "" {
			return nil, fmt.Errorf("%w: primary CA reference is required", ErrInvalidArgument)
		}
		secondary, err := wire.StringField(caRaw, fieldSecondary)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		ca = &X509CAReferences{primary: primary, secondary: secondary}
	}

	return newX509Attestation(client, root, ca)
}
