package attestation

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"strings"
	"time"

	"github.com/anchorageoss/provisioningclient/wire"
)

// Wire names of certificate fields.
const (
	fieldCertificate      = "certificate"
	fieldInfo             = "info"
	fieldPrimary          = "primary"
	fieldSecondary        = "secondary"
	fieldSubjectName      = "subjectName"
	fieldSHA1Thumbprint   = "sha1Thumbprint"
	fieldSHA256Thumbprint = "sha256Thumbprint"
	fieldIssuerName       = "issuerName"
	fieldNotBeforeUTC     = "notBeforeUtc"
	fieldNotAfterUTC      = "notAfterUtc"
	fieldSerialNumber     = "serialNumber"
	fieldVersion          = "version"
)

// X509CertificateInfo is the read-only description of a certificate returned
// by the service.
type X509CertificateInfo struct {
	subjectName      string
	sha1Thumbprint   string
	sha256Thumbprint string
	issuerName       string
	notBeforeUTC     string
	notAfterUTC      string
	notBefore        time.Time
	notAfter         time.Time
	serialNumber     string
	version          int
}

// CopyX509CertificateInfo deep-copies src. The validity window strings are
// re-parsed, so a source with a missing or malformed date is rejected.
func CopyX509CertificateInfo(src *X509CertificateInfo) (*X509CertificateInfo, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: certificate info must not be nil", ErrInvalidArgument)
	}
	return newCertificateInfo(
		src.subjectName, src.sha1Thumbprint, src.sha256Thumbprint, src.issuerName,
		src.notBeforeUTC, src.notAfterUTC, src.serialNumber, src.version,
	)
}

func newCertificateInfo(subject, sha1Thumb, sha256Thumb, issuer, notBefore, notAfter, serial string, version int) (*X509CertificateInfo, error) {
	nb, err := wire.ParseDateTime(notBefore)
	if err != nil {
		return nil, fmt.Errorf("%w: certificate notBeforeUtc: %w", ErrInvalidArgument, err)
	}
	na, err := wire.ParseDateTime(notAfter)
	if err != nil {
		return nil, fmt.Errorf("%w: certificate notAfterUtc: %w", ErrInvalidArgument, err)
	}

	return &X509CertificateInfo{
		subjectName:      subject,
		sha1Thumbprint:   sha1Thumb,
		sha256Thumbprint: sha256Thumb,
		issuerName:       issuer,
		notBeforeUTC:     notBefore,
		notAfterUTC:      notAfter,
		notBefore:        nb,
		notAfter:         na,
		serialNumber:     serial,
		version:          version,
	}, nil
}

// ParseCertificateInfo builds the info block for a PEM encoded certificate
// locally, the way the service reports it.
func ParseCertificateInfo(pemData string) (*X509CertificateInfo, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("%w: not a PEM encoded certificate", ErrInvalidArgument)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid certificate structure: %w", ErrInvalidArgument, err)
	}

	sha1Sum := sha1.Sum(cert.Raw)
	sha256Sum := sha256.Sum256(cert.Raw)

	return newCertificateInfo(
		cert.Subject.String(),
		strings.ToUpper(hex.EncodeToString(sha1Sum[:])),
		strings.ToUpper(hex.EncodeToString(sha256Sum[:])),
		cert.Issuer.String(),
		wire.FormatDateTime(cert.NotBefore),
		wire.FormatDateTime(cert.NotAfter),
		strings.ToUpper(cert.SerialNumber.Text(16)),
		cert.Version,
	)
}

func (i *X509CertificateInfo) SubjectName() string      { return i.subjectName }
func (i *X509CertificateInfo) SHA1Thumbprint() string   { return i.sha1Thumbprint }
func (i *X509CertificateInfo) SHA256Thumbprint() string { return i.sha256Thumbprint }
func (i *X509CertificateInfo) IssuerName() string       { return i.issuerName }
func (i *X509CertificateInfo) NotBefore() time.Time     { return i.notBefore }
func (i *X509CertificateInfo) NotAfter() time.Time      { return i.notAfter }
func (i *X509CertificateInfo) SerialNumber() string     { return i.serialNumber }
func (i *X509CertificateInfo) Version() int             { return i.version }

// ToJSON renders the info block using the service's field names.
func (i *X509CertificateInfo) ToJSON() map[string]any {
	return map[string]any{
		fieldSubjectName:      i.subjectName,
		fieldSHA1Thumbprint:   i.sha1Thumbprint,
		fieldSHA256Thumbprint: i.sha256Thumbprint,
		fieldIssuerName:       i.issuerName,
		fieldNotBeforeUTC:     i.notBeforeUTC,
		fieldNotAfterUTC:      i.notAfterUTC,
		fieldSerialNumber:     i.serialNumber,
		fieldVersion:          i.version,
	}
}

func decodeCertificateInfo(raw map[string]any) (*X509CertificateInfo, error) {
	var fields [7]string
	names := [7]string{
		fieldSubjectName, fieldSHA1Thumbprint, fieldSHA256Thumbprint, fieldIssuerName,
		fieldNotBeforeUTC, fieldNotAfterUTC, fieldSerialNumber,
	}
	for idx, name := range names {
		s, err := wire.StringField(raw, name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		fields[idx] = s
	}

	version, _, err := wire.IntField(raw, fieldVersion)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return newCertificateInfo(fields[0], fields[1], fields[2], fields[3], fields[4], fields[5], fields[6], int(version))
}

// X509CertificateWithInfo holds either a caller supplied certificate or the
// info block the service returned for it, never both.
type X509CertificateWithInfo struct {
	certificate string
	info        *X509CertificateInfo
}

// NewX509CertificateWithInfo wraps a PEM (or base64 DER) certificate for upload.
func NewX509CertificateWithInfo(certificate string) (*X509CertificateWithInfo, error) {
	if certificate == "" {
		return nil, fmt.Errorf("%w: certificate must not be empty", ErrInvalidArgument)
	}
	return &X509CertificateWithInfo{certificate: certificate}, nil
}

// CopyX509CertificateWithInfo deep-copies src.
func CopyX509CertificateWithInfo(src *X509CertificateWithInfo) (*X509CertificateWithInfo, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: certificate must not be nil", ErrInvalidArgument)
	}

	out := &X509CertificateWithInfo{certificate: src.certificate}
	if src.info != nil {
		info, err := CopyX509CertificateInfo(src.info)
		if err != nil {
			return nil, err
		}
		out.info = info
	}
	return out, nil
}

// Certificate returns the uploaded certificate, or "" for a service response.
func (c *X509CertificateWithInfo) Certificate() string { return c.certificate }

// Info returns the service supplied info block, or nil for caller input.
func (c *X509CertificateWithInfo) Info() *X509CertificateInfo { return c.info }

// ToJSON renders whichever half is populated.
func (c *X509CertificateWithInfo) ToJSON() map[string]any {
	out := map[string]any{}
	if c.certificate != "" {
		out[fieldCertificate] = c.certificate
	}
	if c.info != nil {
		out[fieldInfo] = c.info.ToJSON()
	}
	return out
}

func decodeCertificateWithInfo(raw map[string]any) (*X509CertificateWithInfo, error) {
	certificate, err := wire.StringField(raw, fieldCertificate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	infoRaw, err := wire.ObjectField(raw, fieldInfo)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	switch {
	case certificate != "" && infoRaw != nil:
		return nil, fmt.Errorf("%w: certificate and info are mutually exclusive", ErrInvalidArgument)
	case certificate != "":
		return NewX509CertificateWithInfo(certificate)
	case infoRaw != nil:
		info, err := decodeCertificateInfo(infoRaw)
		if err != nil {
			return nil, err
		}
		return &X509CertificateWithInfo{info: info}, nil
	default:
		return nil, fmt.Errorf("%w: one of certificate or info is required", ErrInvalidArgument)
	}
}

// X509Certificates is a mandatory primary and optional secondary certificate.
type X509Certificates struct {
	primary   *X509CertificateWithInfo
	secondary *X509CertificateWithInfo
}

// NewX509Certificates builds a certificate pair for upload. An empty secondary
// is treated as absent.
func NewX509Certificates(primary, secondary string) (*X509Certificates, error) {
	if primary == "" {
		return nil, fmt.Errorf("%w: primary certificate must not be empty", ErrInvalidArgument)
	}

	p, err := NewX509CertificateWithInfo(primary)
	if err != nil {
		return nil, err
	}
	out := &X509Certificates{primary: p}

	if secondary != "" {
		s, err := NewX509CertificateWithInfo(secondary)
		if err != nil {
			return nil, err
		}
		out.secondary = s
	}
	return out, nil
}

// CopyX509Certificates deep-copies src.
func CopyX509Certificates(src *X509Certificates) (*X509Certificates, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: certificates must not be nil", ErrInvalidArgument)
	}
	if src.primary == nil {
		return nil, fmt.Errorf("%w: primary certificate must not be nil", ErrInvalidArgument)
	}

	p, err := CopyX509CertificateWithInfo(src.primary)
	if err != nil {
		return nil, err
	}
	out := &X509Certificates{primary: p}

	if src.secondary != nil {
		s, err := CopyX509CertificateWithInfo(src.secondary)
		if err != nil {
			return nil, err
		}
		out.secondary = s
	}
	return out, nil
}

func (c *X509Certificates) Primary() *X509CertificateWithInfo   { return c.primary }
func (c *X509Certificates) Secondary() *X509CertificateWithInfo { return c.secondary }

// ToJSON renders the pair, omitting an absent secondary.
func (c *X509Certificates) ToJSON() map[string]any {
	out := map[string]any{fieldPrimary: c.primary.ToJSON()}
	if c.secondary != nil {
		out[fieldSecondary] = c.secondary.ToJSON()
	}
	return out
}

func decodeCertificates(raw map[string]any) (*X509Certificates, error) {
	primaryRaw, err := wire.ObjectField(raw, fieldPrimary)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if primaryRaw == nil {
		return nil, fmt.Errorf("%w: primary certificate is required", ErrInvalidArgument)
	}

	primary, err := decodeCertificateWithInfo(primaryRaw)
	if err != nil {
		return nil, fmt.Errorf("primary certificate: %w", err)
	}
	out := &X509Certificates{primary: primary}

	secondaryRaw, err := wire.ObjectField(raw, fieldSecondary)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if secondaryRaw != nil {
		secondary, err := decodeCertificateWithInfo(secondaryRaw)
		if err != nil {
			return nil, fmt.Errorf("secondary certificate: %w", err)
		}
		out.secondary = secondary
	}
	return out, nil
}
