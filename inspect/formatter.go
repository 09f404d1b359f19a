// Package inspect renders attestation mechanisms, certificates, enrollments
// and twins for display on a terminal.
package inspect

import (
	"fmt"
	"strings"
	"time"

	"github.com/anchorageoss/provisioningclient/api"
	"github.com/anchorageoss/provisioningclient/attestation"
	"github.com/anchorageoss/provisioningclient/twin"
)

// Formatter formats provisioning data for display
type Formatter struct {
	// KeyPreview is the number of characters of a key or certificate shown
	// before it is truncated. Zero shows values in full.
	KeyPreview int
}

// NewFormatter creates a new formatter
func NewFormatter() *Formatter {
	return &Formatter{KeyPreview: 16}
}

func (f *Formatter) preview(s string) string {
	s = strings.TrimSpace(s)
	if f.KeyPreview > 0 && len(s) > f.KeyPreview {
		return s[:f.KeyPreview] + "..."
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

// FormatMechanism formats an attestation mechanism for display
func (f *Formatter) FormatMechanism(m *attestation.Mechanism, indent string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%sAttestation: %s\n", indent, m.Type()))

	a, err := m.Attestation()
	if err != nil {
		sb.WriteString(fmt.Sprintf("%s  (%v)\n", indent, err))
		return sb.String()
	}

	switch v := a.(type) {
	case *attestation.TPMAttestation:
		sb.WriteString(fmt.Sprintf("%s  Endorsement Key: %s\n", indent, f.preview(v.EndorsementKey())))
		if v.StorageRootKey() != "" {
			sb.WriteString(fmt.Sprintf("%s  Storage Root Key: %s\n", indent, f.preview(v.StorageRootKey())))
		}
	case *attestation.X509Attestation:
		switch {
		case v.ClientCertificates() != nil:
			sb.WriteString(f.formatCertificates("Client Certificates", v.ClientCertificates(), indent+"  "))
		case v.RootCertificates() != nil:
			sb.WriteString(f.formatCertificates("Signing Certificates", v.RootCertificates(), indent+"  "))
		case v.CAReferences() != nil:
			sb.WriteString(fmt.Sprintf("%s  CA References:\n", indent))
			sb.WriteString(fmt.Sprintf("%s    Primary: %s\n", indent, v.CAReferences().Primary()))
			if v.CAReferences().Secondary() != "" {
				sb.WriteString(fmt.Sprintf("%s    Secondary: %s\n", indent, v.CAReferences().Secondary()))
			}
		}
	case *attestation.SymmetricKeyAttestation:
		sb.WriteString(fmt.Sprintf("%s  Primary Key: %s\n", indent, f.keyOrGenerated(v.PrimaryKey())))
		sb.WriteString(fmt.Sprintf("%s  Secondary Key: %s\n", indent, f.keyOrGenerated(v.SecondaryKey())))
	}
	return sb.String()
}

func (f *Formatter) keyOrGenerated(key string) string {
	if key == "" {
		return "(generated by service)"
	}
	return f.preview(key)
}

func (f *Formatter) formatCertificates(title string, certs *attestation.X509Certificates, indent string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s%s:\n", indent, title))
	sb.WriteString(f.formatCertificate("Primary", certs.Primary(), indent+"  "))
	if certs.Secondary() != nil {
		sb.WriteString(f.formatCertificate("Secondary", certs.Secondary(), indent+"  "))
	}
	return sb.String()
}

func (f *Formatter) formatCertificate(label string, c *attestation.X509CertificateWithInfo, indent string) string {
	if c.Info() == nil {
		return fmt.Sprintf("%s%s: %s\n", indent, label, f.preview(c.Certificate()))
	}
	return fmt.Sprintf("%s%s:\n%s", indent, label, f.FormatCertificateInfo(c.Info(), indent+"  "))
}

// FormatCertificateInfo formats service supplied certificate details
func (f *Formatter) FormatCertificateInfo(info *attestation.X509CertificateInfo, indent string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%sSubject: %s\n", indent, info.SubjectName()))
	sb.WriteString(fmt.Sprintf("%sIssuer: %s\n", indent, info.IssuerName()))
	sb.WriteString(fmt.Sprintf("%sSerial Number: %s\n", indent, info.SerialNumber()))
	sb.WriteString(fmt.Sprintf("%sVersion: %d\n", indent, info.Version()))
	sb.WriteString(fmt.Sprintf("%sValid: %s to %s\n", indent, formatTime(info.NotBefore()), formatTime(info.NotAfter())))
	sb.WriteString(fmt.Sprintf("%sSHA-1 Thumbprint: %s\n", indent, info.SHA1Thumbprint()))
	sb.WriteString(fmt.Sprintf("%sSHA-256 Thumbprint: %s\n", indent, info.SHA256Thumbprint()))
	return sb.String()
}

// FormatIndividualEnrollment formats an individual enrollment for display
func (f *Formatter) FormatIndividualEnrollment(e *api.IndividualEnrollment) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Registration ID: %s\n", e.RegistrationID))
	if e.DeviceID != "" {
		sb.WriteString(fmt.Sprintf("Device ID: %s\n", e.DeviceID))
	}
	sb.WriteString(f.formatCommon(e.Attestation, e.IoTHubHostName, e.ProvisioningStatus, e.ETag, e.CreatedAt, e.LastUpdatedAt))
	if e.RegistrationState != nil {
		sb.WriteString("\nRegistration State:\n")
		sb.WriteString(f.FormatRegistrationState(e.RegistrationState, "  "))
	}
	if e.InitialTwin != nil {
		sb.WriteString("\nInitial Twin:\n")
		sb.WriteString(f.FormatTwinState(e.InitialTwin))
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatEnrollmentGroup formats an enrollment group for display
func (f *Formatter) FormatEnrollmentGroup(g *api.EnrollmentGroup) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Enrollment Group ID: %s\n", g.EnrollmentGroupID))
	sb.WriteString(f.formatCommon(g.Attestation, g.IoTHubHostName, g.ProvisioningStatus, g.ETag, g.CreatedAt, g.LastUpdatedAt))
	if g.InitialTwin != nil {
		sb.WriteString("\nInitial Twin:\n")
		sb.WriteString(f.FormatTwinState(g.InitialTwin))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (f *Formatter) formatCommon(m *attestation.Mechanism, hub string, status api.ProvisioningStatus, etag string, created, updated time.Time) string {
	var sb strings.Builder
	if status != "" {
		sb.WriteString(fmt.Sprintf("Provisioning Status: %s\n", status))
	}
	if hub != "" {
		sb.WriteString(fmt.Sprintf("IoT Hub: %s\n", hub))
	}
	if etag != "" {
		sb.WriteString(fmt.Sprintf("ETag: %s\n", etag))
	}
	sb.WriteString(fmt.Sprintf("Created: %s\n", formatTime(created)))
	sb.WriteString(fmt.Sprintf("Last Updated: %s\n", formatTime(updated)))
	if m != nil {
		sb.WriteString("\n")
		sb.WriteString(f.FormatMechanism(m, ""))
	}
	return sb.String()
}

// FormatRegistrationState formats a device registration state for display
func (f *Formatter) FormatRegistrationState(s *api.DeviceRegistrationState, indent string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%sRegistration ID: %s\n", indent, s.RegistrationID))
	sb.WriteString(fmt.Sprintf("%sStatus: %s\n", indent, s.Status))
	if s.DeviceID != "" {
		sb.WriteString(fmt.Sprintf("%sDevice ID: %s\n", indent, s.DeviceID))
	}
	if s.AssignedHub != "" {
		sb.WriteString(fmt.Sprintf("%sAssigned Hub: %s\n", indent, s.AssignedHub))
	}
	if s.ErrorCode != 0 || s.ErrorMessage != "" {
		sb.WriteString(fmt.Sprintf("%sError: %d %s\n", indent, s.ErrorCode, s.ErrorMessage))
	}
	sb.WriteString(fmt.Sprintf("%sCreated: %s\n", indent, formatTime(s.CreatedAt)))
	sb.WriteString(fmt.Sprintf("%sLast Updated: %s\n", indent, formatTime(s.LastUpdatedAt)))
	return sb.String()
}

// FormatTwinState formats a twin with its metadata for display
func (f *Formatter) FormatTwinState(s *twin.State) string {
	return s.Display()
}
