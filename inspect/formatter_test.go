package inspect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anchorageoss/provisioningclient/api"
	"github.com/anchorageoss/provisioningclient/attestation"
	"github.com/anchorageoss/provisioningclient/twin"
)

func TestNewFormatter(t *testing.T) {
	formatter := NewFormatter()
	require.NotNil(t, formatter)
	require.Equal(t, 16, formatter.KeyPreview)
}

func TestFormatMechanism(t *testing.T) {
	formatter := NewFormatter()

	t.Run("tpm", func(t *testing.T) {
		tpm, err := attestation.NewTPMAttestation("AToAAQALAAMAsgAgg3GXZ0SEs", "")
		require.NoError(t, err)
		m, err := attestation.NewMechanism(tpm)
		require.NoError(t, err)

		result := formatter.FormatMechanism(m, "")
		require.Contains(t, result, "Attestation: tpm")
		require.Contains(t, result, "Endorsement Key: AToAAQALAAMAsgAg...")
		require.NotContains(t, result, "Storage Root Key")
	})

	t.Run("x509 with certificate", func(t *testing.T) {
		x, err := attestation.NewX509AttestationFromRootCertificates("-----BEGIN CERTIFICATE-----", "")
		require.NoError(t, err)
		m, err := attestation.NewMechanism(x)
		require.NoError(t, err)

		result := formatter.FormatMechanism(m, "  ")
		require.Contains(t, result, "  Attestation: x509")
		require.Contains(t, result, "Signing Certificates:")
		require.Contains(t, result, "Primary: -----BEGIN CERTI...")
	})

	t.Run("x509 CA references", func(t *testing.T) {
		x, err := attestation.NewX509AttestationFromCAReferences("root-ca", "backup-ca")
		require.NoError(t, err)
		m, err := attestation.NewMechanism(x)
		require.NoError(t, err)

		result := formatter.FormatMechanism(m, "")
		require.Contains(t, result, "Primary: root-ca")
		require.Contains(t, result, "Secondary: backup-ca")
	})

	t.Run("symmetric key generated by service", func(t *testing.T) {
		m, err := attestation.NewMechanism(attestation.NewSymmetricKeyAttestation("", ""))
		require.NoError(t, err)

		result := formatter.FormatMechanism(m, "")
		require.Contains(t, result, "Primary Key: (generated by service)")
	})

	t.Run("unknown type", func(t *testing.T) {
		m, err := attestation.DecodeMechanism(map[string]any{"type": "none"})
		require.NoError(t, err)

		result := formatter.FormatMechanism(m, "")
		require.Contains(t, result, "Attestation: none")
		require.Contains(t, result, "unknown attestation type")
	})
}

func TestFormatIndividualEnrollment(t *testing.T) {
	formatter := &Formatter{}

	var e api.IndividualEnrollment
	require.NoError(t, e.UnmarshalJSON([]byte(`{
		"registrationId": "device-01",
		"attestation": {"type": "x509", "x509": {"clientCertificates": {"primary": {"info": {
			"subjectName": "CN=device-01",
			"sha1Thumbprint": "AB",
			"sha256Thumbprint": "CD",
			"issuerName": "CN=root",
			"notBeforeUtc": "2017-11-14T12:34:18Z",
			"notAfterUtc": "2027-11-14T12:34:18Z",
			"serialNumber": "01",
			"version": 3
		}}}}},
		"provisioningStatus": "enabled",
		"createdDateTimeUtc": "2017-09-28T16:29:42Z",
		"initialTwin": {"tags": {"building": "43"}},
		"registrationState": {"registrationId": "device-01", "status": "assigned", "assignedHub": "hub.example.net"}
	}`)))

	result := formatter.FormatIndividualEnrollment(&e)
	require.Contains(t, result, "Registration ID: device-01")
	require.Contains(t, result, "Provisioning Status: enabled")
	require.Contains(t, result, "Created: 2017-09-28T16:29:42Z")
	require.Contains(t, result, "Last Updated: -")
	require.Contains(t, result, "Client Certificates:")
	require.Contains(t, result, "Subject: CN=device-01")
	require.Contains(t, result, "Valid: 2017-11-14T12:34:18Z to 2027-11-14T12:34:18Z")
	require.Contains(t, result, "Assigned Hub: hub.example.net")
	require.Contains(t, result, `"building": "43"`)
}

func TestFormatEnrollmentGroup(t *testing.T) {
	formatter := NewFormatter()

	g, err := api.NewEnrollmentGroup("floor-2", attestation.NewSymmetricKeyAttestation("cHJpbWFyeWtleXByaW1hcnlrZXk=", ""))
	require.NoError(t, err)
	g.IoTHubHostName = "hub.example.net"

	result := formatter.FormatEnrollmentGroup(g)
	require.Contains(t, result, "Enrollment Group ID: floor-2")
	require.Contains(t, result, "IoT Hub: hub.example.net")
	require.Contains(t, result, "Primary Key: cHJpbWFyeWtleXBy...")
	require.NotContains(t, result, "Initial Twin")
}

func TestFormatRegistrationState(t *testing.T) {
	formatter := NewFormatter()
	s := &api.DeviceRegistrationState{
		RegistrationID: "device-01",
		Status:         api.RegistrationStatusFailed,
		ErrorCode:      400209,
		ErrorMessage:   "Custom allocation failed",
		CreatedAt:      time.Date(2017, 9, 28, 16, 30, 0, 0, time.UTC),
	}

	result := formatter.FormatRegistrationState(s, "  ")
	require.Contains(t, result, "  Status: failed")
	require.Contains(t, result, "  Error: 400209 Custom allocation failed")
	require.Contains(t, result, "  Created: 2017-09-28T16:30:00Z")
	require.NotContains(t, result, "Assigned Hub")
}

func TestFormatTwinState(t *testing.T) {
	tags := twin.NewCollection()
	require.NoError(t, tags.Set("building", "43"))
	s, err := twin.NewState(tags, nil)
	require.NoError(t, err)

	require.JSONEq(t, `{"tags": {"building": "43"}}`, NewFormatter().FormatTwinState(s))
}
