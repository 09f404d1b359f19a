package cmd

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/anchorageoss/provisioningclient/attestation"
)

func TestAttestationCommand(t *testing.T) {
	cmd := AttestationCommand()

	require.NotNil(t, cmd)
	require.Equal(t, "attestation", cmd.Name)
	require.Len(t, cmd.Commands, 2)
}

func TestInspectAttestationCommand(t *testing.T) {
	cmd := inspectAttestationCommand()

	require.Equal(t, "inspect", cmd.Name)
	require.NotEmpty(t, cmd.Usage)
	require.Len(t, cmd.Flags, 2)

	var hasFile bool
	for _, flag := range cmd.Flags {
		switch f := flag.(type) {
		case *cli.StringFlag:
			if f.Name == "file" {
				hasFile = true
				require.True(t, f.Required)
			}
		}
	}
	require.True(t, hasFile)

	t.Run("summary", func(t *testing.T) {
		path := writeFile(t, "tpm.json", []byte(`{"type": "tpm", "tpm": {"endorsementKey": "AToAAQALAAMAsgAgg3GXZ0SEs"}}`))

		out, _, err := runApp(t, "attestation", "inspect", "--file", path)
		require.NoError(t, err)
		require.Contains(t, out, "Attestation: tpm")
		require.Contains(t, out, "Endorsement Key: AToAAQALAAMAsgAg...")
	})

	t.Run("yaml to wire form", func(t *testing.T) {
		path := writeFile(t, "x509.yaml", []byte(`
type: x509
x509:
  caReferences:
    primary: contoso-root-ca
`))

		out, _, err := runApp(t, "attestation", "inspect", "--file", path, "--json")
		require.NoError(t, err)
		require.JSONEq(t, `{"type": "x509", "x509": {"caReferences": {"primary": "contoso-root-ca"}}}`, out)
	})

	t.Run("rejects mismatched slot", func(t *testing.T) {
		path := writeFile(t, "bad.json", []byte(`{"type": "tpm", "symmetricKey": {"primaryKey": "a"}}`))

		_, _, err := runApp(t, "attestation", "inspect", "--file", path)
		require.ErrorIs(t, err, attestation.ErrInvalidArgument)
	})
}

func selfSignedPEM(t *testing.T) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(0xABCDEF),
		Subject:      pkix.Name{CommonName: "device-01"},
		NotBefore:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:     time.Date(2034, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func TestCertificateInfoCommand(t *testing.T) {
	path := writeFile(t, "device.pem", selfSignedPEM(t))

	t.Run("summary", func(t *testing.T) {
		out, _, err := runApp(t, "attestation", "certificate-info", "--file", path)
		require.NoError(t, err)
		require.Contains(t, out, "Subject: CN=device-01")
		require.Contains(t, out, "Serial Number: ABCDEF")
		require.Contains(t, out, "Valid: 2024-01-01T00:00:00Z to 2034-01-01T00:00:00Z")
	})

	t.Run("json", func(t *testing.T) {
		out, _, err := runApp(t, "attestation", "certificate-info", "--file", path, "--json")
		require.NoError(t, err)
		require.Contains(t, out, `"serialNumber": "ABCDEF"`)
		require.Contains(t, out, `"notBeforeUtc": "2024-01-01T00:00:00Z"`)
	})

	t.Run("not a certificate", func(t *testing.T) {
		_, _, err := runApp(t, "attestation", "certificate-info", "--file", writeFile(t, "junk.pem", []byte("junk")))
		require.ErrorIs(t, err, attestation.ErrInvalidArgument)
	})
}
