package cmd

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/anchorageoss/provisioningclient/api"
	"github.com/anchorageoss/provisioningclient/testdata"
)

func TestEnrollmentCommand(t *testing.T) {
	cmd := EnrollmentCommand()

	require.Equal(t, "enrollment", cmd.Name)
	require.Len(t, cmd.Commands, 4)
}

func TestGetEnrollmentCommandFlags(t *testing.T) {
	cmd := getEnrollmentCommand()

	var hasRegistrationID, hasConnectionString bool
	for _, flag := range cmd.Flags {
		switch f := flag.(type) {
		case *cli.StringFlag:
			if f.Name == "registration-id" {
				hasRegistrationID = true
				require.True(t, f.Required)
			}
			if f.Name == "connection-string" {
				hasConnectionString = true
				require.False(t, f.Required)
			}
		}
	}

	require.True(t, hasRegistrationID, "Should have --registration-id flag")
	require.True(t, hasConnectionString, "Should have --connection-string flag")
}

func TestGetEnrollment(t *testing.T) {
	mock := &mockHTTPClient{status: http.StatusOK, body: string(testdata.EnrollmentJSON)}
	useMockHTTPClient(t, mock)

	out, _, err := runApp(t, "enrollment", "get",
		"--connection-string", testConnectionString,
		"--registration-id", "device-01")
	require.NoError(t, err)

	req := mock.lastRequest(t)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "contoso.azure-devices-provisioning.net", req.URL.Host)
	assert.Equal(t, "/enrollments/device-01", req.URL.Path)
	assert.Equal(t, api.DefaultAPIVersion, req.URL.Query().Get("api-version"))
	assert.Contains(t, req.Header.Get("Authorization"), "SharedAccessSignature ")

	require.Contains(t, out, "Registration ID: device-01")
	require.Contains(t, out, "Attestation: symmetricKey")
	require.Contains(t, out, "Primary Key: cHJpbWFyeS1rZXkt...")
	require.Contains(t, out, "IoT Hub: contoso-hub.azure-devices.net")
}

func TestGetEnrollmentJSON(t *testing.T) {
	useMockHTTPClient(t, &mockHTTPClient{status: http.StatusOK, body: string(testdata.EnrollmentJSON)})

	out, _, err := runApp(t, "enrollment", "get",
		"--connection-string", testConnectionString,
		"--registration-id", "device-01",
		"--json")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "device-01", doc["registrationId"])
	assert.Equal(t, "contoso-hub.azure-devices.net", doc["iotHubHostName"])
	assert.Equal(t, map[string]any{"tags": map[string]any{"building": "43"}}, doc["initialTwin"])
}

func TestGetEnrollmentNotFound(t *testing.T) {
	useMockHTTPClient(t, &mockHTTPClient{
		status: http.StatusNotFound,
		body:   `{"errorCode": 404201, "trackingId": "b1c3", "message": "Enrollment not found"}`,
	})

	_, stderr, err := runApp(t, "enrollment", "get",
		"--connection-string", testConnectionString,
		"--registration-id", "device-01")
	require.ErrorIs(t, err, api.ErrNotFound)

	var svcErr *api.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 404201, svcErr.ErrorCode)
	assert.Contains(t, stderr, "provisioning service request failed")
}

func TestGetEnrollmentWithoutCredential(t *testing.T) {
	t.Setenv("PROVISIONING_CONNECTION_STRING", "")
	useMockHTTPClient(t, &mockHTTPClient{status: http.StatusOK})

	_, _, err := runApp(t, "enrollment", "get", "--registration-id", "device-01")
	require.ErrorContains(t, err, "no credential configured")
}

func TestCreateEnrollment(t *testing.T) {
	t.Run("symmetric key from flags", func(t *testing.T) {
		mock := &mockHTTPClient{status: http.StatusOK, body: string(testdata.EnrollmentJSON)}
		useMockHTTPClient(t, mock)

		_, stderr, err := runApp(t, "--log-json", "enrollment", "create",
			"--connection-string", testConnectionString,
			"--registration-id", "device-42",
			"--iot-hub", "contoso-hub.azure-devices.net",
			"--disabled")
		require.NoError(t, err)

		req := mock.lastRequest(t)
		assert.Equal(t, http.MethodPut, req.Method)
		assert.Equal(t, "/enrollments/device-42", req.URL.Path)
		assert.Empty(t, req.Header.Get("If-Match"))

		var body map[string]any
		require.NoError(t, json.Unmarshal([]byte(mock.bodies[0]), &body))
		assert.Equal(t, "device-42", body["registrationId"])
		assert.Equal(t, "disabled", body["provisioningStatus"])
		assert.Equal(t, "contoso-hub.azure-devices.net", body["iotHubHostName"])
		assert.Equal(t, map[string]any{
			"type":         "symmetricKey",
			"symmetricKey": map[string]any{"primaryKey": "", "secondaryKey": ""},
		}, body["attestation"])

		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(stderr), &record))
		assert.Equal(t, "enrollment stored", record["msg"])
		assert.Equal(t, "device-01", record["registration_id"])
	})

	t.Run("random registration ID", func(t *testing.T) {
		mock := &mockHTTPClient{status: http.StatusOK, body: string(testdata.EnrollmentJSON)}
		useMockHTTPClient(t, mock)

		_, _, err := runApp(t, "enrollment", "create", "--connection-string", testConnectionString)
		require.NoError(t, err)

		var body map[string]any
		require.NoError(t, json.Unmarshal([]byte(mock.bodies[0]), &body))
		assert.Len(t, body["registrationId"], 36)
	})

	t.Run("from document keeps etag", func(t *testing.T) {
		mock := &mockHTTPClient{status: http.StatusOK, body: string(testdata.EnrollmentJSON)}
		useMockHTTPClient(t, mock)

		_, _, err := runApp(t, "enrollment", "create",
			"--connection-string", testConnectionString,
			"--file", writeFile(t, "enrollment.json", testdata.EnrollmentJSON))
		require.NoError(t, err)

		req := mock.lastRequest(t)
		assert.Equal(t, "/enrollments/device-01", req.URL.Path)
		assert.Equal(t, `"00000000-0000-0000-0000-000000000000"`, req.Header.Get("If-Match"))
	})

	t.Run("invalid registration ID is rejected before sending", func(t *testing.T) {
		mock := &mockHTTPClient{status: http.StatusOK}
		useMockHTTPClient(t, mock)

		_, _, err := runApp(t, "enrollment", "create",
			"--connection-string", testConnectionString,
			"--registration-id", "Not Valid")
		require.ErrorIs(t, err, api.ErrInvalidArgument)
		assert.Empty(t, mock.requests)
	})
}

func TestDeleteEnrollment(t *testing.T) {
	mock := &mockHTTPClient{status: http.StatusNoContent}
	useMockHTTPClient(t, mock)

	_, _, err := runApp(t, "enrollment", "delete",
		"--connection-string", testConnectionString,
		"--registration-id", "device-01",
		"--etag", `"AAAA"`)
	require.NoError(t, err)

	req := mock.lastRequest(t)
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, `"AAAA"`, req.Header.Get("If-Match"))
}

func TestBulkEnrollment(t *testing.T) {
	list := []byte(`[
		{"registrationId": "device-01", "attestation": {"type": "tpm", "tpm": {"endorsementKey": "ek1"}}},
		{"registrationId": "device-02", "attestation": {"type": "tpm", "tpm": {"endorsementKey": "ek2"}}}
	]`)
	path := writeFile(t, "bulk.json", list)

	t.Run("success", func(t *testing.T) {
		mock := &mockHTTPClient{status: http.StatusOK, body: `{"isSuccessful": true, "errors": []}`}
		useMockHTTPClient(t, mock)

		out, _, err := runApp(t, "enrollment", "bulk",
			"--connection-string", testConnectionString,
			"--file", path,
			"--mode", "update")
		require.NoError(t, err)
		require.Contains(t, out, "update applied to 2 enrollments")

		req := mock.lastRequest(t)
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "/enrollments", req.URL.Path)

		var body map[string]any
		require.NoError(t, json.Unmarshal([]byte(mock.bodies[0]), &body))
		assert.Equal(t, "update", body["mode"])
		assert.Len(t, body["enrollments"], 2)
	})

	t.Run("partial failure", func(t *testing.T) {
		useMockHTTPClient(t, &mockHTTPClient{status: http.StatusOK, body: `{
			"isSuccessful": false,
			"errors": [{"registrationId": "device-02", "errorCode": 409201, "errorStatus": "Conflict"}]
		}`})

		out, _, err := runApp(t, "enrollment", "bulk", "--connection-string", testConnectionString, "--file", path)
		require.ErrorContains(t, err, "1 of 2 enrollments")
		require.Contains(t, out, "device-02: 409201 Conflict")
	})

	t.Run("unknown mode", func(t *testing.T) {
		mock := &mockHTTPClient{status: http.StatusOK}
		useMockHTTPClient(t, mock)

		_, _, err := runApp(t, "enrollment", "bulk",
			"--connection-string", testConnectionString,
			"--file", path,
			"--mode", "upsert")
		require.ErrorIs(t, err, api.ErrInvalidArgument)
		assert.Empty(t, mock.requests)
	})

	t.Run("not a list", func(t *testing.T) {
		_, _, err := runApp(t, "enrollment", "bulk",
			"--connection-string", testConnectionString,
			"--file", writeFile(t, "bad.json", []byte(`"device-01"`)))
		require.Error(t, err)
	})
}

func TestGroupCommand(t *testing.T) {
	cmd := GroupCommand()
	require.Equal(t, "group", cmd.Name)
	require.Len(t, cmd.Commands, 3)

	t.Run("get", func(t *testing.T) {
		mock := &mockHTTPClient{status: http.StatusOK, body: string(testdata.GroupJSON)}
		useMockHTTPClient(t, mock)

		out, _, err := runApp(t, "group", "get", "--connection-string", testConnectionString, "--group-id", "floor-2")
		require.NoError(t, err)
		assert.Equal(t, "/enrollmentGroups/floor-2", mock.lastRequest(t).URL.Path)
		require.Contains(t, out, "Enrollment Group ID: floor-2")
		require.Contains(t, out, "Primary: contoso-root-ca")
	})

	t.Run("create", func(t *testing.T) {
		mock := &mockHTTPClient{status: http.StatusOK, body: string(testdata.GroupJSON)}
		useMockHTTPClient(t, mock)

		_, _, err := runApp(t, "group", "create",
			"--connection-string", testConnectionString,
			"--file", writeFile(t, "group.json", testdata.GroupJSON))
		require.NoError(t, err)

		req := mock.lastRequest(t)
		assert.Equal(t, http.MethodPut, req.Method)
		assert.Equal(t, "/enrollmentGroups/floor-2", req.URL.Path)
	})

	t.Run("create rejects TPM", func(t *testing.T) {
		mock := &mockHTTPClient{status: http.StatusOK}
		useMockHTTPClient(t, mock)

		_, _, err := runApp(t, "group", "create",
			"--connection-string", testConnectionString,
			"--file", writeFile(t, "group.json", []byte(`{
				"enrollmentGroupId": "floor-2",
				"attestation": {"type": "tpm", "tpm": {"endorsementKey": "ek"}}
			}`)))
		require.ErrorIs(t, err, api.ErrInvalidArgument)
		assert.Empty(t, mock.requests)
	})

	t.Run("delete", func(t *testing.T) {
		mock := &mockHTTPClient{status: http.StatusNoContent}
		useMockHTTPClient(t, mock)

		_, _, err := runApp(t, "group", "delete", "--connection-string", testConnectionString, "--group-id", "floor-2")
		require.NoError(t, err)
		assert.Equal(t, http.MethodDelete, mock.lastRequest(t).Method)
	})
}

func TestRegistrationCommand(t *testing.T) {
	t.Run("get", func(t *testing.T) {
		mock := &mockHTTPClient{status: http.StatusOK, body: `{
			"registrationId": "device-01",
			"status": "assigned",
			"assignedHub": "contoso-hub.azure-devices.net",
			"deviceId": "device-01"
		}`}
		useMockHTTPClient(t, mock)

		out, _, err := runApp(t, "registration", "get",
			"--connection-string", testConnectionString,
			"--registration-id", "device-01")
		require.NoError(t, err)
		assert.Equal(t, "/registrations/device-01", mock.lastRequest(t).URL.Path)
		require.Contains(t, out, "Status: assigned")
		require.Contains(t, out, "Assigned Hub: contoso-hub.azure-devices.net")
	})

	t.Run("delete", func(t *testing.T) {
		mock := &mockHTTPClient{status: http.StatusNoContent}
		useMockHTTPClient(t, mock)

		_, _, err := runApp(t, "registration", "delete",
			"--connection-string", testConnectionString,
			"--registration-id", "device-01")
		require.NoError(t, err)
		assert.Equal(t, http.MethodDelete, mock.lastRequest(t).Method)
	})
}

func TestConfigFile(t *testing.T) {
	path := writeFile(t, "config.yaml", []byte(`
host: override.azure-devices-provisioning.net
connectionString: "`+testConnectionString+`"
apiVersion: "2019-03-31"
log:
  json: true
  service: provisioning-cli
`))

	mock := &mockHTTPClient{status: http.StatusNoContent}
	useMockHTTPClient(t, mock)

	_, stderr, err := runApp(t, "--config", path, "registration", "delete", "--registration-id", "device-01")
	require.NoError(t, err)

	req := mock.lastRequest(t)
	assert.Equal(t, "override.azure-devices-provisioning.net", req.URL.Host)
	assert.Equal(t, "2019-03-31", req.URL.Query().Get("api-version"))

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(stderr), &record))
	assert.Equal(t, "provisioning-cli", record["service"])
	assert.Equal(t, "registration state deleted", record["msg"])

	t.Run("host flag wins over file", func(t *testing.T) {
		mock := &mockHTTPClient{status: http.StatusNoContent}
		useMockHTTPClient(t, mock)

		_, _, err := runApp(t, "--config", path, "registration", "delete",
			"--host", "flag.azure-devices-provisioning.net",
			"--registration-id", "device-01")
		require.NoError(t, err)
		assert.Equal(t, "flag.azure-devices-provisioning.net", mock.lastRequest(t).URL.Host)
	})

	t.Run("invalid file", func(t *testing.T) {
		bad := writeFile(t, "bad.yaml", []byte("keyName: a\nconnectionString: b\n"))
		_, _, err := runApp(t, "--config", bad, "registration", "get", "--registration-id", "device-01")
		require.Error(t, err)
	})
}
