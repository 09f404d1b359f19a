package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anchorageoss/provisioningclient/crypto"
	"github.com/anchorageoss/provisioningclient/wire"
)

const (
	// DefaultAPIVersion is the service API version sent when none is configured.
	DefaultAPIVersion = "2021-10-01"

	defaultTokenTTL = time.Hour
)

// HTTPClient interface for dependency injection
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements the provisioning service client
type Client struct {
	HostURI    string
	HTTPClient HTTPClient
	Credential *Credential
	Logger     *slog.Logger
	APIVersion string
	TokenTTL   time.Duration

	now func() time.Time
}

// NewClient creates a new provisioning service client with a credential
// provider. An empty hostURI is derived from the credential's host name.
func NewClient(hostURI string, httpClient HTTPClient, provider CredentialProvider) (*Client, error) {
	credential, err := provider.GetCredential(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	if hostURI == "" {
		hostURI = "https://" + credential.HostName
	}

	return &Client{
		HostURI:    strings.TrimSuffix(hostURI, "/"),
		HTTPClient: httpClient,
		Credential: credential,
		APIVersion: DefaultAPIVersion,
		TokenTTL:   defaultTokenTTL,
	}, nil
}

// CreateOrUpdateIndividualEnrollment stores an enrollment. A known ETag makes
// the update conditional.
func (c *Client) CreateOrUpdateIndividualEnrollment(ctx context.Context, enrollment *IndividualEnrollment) (*IndividualEnrollment, error) {
	if enrollment == nil {
		return nil, fmt.Errorf("%w: enrollment must not be nil", ErrInvalidArgument)
	}
	if err := enrollment.Validate(); err != nil {
		return nil, err
	}

	raw, err := c.do(ctx, http.MethodPut, enrollmentPath(enrollment.RegistrationID), enrollment.ETag, enrollment.ToJSON())
	if err != nil {
		return nil, err
	}
	return DecodeIndividualEnrollment(raw)
}

// GetIndividualEnrollment retrieves an enrollment by registration ID.
func (c *Client) GetIndividualEnrollment(ctx context.Context, registrationID string) (*IndividualEnrollment, error) {
	if err := wire.ValidateRegistrationID(registrationID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	raw, err := c.do(ctx, http.MethodGet, enrollmentPath(registrationID), "", nil)
	if err != nil {
		return nil, err
	}
	return DecodeIndividualEnrollment(raw)
}

// DeleteIndividualEnrollment removes an enrollment. A non-empty etag makes the
// delete conditional.
func (c *Client) DeleteIndividualEnrollment(ctx context.Context, registrationID, etag string) error {
	if err := wire.ValidateRegistrationID(registrationID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	_, err := c.do(ctx, http.MethodDelete, enrollmentPath(registrationID), etag, nil)
	return err
}

// RunBulkEnrollmentOperation applies one mode to several enrollments in a
// single request.
func (c *Client) RunBulkEnrollmentOperation(ctx context.Context, op *BulkEnrollmentOperation) (*BulkEnrollmentOperationResult, error) {
	if op == nil {
		return nil, fmt.Errorf("%w: bulk operation must not be nil", ErrInvalidArgument)
	}
	if err := op.Validate(); err != nil {
		return nil, err
	}

	raw, err := c.do(ctx, http.MethodPost, "/enrollments", "", op.ToJSON())
	if err != nil {
		return nil, err
	}
	return DecodeBulkEnrollmentOperationResult(raw)
}

// CreateOrUpdateEnrollmentGroup stores an enrollment group.
func (c *Client) CreateOrUpdateEnrollmentGroup(ctx context.Context, group *EnrollmentGroup) (*EnrollmentGroup, error) {
	if group == nil {
		return nil, fmt.Errorf("%w: enrollment group must not be nil", ErrInvalidArgument)
	}
	if err := group.Validate(); err != nil {
		return nil, err
	}

	raw, err := c.do(ctx, http.MethodPut, groupPath(group.EnrollmentGroupID), group.ETag, group.ToJSON())
	if err != nil {
		return nil, err
	}
	return DecodeEnrollmentGroup(raw)
}

// GetEnrollmentGroup retrieves an enrollment group by ID.
func (c *Client) GetEnrollmentGroup(ctx context.Context, enrollmentGroupID string) (*EnrollmentGroup, error) {
	if err := wire.ValidateRegistrationID(enrollmentGroupID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	raw, err := c.do(ctx, http.MethodGet, groupPath(enrollmentGroupID), "", nil)
	if err != nil {
		return nil, err
	}
	return DecodeEnrollmentGroup(raw)
}

// DeleteEnrollmentGroup removes an enrollment group.
func (c *Client) DeleteEnrollmentGroup(ctx context.Context, enrollmentGroupID, etag string) error {
	if err := wire.ValidateRegistrationID(enrollmentGroupID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	_, err := c.do(ctx, http.MethodDelete, groupPath(enrollmentGroupID), etag, nil)
	return err
}

// GetDeviceRegistrationState retrieves the registration state of a device.
func (c *Client) GetDeviceRegistrationState(ctx context.Context, registrationID string) (*DeviceRegistrationState, error) {
	if err := wire.ValidateRegistrationID(registrationID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	raw, err := c.do(ctx, http.MethodGet, registrationPath(registrationID), "", nil)
	if err != nil {
		return nil, err
	}
	return DecodeDeviceRegistrationState(raw)
}

// DeleteDeviceRegistrationState removes the registration state of a device so
// it provisions again on its next attempt.
func (c *Client) DeleteDeviceRegistrationState(ctx context.Context, registrationID, etag string) error {
	if err := wire.ValidateRegistrationID(registrationID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	_, err := c.do(ctx, http.MethodDelete, registrationPath(registrationID), etag, nil)
	return err
}

func enrollmentPath(id string) string   { return "/enrollments/" + url.PathEscape(id) }
func groupPath(id string) string        { return "/enrollmentGroups/" + url.PathEscape(id) }
func registrationPath(id string) string { return "/registrations/" + url.PathEscape(id) }

// do sends one request and returns the parsed response body, or nil when the
// service returned no content.
func (c *Client) do(ctx context.Context, method, path, etag string, body map[string]any) (any, error) {
	logger := c.logger()

	var reqBody io.Reader
	if body != nil {
		encoded, err := wire.Stringify(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBufferString(encoded)
	}

	apiVersion := c.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	reqURL := fmt.Sprintf("%s%s?api-version=%s", c.HostURI, path, url.QueryEscape(apiVersion))

	httpReq, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	token, err := c.authorization()
	if err != nil {
		return nil, fmt.Errorf("failed to generate authorization: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Authorization", token)
	httpReq.Header.Set("Request-Id", requestID)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	if etag != "" {
		httpReq.Header.Set("If-Match", etag)
	}

	logger.Debug("sending request", "method", method, "path", path, "request_id", requestID)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to provisioning service: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		svcErr := newServiceError(resp.StatusCode, respBody)
		logger.Warn("provisioning service request failed",
			"method", method,
			"path", path,
			"request_id", requestID,
			"status", resp.StatusCode,
			"error_code", svcErr.ErrorCode,
			"tracking_id", svcErr.TrackingID,
		)
		return nil, svcErr
	}

	logger.Debug("received response", "path", path, "request_id", requestID, "status", resp.StatusCode)

	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil, nil
	}
	raw, err := wire.Parse(respBody)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return raw, nil
}

func (c *Client) authorization() (string, error) {
	if c.Credential == nil {
		return "", fmt.Errorf("%w: client has no credential", ErrInvalidArgument)
	}

	now := time.Now
	if c.now != nil {
		now = c.now
	}
	ttl := c.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	return crypto.GenerateSASToken(c.Credential.HostName, c.Credential.KeyName, c.Credential.Key, now().Add(ttl))
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.DiscardHandler)
}
