// Package crypto provides the HMAC based signing used by the provisioning
// service.
//
// This package provides:
//   - Shared access signature (SAS) tokens for request authorization
//   - Random symmetric keys for symmetric key attestation
//   - Per-device keys derived from an enrollment group key
//
// # Signing
//
// Generate a SAS token valid for one hour:
//
//	token, err := crypto.GenerateSASToken(hostName, keyName, key, time.Now().Add(time.Hour))
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Key derivation
//
// Devices of a symmetric key enrollment group authenticate with a key derived
// from the group key and their registration ID:
//
//	deviceKey, err := crypto.DeriveDeviceKey(groupKey, "device-01")
//	if err != nil {
//		log.Fatal(err)
//	}
package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// SymmetricKeyLength is the size in bytes of generated symmetric keys.
const SymmetricKeyLength = 64

// ErrInvalidKey is returned when a key is empty or not valid base64.
var ErrInvalidKey = errors.New("invalid key")

// SignHMAC returns the base64 HMAC-SHA256 of data under the base64 encoded key.
func SignHMAC(key string, data []byte) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: key must not be empty", ErrInvalidKey)
	}
	decoded, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return "", fmt.Errorf("%w: failed to decode base64 key: %w", ErrInvalidKey, err)
	}

	mac := hmac.New(sha256.New, decoded)
	mac.Write(data)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// GenerateSASToken creates a SharedAccessSignature authorization value for
// resourceURI that expires at expiry. An empty keyName omits the skn field,
// as used by device tokens.
func GenerateSASToken(resourceURI, keyName, key string, expiry time.Time) (string, error) {
	if resourceURI == "" {
		return "", errors.New("resource URI must not be empty")
	}

	encodedResource := url.QueryEscape(resourceURI)
	se := strconv.FormatInt(expiry.Unix(), 10)

	signature, err := SignHMAC(key, []byte(encodedResource+"\n"+se))
	if err != nil {
		return "", fmt.Errorf("failed to sign SAS token: %w", err)
	}

	token := fmt.Sprintf("SharedAccessSignature sr=%s&sig=%s&se=%s", encodedResource, url.QueryEscape(signature), se)
	if keyName != "" {
		token += "&skn=" + url.QueryEscape(keyName)
	}
	return token, nil
}

// GenerateSymmetricKey returns a random base64 encoded key.
func GenerateSymmetricKey() (string, error) {
	buf := make([]byte, SymmetricKeyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// DeriveDeviceKey derives the key a device of a symmetric key enrollment group
// uses to register.
func DeriveDeviceKey(groupKey, registrationID string) (string, error) {
	if registrationID == "" {
		return "", errors.New("registration ID must not be empty")
	}
	key, err := SignHMAC(groupKey, []byte(registrationID))
	if err != nil {
		return "", fmt.Errorf("failed to derive device key: %w", err)
	}
	return key, nil
}
