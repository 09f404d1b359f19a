// Package testdata provides embedded test fixtures for use across all test packages.
package testdata

import _ "embed"

// TwinJSON is an initial twin whose desired properties carry service metadata
//
//go:embed twin.json
var TwinJSON []byte

// TwinYAML is TwinJSON written as YAML
//
//go:embed twin.yaml
var TwinYAML []byte

// EnrollmentJSON is an individual enrollment as returned by the service
//
//go:embed enrollment.json
var EnrollmentJSON []byte

// GroupJSON is an X.509 enrollment group referencing a registered CA certificate
//
//go:embed group.json
var GroupJSON []byte
