// Package wire provides the primitives the provisioning data model is built on:
// a generic JSON value tree, a UTC date-time parser/formatter and validators for
// the identifiers the service accepts.
//
// # Generic values
//
// Parse decodes arbitrary JSON into a tree made of map[string]any, []any, string,
// bool, nil and json.Number. Numbers are kept as json.Number so that integers such
// as metadata versions are never rounded through float64:
//
//	raw, err := wire.Parse(body)
//	if err != nil {
//		return err
//	}
//	collection, err := twin.ExtractCollection(raw)
//
// Stringify and StringifyIndent render a generic tree back to JSON text.
// Normalize converts trees built by other decoders (YAML, hand written Go
// literals) into the same generic form.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"
)

// ErrInvalidJSON is returned when input is not a single well-formed JSON value.
var ErrInvalidJSON = errors.New("invalid JSON")

// Parse decodes a single JSON value into a generic tree.
func Parse(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	// Anything after the first value is garbage
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: unexpected data after top-level value", ErrInvalidJSON)
	}

	return v, nil
}

// Stringify renders a generic tree as compact JSON.
func Stringify(v any) (string, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to stringify value: %w", err)
	}
	return string(out), nil
}

// StringifyIndent renders a generic tree as indented JSON.
func StringifyIndent(v any) (string, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to stringify value: %w", err)
	}
	return string(out), nil
}

// Normalize converts v into the generic form produced by Parse. Maps keyed by
// anything other than strings are rejected. Integers and floats become
// json.Number.
func Normalize(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool, json.Number:
		return val, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			n, err := Normalize(child)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("%w: map key %v is not a string", ErrInvalidJSON, k)
			}
			n, err := Normalize(child)
			if err != nil {
				return nil, err
			}
			out[key] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			n, err := Normalize(child)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case int:
		return json.Number(strconv.FormatInt(int64(val), 10)), nil
	case int32:
		return json.Number(strconv.FormatInt(int64(val), 10)), nil
	case int64:
		return json.Number(strconv.FormatInt(val, 10)), nil
	case uint:
		return json.Number(strconv.FormatUint(uint64(val), 10)), nil
	case uint64:
		return json.Number(strconv.FormatUint(val, 10)), nil
	case float32:
		return normalizeFloat(float64(val))
	case float64:
		return normalizeFloat(val)
	case time.Time:
		return FormatDateTime(val), nil
	default:
		return nil, fmt.Errorf("%w: unsupported value type %T", ErrInvalidJSON, v)
	}
}

func normalizeFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %v is not representable", ErrInvalidJSON, f)
	}
	return json.Number(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// Int64 reports the integer held by a generic number value.
func Int64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	case float64:
		if n != math.Trunc(n) || n >= math.MaxInt64 || n < math.MinInt64 {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DeepCopy copies a generic tree. Scalars are returned as is.
func DeepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = DeepCopy(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = DeepCopy(child)
		}
		return out
	default:
		return val
	}
}
