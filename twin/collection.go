// Package twin holds the initial device twin sent with an enrollment: tags and
// desired properties, each a nested Collection.
//
// # Wire format
//
// The service annotates a collection with reserved sibling keys:
//
//	{
//	  "MaxSpeed": {
//	    "Value": 500,
//	    "$metadata": {
//	      "$lastUpdated": "2017-09-21T02:07:44.238Z",
//	      "$lastUpdatedVersion": 3,
//	      "Value": {"$lastUpdated": "2017-09-21T02:07:44.238Z", "$lastUpdatedVersion": 5}
//	    }
//	  },
//	  "$metadata": {"$lastUpdated": "2017-09-21T02:07:44.238Z", "$lastUpdatedVersion": 4},
//	  "$version": 4
//	}
//
// ExtractCollection separates such a document into clean values and a shadow
// metadata tree. ToJSON renders the values alone, ToJSONWithMetadata renders
// the annotated form again.
//
// Metadata for a nested collection may also appear under the parent's
// $metadata block keyed by the child name. Both layouts are accepted; when a
// node carries its own $metadata block it wins over the parent's entry.
package twin

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/anchorageoss/provisioningclient/wire"
)

// Collection is an ordered mapping from key to value. A value is a JSON
// scalar, an array, nil or a nested *Collection. Metadata is kept beside the
// values and never appears in them.
//
// Extracted collections list their keys in lexical order; keys added with Set
// follow in insertion order. The zero value is an empty collection.
type Collection struct {
	keys   []string
	values map[string]any

	metadata     *Metadata
	leafMetadata map[string]*Metadata
	version      *int64
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{
		values:       map[string]any{},
		leafMetadata: map[string]*Metadata{},
	}
}

// ExtractCollection builds a collection from a parsed JSON object, moving every
// reserved key into the shadow metadata tree.
func ExtractCollection(raw any) (*Collection, error) {
	obj, ok := wire.Object(raw)
	if !ok {
		return nil, fmt.Errorf("%w: twin collection must be an object, got %T", ErrInvalidArgument, raw)
	}
	return extract(obj, nil, "")
}

func extract(obj map[string]any, inherited map[string]any, path string) (*Collection, error) {
	c := NewCollection()

	block := map[string]any{}
	for k, v := range inherited {
		block[k] = v
	}
	if own, ok := obj[KeyMetadata]; ok && own != nil {
		ownBlock, isObject := wire.Object(own)
		if !isObject {
			return nil, fmt.Errorf("%w: %s%s must be an object, got %T", ErrMalformedMetadata, path, KeyMetadata, own)
		}
		for k, v := range ownBlock {
			block[k] = v
		}
	}
	for _, k := range []string{KeyLastUpdated, KeyLastUpdatedVersion} {
		if v, ok := obj[k]; ok {
			block[k] = v
		}
	}

	meta, err := decodeMetadata(block)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", nodeName(path), err)
	}
	c.metadata = meta

	if raw, ok := obj[KeyVersion]; ok && raw != nil {
		v, isInt := wire.Int64(raw)
		if !isInt {
			return nil, fmt.Errorf("%w: %s%s must be an integer, got %v", ErrMalformedMetadata, path, KeyVersion, raw)
		}
		c.version = &v
	}

	for _, key := range wire.SortedKeys(obj) {
		if IsReservedKey(key) {
			continue
		}

		var childBlock map[string]any
		if rawMeta, ok := block[key]; ok && rawMeta != nil {
			m, isObject := wire.Object(rawMeta)
			if !isObject {
				return nil, fmt.Errorf("%w: metadata for %s%s must be an object, got %T", ErrMalformedMetadata, path, key, rawMeta)
			}
			childBlock = m
		}

		value := obj[key]
		if child, isObject := wire.Object(value); isObject {
			nested, err := extract(child, childBlock, path+key+".")
			if err != nil {
				return nil, err
			}
			c.keys = append(c.keys, key)
			c.values[key] = nested
			continue
		}

		c.keys = append(c.keys, key)
		c.values[key] = wire.DeepCopy(value)
		if childBlock != nil {
			leafMeta, err := decodeMetadata(childBlock)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", nodeName(path+key), err)
			}
			if leafMeta != nil {
				c.leafMetadata[key] = leafMeta
			}
		}
	}

	return c, nil
}

func nodeName(path string) string {
	if path == "" {
		return "root"
	}
	if path[len(path)-1] == '.' {
		return path[:len(path)-1]
	}
	return path
}

// Set stores value under key, replacing any previous value and its metadata.
// Objects are extracted into nested collections.
func (c *Collection) Set(key string, value any) error {
	if IsReservedKey(key) {
		return fmt.Errorf("%w: %q is a reserved key", ErrInvalidArgument, key)
	}
	if c.values == nil {
		c.values = map[string]any{}
	}
	if c.leafMetadata == nil {
		c.leafMetadata = map[string]*Metadata{}
	}

	var stored any
	switch v := value.(type) {
	case *Collection:
		if v == nil {
			stored = nil
		} else {
			stored = v.Clone()
		}
	default:
		normalized, err := wire.Normalize(v)
		if err != nil {
			return fmt.Errorf("%w: value for %q: %w", ErrInvalidArgument, key, err)
		}
		if obj, isObject := wire.Object(normalized); isObject {
			nested, err := ExtractCollection(obj)
			if err != nil {
				return err
			}
			stored = nested
		} else {
			stored = normalized
		}
	}

	if _, exists := c.values[key]; !exists {
		c.keys = append(c.keys, key)
	}
	c.values[key] = stored
	delete(c.leafMetadata, key)
	return nil
}

// Get returns the value stored under key. Nested collections are returned as
// *Collection.
func (c *Collection) Get(key string) (any, bool) {
	v, ok := c.values[key]
	if !ok {
		return nil, false
	}
	if nested, isCollection := v.(*Collection); isCollection {
		return nested, true
	}
	return wire.DeepCopy(v), true
}

// Keys returns the keys in order.
func (c *Collection) Keys() []string {
	return slices.Clone(c.keys)
}

func (c *Collection) Len() int {
	return len(c.keys)
}

// Metadata returns the metadata of the collection node itself, or nil.
func (c *Collection) Metadata() *Metadata {
	return c.metadata.clone()
}

// MetadataFor returns the metadata of the child stored under key, or nil.
func (c *Collection) MetadataFor(key string) *Metadata {
	if nested, ok := c.values[key].(*Collection); ok {
		return nested.Metadata()
	}
	return c.leafMetadata[key].clone()
}

// Version returns the $version recorded at this level, if any.
func (c *Collection) Version() (int64, bool) {
	if c.version == nil {
		return 0, false
	}
	return *c.version, true
}

// Clone returns a deep copy including metadata.
func (c *Collection) Clone() *Collection {
	out := NewCollection()
	out.keys = slices.Clone(c.keys)
	for k, v := range c.values {
		if nested, ok := v.(*Collection); ok {
			out.values[k] = nested.Clone()
		} else {
			out.values[k] = wire.DeepCopy(v)
		}
	}
	out.metadata = c.metadata.clone()
	for k, m := range c.leafMetadata {
		out.leafMetadata[k] = m.clone()
	}
	if c.version != nil {
		v := *c.version
		out.version = &v
	}
	return out
}

// ToJSON renders the values only, without any reserved key.
func (c *Collection) ToJSON() map[string]any {
	out := make(map[string]any, len(c.keys))
	for _, k := range c.keys {
		if nested, ok := c.values[k].(*Collection); ok {
			out[k] = nested.ToJSON()
		} else {
			out[k] = wire.DeepCopy(c.values[k])
		}
	}
	return out
}

// ToJSONWithMetadata renders the values interleaved with $metadata blocks at
// every level that has metadata, and $version where one was recorded.
func (c *Collection) ToJSONWithMetadata() map[string]any {
	out := make(map[string]any, len(c.keys)+2)
	block := map[string]any{}
	if c.metadata != nil {
		for k, v := range c.metadata.toJSON() {
			block[k] = v
		}
	}

	for _, k := range c.keys {
		if nested, ok := c.values[k].(*Collection); ok {
			out[k] = nested.ToJSONWithMetadata()
			continue
		}
		out[k] = wire.DeepCopy(c.values[k])
		if m := c.leafMetadata[k]; m != nil {
			block[k] = m.toJSON()
		}
	}

	if len(block) > 0 {
		out[KeyMetadata] = block
	}
	if c.version != nil {
		out[KeyVersion] = *c.version
	}
	return out
}

// MarshalJSON renders the plain form.
func (c *Collection) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.ToJSON())
}

// UnmarshalJSON accepts either form.
func (c *Collection) UnmarshalJSON(data []byte) error {
	raw, err := wire.Parse(data)
	if err != nil {
		return err
	}
	extracted, err := ExtractCollection(raw)
	if err != nil {
		return err
	}
	*c = *extracted
	return nil
}

// String renders the with-metadata form, indented.
func (c *Collection) String() string {
	s, err := wire.StringifyIndent(c.ToJSONWithMetadata())
	if err != nil {
		return fmt.Sprintf("<invalid twin collection: %v>", err)
	}
	return s
}
