package twin

import (
	"encoding/json"
	"fmt"

	"github.com/anchorageoss/provisioningclient/wire"
)

const (
	fieldTags       = "tags"
	fieldProperties = "properties"
	fieldDesired    = "desired"
)

// Properties holds the desired properties of a twin.
type Properties struct {
	desired *Collection
}

// NewProperties stores a re-extracted copy of desired, so the stored
// collection never carries reserved keys in its values.
func NewProperties(desired *Collection) (*Properties, error) {
	if desired == nil {
		return nil, fmt.Errorf("%w: desired properties must not be nil", ErrInvalidArgument)
	}
	c, err := ExtractCollection(desired.ToJSONWithMetadata())
	if err != nil {
		return nil, err
	}
	return &Properties{desired: c}, nil
}

// Desired returns a copy of the desired properties.
func (p *Properties) Desired() *Collection {
	return p.desired.Clone()
}

func (p *Properties) ToJSON() map[string]any {
	return map[string]any{fieldDesired: p.desired.ToJSON()}
}

func (p *Properties) ToJSONWithMetadata() map[string]any {
	return map[string]any{fieldDesired: p.desired.ToJSONWithMetadata()}
}

// DecodeProperties builds properties from a parsed JSON object. A missing
// desired block decodes as an empty collection.
func DecodeProperties(raw any) (*Properties, error) {
	obj, ok := wire.Object(raw)
	if !ok {
		return nil, fmt.Errorf("%w: twin properties must be an object, got %T", ErrInvalidArgument, raw)
	}

	desired := NewCollection()
	if v, present := obj[fieldDesired]; present && v != nil {
		c, err := ExtractCollection(v)
		if err != nil {
			return nil, fmt.Errorf("desired properties: %w", err)
		}
		desired = c
	}
	return &Properties{desired: desired}, nil
}

// State is the initial twin of an enrollment: optional tags and optional
// desired properties.
type State struct {
	tags       *Collection
	properties *Properties
}

// NewState creates a twin state. Either argument may be nil.
func NewState(tags, desired *Collection) (*State, error) {
	s := &State{}
	if tags != nil {
		c, err := ExtractCollection(tags.ToJSONWithMetadata())
		if err != nil {
			return nil, fmt.Errorf("tags: %w", err)
		}
		s.tags = c
	}
	if desired != nil {
		p, err := NewProperties(desired)
		if err != nil {
			return nil, fmt.Errorf("desired properties: %w", err)
		}
		s.properties = p
	}
	return s, nil
}

// Tags returns a copy of the tags, or nil when absent.
func (s *State) Tags() *Collection {
	if s.tags == nil {
		return nil
	}
	return s.tags.Clone()
}

// Properties returns the properties, or nil when absent.
func (s *State) Properties() *Properties {
	if s.properties == nil {
		return nil
	}
	return &Properties{desired: s.properties.desired.Clone()}
}

// ToJSON renders the plain form sent to the service.
func (s *State) ToJSON() map[string]any {
	out := map[string]any{}
	if s.tags != nil {
		out[fieldTags] = s.tags.ToJSON()
	}
	if s.properties != nil {
		out[fieldProperties] = s.properties.ToJSON()
	}
	return out
}

// ToJSONWithMetadata renders the annotated form.
func (s *State) ToJSONWithMetadata() map[string]any {
	out := map[string]any{}
	if s.tags != nil {
		out[fieldTags] = s.tags.ToJSONWithMetadata()
	}
	if s.properties != nil {
		out[fieldProperties] = s.properties.ToJSONWithMetadata()
	}
	return out
}

// Display renders the annotated form as indented JSON for inspection.
func (s *State) Display() string {
	out, err := wire.StringifyIndent(s.ToJSONWithMetadata())
	if err != nil {
		return fmt.Sprintf("<invalid twin state: %v>", err)
	}
	return out
}

// DecodeState builds a twin state from a parsed JSON object.
func DecodeState(raw any) (*State, error) {
	obj, ok := wire.Object(raw)
	if !ok {
		return nil, fmt.Errorf("%w: twin state must be an object, got %T", ErrInvalidArgument, raw)
	}

	s := &State{}
	if v, present := obj[fieldTags]; present && v != nil {
		tags, err := ExtractCollection(v)
		if err != nil {
			return nil, fmt.Errorf("tags: %w", err)
		}
		s.tags = tags
	}
	if v, present := obj[fieldProperties]; present && v != nil {
		p, err := DecodeProperties(v)
		if err != nil {
			return nil, err
		}
		s.properties = p
	}
	return s, nil
}

func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.ToJSON())
}

func (s *State) UnmarshalJSON(data []byte) error {
	raw, err := wire.Parse(data)
	if err != nil {
		return err
	}
	decoded, err := DecodeState(raw)
	if err != nil {
		return err
	}
	*s = *decoded
	return nil
}
