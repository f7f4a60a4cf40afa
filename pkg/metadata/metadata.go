package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// Keys of the known bag fields.
const (
	KeyText           = "text"
	KeyCollapsed      = "collapsed"
	KeyIsMindmap      = "isMindmap"
	KeyLevel          = "level"
	KeyFolderExplorer = "folderExplorer"
	KeyConvertedFrom  = "convertedFrom"
)

var knownKeys = []string{KeyText, KeyCollapsed, KeyIsMindmap, KeyLevel, KeyFolderExplorer, KeyConvertedFrom}

// IsKnownKey reports whether key is one of the typed bag fields.
func IsKnownKey(key string) bool { return slices.Contains(knownKeys, key) }

// DataBag is the extensible per-node metadata structure.
//
// The zero value is an empty bag. Decode puts a known key into Extra when
// its value is null or does not fit the typed field, so the value survives
// a round trip. On encode a set typed field wins over such an entry.
type DataBag struct {
	Text           *string
	Collapsed      *bool
	IsMindmap      *bool
	Level          *int
	FolderExplorer *FolderExplorer
	// ConvertedFrom records the shape kind a node had before it was
	// converted to rich content. Empty when the node was never converted.
	ConvertedFrom string
	// Extra holds caller-defined fields, preserved opaquely.
	Extra map[string]any
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// TextOr returns the text field, or def when it is absent.
func (b DataBag) TextOr(def string) string {
	if b.Text == nil {
		return def
	}
	return *b.Text
}

// SetText sets the text field.
func (b *DataBag) SetText(s string) { b.Text = Ptr(s) }

// IsCollapsed reports the collapse state. Absent means expanded.
func (b DataBag) IsCollapsed() bool { return b.Collapsed != nil && *b.Collapsed }

// IsFolderExplorer reports whether the bag binds the node to a path.
func (b DataBag) IsFolderExplorer() bool {
	return b.FolderExplorer != nil && b.FolderExplorer.IsFolderExplorer
}

// IsEmpty reports whether no field is set.
func (b DataBag) IsEmpty() bool {
	return b.Text == nil && b.Collapsed == nil && b.IsMindmap == nil && b.Level == nil &&
		b.FolderExplorer == nil && b.ConvertedFrom == "" && len(b.Extra) == 0
}

// Clone returns a deep copy of b. Nested maps and slices in Extra are copied
// recursively so the clone shares no mutable state with b.
func (b DataBag) Clone() DataBag {
	c := DataBag{
		FolderExplorer: b.FolderExplorer.Clone(),
		ConvertedFrom:  b.ConvertedFrom,
	}
	if b.Text != nil {
		c.Text = Ptr(*b.Text)
	}
	if b.Collapsed != nil {
		c.Collapsed = Ptr(*b.Collapsed)
	}
	if b.IsMindmap != nil {
		c.IsMindmap = Ptr(*b.IsMindmap)
	}
	if b.Level != nil {
		c.Level = Ptr(*b.Level)
	}
	if b.Extra != nil {
		c.Extra = make(map[string]any, len(b.Extra))
		for k, v := range b.Extra {
			c.Extra[k] = CloneValue(v)
		}
	}
	return c
}

// Equal reports whether b and other hold deep-equal values. A nil Extra and
// an empty Extra are considered equal.
func (b DataBag) Equal(other DataBag) bool {
	if !eqPtr(b.Text, other.Text) || !eqPtr(b.Collapsed, other.Collapsed) ||
		!eqPtr(b.IsMindmap, other.IsMindmap) || !eqPtr(b.Level, other.Level) {
		return false
	}
	if b.ConvertedFrom != other.ConvertedFrom {
		return false
	}
	if !reflect.DeepEqual(b.FolderExplorer, other.FolderExplorer) {
		return false
	}
	if len(b.Extra) == 0 && len(other.Extra) == 0 {
		return true
	}
	return reflect.DeepEqual(b.Extra, other.Extra)
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// CloneValue deep-copies the JSON-shaped values found in Extra and similar
// free-form maps. Other values are returned as is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = CloneValue(vv)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = CloneValue(vv)
		}
		return s
	case []string:
		return slices.Clone(t)
	case json.RawMessage:
		return slices.Clone(t)
	default:
		return v
	}
}

// MarshalJSON encodes known fields and Extra as one flat object with
// sorted keys.
func (b DataBag) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(b.Extra)+len(knownKeys))
	for k, v := range b.Extra {
		fields[k] = v
	}
	if b.Text != nil {
		fields[KeyText] = *b.Text
	}
	if b.Collapsed != nil {
		fields[KeyCollapsed] = *b.Collapsed
	}
	if b.IsMindmap != nil {
		fields[KeyIsMindmap] = *b.IsMindmap
	}
	if b.Level != nil {
		fields[KeyLevel] = *b.Level
	}
	if b.FolderExplorer != nil {
		fields[KeyFolderExplorer] = b.FolderExplorer
	}
	if b.ConvertedFrom != "" {
		fields[KeyConvertedFrom] = b.ConvertedFrom
	}
	return json.Marshal(fields)
}

// UnmarshalJSON decodes a flat object, routing known keys to typed fields and
// everything else to Extra. Numbers in Extra decode as json.Number.
func (b *DataBag) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out DataBag
	for _, k := range slices.Sorted(maps.Keys(raw)) {
		v := raw[k]
		if IsKnownKey(k) && !isNull(v) && out.decodeKnown(k, v) {
			continue
		}
		val, err := decodeOpaque(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		if out.Extra == nil {
			out.Extra = make(map[string]any)
		}
		out.Extra[k] = val
	}
	*b = out
	return nil
}

// decodeKnown sets the typed field for k and reports whether v fit it.
// Values are decoded into temporaries so a failed decode leaves b as is.
func (b *DataBag) decodeKnown(k string, v json.RawMessage) bool {
	switch k {
	case KeyText:
		var s string
		if json.Unmarshal(v, &s) != nil {
			return false
		}
		b.Text = &s
	case KeyCollapsed:
		var x bool
		if json.Unmarshal(v, &x) != nil {
			return false
		}
		b.Collapsed = &x
	case KeyIsMindmap:
		var x bool
		if json.Unmarshal(v, &x) != nil {
			return false
		}
		b.IsMindmap = &x
	case KeyLevel:
		var n int
		if json.Unmarshal(v, &n) != nil {
			return false
		}
		b.Level = &n
	case KeyFolderExplorer:
		var fe FolderExplorer
		if json.Unmarshal(v, &fe) != nil {
			return false
		}
		b.FolderExplorer = &fe
	case KeyConvertedFrom:
		// An empty marker is indistinguishable from no marker.
		var s string
		if json.Unmarshal(v, &s) != nil || s == "" {
			return false
		}
		b.ConvertedFrom = s
	default:
		return false
	}
	return true
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// decodeOpaque decodes v into plain JSON values with json.Number numbers.
func decodeOpaque(v json.RawMessage) (any, error) {
	var val any
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	if err := dec.Decode(&val); err != nil {
		return nil, err
	}
	return val, nil
}
