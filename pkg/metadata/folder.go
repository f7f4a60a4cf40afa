package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// ExplorerType distinguishes folder explorers that track the filesystem
// from one-off snapshots of a directory.
type ExplorerType string

const (
	// ExplorerLinked explorers are refreshed from disk and read-only.
	ExplorerLinked ExplorerType = "linked"
	// ExplorerStatic explorers are a copy of a directory at import time.
	ExplorerStatic ExplorerType = "static"
)

// Valid reports whether t is a known explorer type.
func (t ExplorerType) Valid() bool {
	return t == ExplorerLinked || t == ExplorerStatic
}

// Keys of the folderExplorer object, in encoding order.
const (
	keyIsFolderExplorer = "isFolderExplorer"
	keyExplorerType     = "explorerType"
	keyPath             = "path"
	keyIsDirectory      = "isDirectory"
	keyIsReadOnly       = "isReadOnly"
	keyLastRefreshed    = "lastRefreshed"
)

var explorerKeys = []string{
	keyIsFolderExplorer, keyExplorerType, keyPath, keyIsDirectory, keyIsReadOnly, keyLastRefreshed,
}

// FolderExplorer binds a node to a filesystem path.
//
// A decoded FolderExplorer remembers which known keys were missing. Such a
// key stays missing on encode for as long as its field holds the zero
// value. Unknown sub-keys, and known sub-keys whose value is null or of the
// wrong type, are kept in Extra and encoded after the known keys.
type FolderExplorer struct {
	IsFolderExplorer bool
	ExplorerType     ExplorerType
	Path             string
	IsDirectory      bool
	IsReadOnly       bool
	LastRefreshed    *string
	Extra            map[string]any

	absent map[string]bool
}

// NewFolderExplorer returns explorer metadata for path. Linked explorers are
// read-only by convention.
func NewFolderExplorer(typ ExplorerType, path string, isDir bool) *FolderExplorer {
	return &FolderExplorer{
		IsFolderExplorer: true,
		ExplorerType:     typ,
		Path:             path,
		IsDirectory:      isDir,
		IsReadOnly:       typ == ExplorerLinked,
	}
}

// Clone returns a copy of f, or nil if f is nil.
func (f *FolderExplorer) Clone() *FolderExplorer {
	if f == nil {
		return nil
	}
	c := *f
	if f.LastRefreshed != nil {
		c.LastRefreshed = Ptr(*f.LastRefreshed)
	}
	if f.Extra != nil {
		c.Extra = make(map[string]any, len(f.Extra))
		for k, v := range f.Extra {
			c.Extra[k] = CloneValue(v)
		}
	}
	c.absent = maps.Clone(f.absent)
	return &c
}

// field returns the typed value for a known key and whether it is zero.
func (f FolderExplorer) field(k string) (any, bool) {
	switch k {
	case keyIsFolderExplorer:
		return f.IsFolderExplorer, !f.IsFolderExplorer
	case keyExplorerType:
		return f.ExplorerType, f.ExplorerType == ""
	case keyPath:
		return f.Path, f.Path == ""
	case keyIsDirectory:
		return f.IsDirectory, !f.IsDirectory
	case keyIsReadOnly:
		return f.IsReadOnly, !f.IsReadOnly
	case keyLastRefreshed:
		if f.LastRefreshed == nil {
			return nil, true
		}
		return *f.LastRefreshed, false
	}
	return nil, true
}

// MarshalJSON writes the known keys in a fixed order, then Extra sorted.
func (f FolderExplorer) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(k string, v any) error {
		val, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		key, _ := json.Marshal(k)
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
		return nil
	}

	for _, k := range explorerKeys {
		v, zero := f.field(k)
		if zero && (f.absent[k] || k == keyLastRefreshed) {
			if extra, ok := f.Extra[k]; ok {
				if err := write(k, extra); err != nil {
					return nil, err
				}
			}
			continue
		}
		if err := write(k, v); err != nil {
			return nil, err
		}
	}
	for _, k := range slices.Sorted(maps.Keys(f.Extra)) {
		if slices.Contains(explorerKeys, k) {
			continue
		}
		if err := write(k, f.Extra[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a folderExplorer object. It fails only when data is
// not a JSON object.
func (f *FolderExplorer) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("folderExplorer must be an object")
	}
	var out FolderExplorer
	for _, k := range explorerKeys {
		v, ok := raw[k]
		if !ok {
			out.markAbsent(k)
			continue
		}
		delete(raw, k)
		if !isNull(v) && out.decodeKnown(k, v) {
			continue
		}
		out.markAbsent(k)
		if err := out.keep(k, v); err != nil {
			return err
		}
	}
	for k, v := range raw {
		if err := out.keep(k, v); err != nil {
			return err
		}
	}
	*f = out
	return nil
}

func (f *FolderExplorer) decodeKnown(k string, v json.RawMessage) bool {
	switch k {
	case keyIsFolderExplorer, keyIsDirectory, keyIsReadOnly:
		var x bool
		if json.Unmarshal(v, &x) != nil {
			return false
		}
		switch k {
		case keyIsFolderExplorer:
			f.IsFolderExplorer = x
		case keyIsDirectory:
			f.IsDirectory = x
		default:
			f.IsReadOnly = x
		}
	case keyExplorerType, keyPath, keyLastRefreshed:
		var s string
		if json.Unmarshal(v, &s) != nil {
			return false
		}
		switch k {
		case keyExplorerType:
			f.ExplorerType = ExplorerType(s)
		case keyPath:
			f.Path = s
		default:
			f.LastRefreshed = &s
		}
	default:
		return false
	}
	return true
}

// markAbsent records a missing known key. lastRefreshed needs no entry
// since a nil pointer already encodes as missing.
func (f *FolderExplorer) markAbsent(k string) {
	if k == keyLastRefreshed {
		return
	}
	if f.absent == nil {
		f.absent = make(map[string]bool)
	}
	f.absent[k] = true
}

func (f *FolderExplorer) keep(k string, v json.RawMessage) error {
	val, err := decodeOpaque(v)
	if err != nil {
		return fmt.Errorf("folderExplorer field %q: %w", k, err)
	}
	if f.Extra == nil {
		f.Extra = make(map[string]any)
	}
	f.Extra[k] = val
	return nil
}
