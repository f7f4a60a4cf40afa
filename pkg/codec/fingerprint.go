package codec

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"lukechampine.com/blake3"
)

// Fingerprint returns the hex BLAKE3 hash of g's canonical JSON form.
func Fingerprint(g Source) (string, error) {
	data, err := CanonicalJSON(FromSource(g))
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// FingerprintBytes fingerprints an encoded document without decoding it
// into a store. For any g, FingerprintBytes of Encode(g) equals
// Fingerprint(g).
func FingerprintBytes(payload []byte) (string, error) {
	var obj any
	if err := unmarshalNumbers(payload, &obj); err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, obj); err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	sum := blake3.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

// CanonicalJSON encodes v as compact JSON with object keys sorted at every
// level. Numbers keep their exact text.
func CanonicalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var obj any
	if err := unmarshalNumbers(data, &obj); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, obj); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		buf.WriteByte('{')
		for i, k := range slices.Sorted(maps.Keys(val)) {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(data)
	}
	return nil
}
