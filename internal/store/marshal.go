package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/calder-games/simcore/internal/trace"
)

// marshalFrameData serializes frame data as canonical JSON. Canonical form
// is used for storage too, not just hashing: the stored bytes are then
// byte-identical to what the fingerprint covered, and a float smuggled into
// frame data fails at save time instead of corrupting verification later.
func marshalFrameData(data map[string]any) (string, error) {
	if data == nil {
		return "", nil
	}
	b, err := trace.MarshalCanonical(data)
	if err != nil {
		return "", fmt.Errorf("marshal frame data: %w", err)
	}
	return string(b), nil
}

// unmarshalFrameData restores frame data from stored JSON. Numbers decode to
// int64 (uint64 when out of int64 range), never float64, so a loaded session
// fingerprints identically to the one that was saved.
func unmarshalFrameData(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var generic map[string]any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("unmarshal frame data: %w", err)
	}
	restored, err := restoreValue(generic)
	if err != nil {
		return nil, fmt.Errorf("unmarshal frame data: %w", err)
	}
	return restored.(map[string]any), nil
}

func restoreValue(v any) (any, error) {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		var u uint64
		if _, err := fmt.Sscan(val.String(), &u); err == nil {
			return u, nil
		}
		return nil, fmt.Errorf("non-integral number in stored frame data: %s", val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			restored, err := restoreValue(elem)
			if err != nil {
				return nil, err
			}
			out[k] = restored
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			restored, err := restoreValue(elem)
			if err != nil {
				return nil, err
			}
			out[i] = restored
		}
		return out, nil
	default:
		return v, nil
	}
}
