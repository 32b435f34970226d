package eventbus

import "reflect"

// sanitizePayload copies a payload, stripping values that are not
// representable as plain data (functions, channels, unsafe pointers).
// Events must stay serializable so sessions and traces can store them; an
// accidentally captured callback or handle is silently dropped rather than
// smuggled through the bus.
//
// The copy also isolates the bus from later caller mutation of the map.
func sanitizePayload(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}

	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if sv, ok := sanitizeValue(v); ok {
			out[k] = sv
		}
	}
	return out
}

func sanitizeValue(v any) (any, bool) {
	if v == nil {
		return nil, true
	}

	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil, false
	case reflect.Map:
		if m, ok := v.(map[string]any); ok {
			return sanitizePayload(m), true
		}
		return v, true
	case reflect.Slice:
		if s, ok := v.([]any); ok {
			out := make([]any, 0, len(s))
			for _, item := range s {
				if sv, ok := sanitizeValue(item); ok {
					out = append(out, sv)
				}
			}
			return out, true
		}
		return v, true
	default:
		return v, true
	}
}
