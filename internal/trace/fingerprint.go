package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/calder-games/simcore/internal/replay"
)

// Domain prefixes for content-addressed fingerprints. The version suffix
// leaves room for algorithm migration without ambiguity.
const (
	DomainSession = "simcore/session/v1"
	DomainTrace   = "simcore/trace/v1"
)

// CanonicalHash computes SHA-256 over domain || 0x00 || canonical(v).
// The null separator prevents domain/data boundary ambiguity.
func CanonicalHash(domain string, v any) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("canonical hash: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SessionFingerprint computes the content fingerprint of a recorded session.
//
// The session ID is deliberately excluded: two runs of the same simulation
// get distinct IDs but must produce the same fingerprint, since fingerprint
// equality is how replay verification decides a run reproduced. Frame data
// must be plain integral data (see MarshalCanonical).
func SessionFingerprint(s *replay.Session) (string, error) {
	frames := make([]any, len(s.Frames))
	for i, f := range s.Frames {
		fm := map[string]any{
			"number":    f.Number,
			"timestamp": f.Timestamp.UnixNano(),
		}
		if f.Data != nil {
			fm["data"] = f.Data
		}
		frames[i] = fm
	}

	obj := map[string]any{
		"seed":       s.Seed,
		"start_time": s.StartTime.UnixNano(),
		"duration":   int64(s.Duration),
		"frames":     frames,
	}
	return CanonicalHash(DomainSession, obj)
}
