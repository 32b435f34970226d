package trace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder-games/simcore/internal/replay"
)

func TestMarshalCanonical_Primitives(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"string", "hello", `"hello"`},
		{"bool true", true, `true`},
		{"bool false", false, `false`},
		{"int", 42, `42`},
		{"negative int64", int64(-7), `-7`},
		{"uint64 above int64 range", uint64(18446744073709551615), `18446744073709551615`},
		{"empty array", []any{}, `[]`},
		{"empty object", map[string]any{}, `{}`},
		{"nested", map[string]any{"b": 1, "a": []any{"x", 2}}, `{"a":["x",2],"b":1}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MarshalCanonical(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(got))
		})
	}
}

func TestMarshalCanonical_Rejections(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err, "null is forbidden")

	_, err = MarshalCanonical(3.14)
	assert.Error(t, err, "floats are forbidden")

	_, err = MarshalCanonical(map[string]any{"f": float32(1)})
	assert.Error(t, err, "nested floats are forbidden")

	_, err = MarshalCanonical(struct{}{})
	assert.Error(t, err, "structs are not plain data")
}

func TestMarshalCanonical_KeyOrderingUTF16(t *testing.T) {
	// U+1F600 encodes as a surrogate pair starting at 0xD83D, which sorts
	// BEFORE U+E000 in UTF-16 code units despite being a larger code point.
	got, err := MarshalCanonical(map[string]any{
		"\U0001F600": 1,
		"\uE000": 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":1,\"\uE000\":2}", string(got))
}

func TestMarshalCanonical_StringEscaping(t *testing.T) {
	got, err := MarshalCanonical("<a> & \"b\"\n\x01")
	require.NoError(t, err)
	// No HTML escaping; control characters use \u00xx.
	assert.Equal(t, `"<a> & \"b\"\n\u0001"`, string(got))
}

func TestCanonicalHash_DomainSeparation(t *testing.T) {
	v := map[string]any{"x": 1}

	a, err := CanonicalHash("simcore/a/v1", v)
	require.NoError(t, err)
	b, err := CanonicalHash("simcore/b/v1", v)
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "same data under different domains must not collide")
	assert.Len(t, a, 64)
}

func TestSessionFingerprint_Stable(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	build := func(id string) *replay.Session {
		return &replay.Session{
			ID:        id,
			Seed:      99,
			StartTime: base,
			Duration:  2 * time.Second,
			Frames: []replay.Frame{
				{Number: 0, Timestamp: base, Data: map[string]any{"draw": uint64(123)}},
				{Number: 1, Timestamp: base.Add(time.Second)},
			},
		}
	}

	a, err := SessionFingerprint(build("session-1"))
	require.NoError(t, err)
	b, err := SessionFingerprint(build("session-2"))
	require.NoError(t, err)
	assert.Equal(t, a, b, "fingerprint ignores the session id")

	changed := build("session-3")
	changed.Frames[0].Data["draw"] = uint64(124)
	c, err := SessionFingerprint(changed)
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "fingerprint reflects frame content")
}
