package codec

import (
	"testing"
	"time"

	"github.com/chagen/clairvoyant/internal/model"
	"github.com/stretchr/testify/require"
)

func TestJSONEncodeDecodeValue(t *testing.T) {
	c := NewJSON()

	cases := []struct {
		tag   model.ValueType
		value any
	}{
		{model.Integer, int64(42)},
		{model.Double, 3.25},
		{model.Boolean, true},
		{model.String, "compute-03"},
		{model.Bytes, []byte{0x01, 0x02, 0x03}},
		{model.Enumeration, "RUNNING"},
		{model.ServerStatus, "ALLOCATED"},
		{model.SemanticVersion, model.SemVer{Major: 1, Minor: 4, Patch: 0, Pre: "rc1"}},
		{model.Custom("firmware-blob"), model.CustomValue{Bytes: []byte("opaque")}},
	}

	for _, tc := range cases {
		enc, err := c.EncodeValue(tc.tag, tc.value)
		require.NoError(t, err, tc.tag.String())
		dec, err := c.DecodeValue(tc.tag, enc)
		require.NoError(t, err, tc.tag.String())
		require.Equal(t, tc.value, dec, tc.tag.String())
	}
}

func TestJSONEncodeValueDateRoundTrip(t *testing.T) {
	c := NewJSON()
	ts := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	enc, err := c.EncodeValue(model.Date, ts)
	require.NoError(t, err)
	dec, err := c.DecodeValue(model.Date, enc)
	require.NoError(t, err)
	require.True(t, ts.Equal(dec.(time.Time)))
}

func TestJSONStringValueIsRawBytes(t *testing.T) {
	c := NewJSON()
	enc, err := c.EncodeValue(model.String, "hello")
	require.NoError(t, err)
	require.Equal(t, "hello", string(enc), "string values must not be quoted JSON")
}

func TestJSONEncodeTimestampedRoundTrip(t *testing.T) {
	c := NewJSON()
	blob, err := c.EncodeTimestamped(model.Integer, 100, int64(7))
	require.NoError(t, err)

	ts, value, err := c.DecodeTimestamped(model.Integer, blob)
	require.NoError(t, err)
	require.Equal(t, 100.0, ts)
	require.Equal(t, int64(7), value)
}

func TestJSONEncodeValueTypeMismatch(t *testing.T) {
	c := NewJSON()
	_, err := c.EncodeValue(model.Integer, "not an integer")
	require.Error(t, err)
}

func TestJSONSameValueSameBytes(t *testing.T) {
	c := NewJSON()
	a, err := c.EncodeValue(model.Double, 1.5)
	require.NoError(t, err)
	b, err := c.EncodeValue(model.Double, 1.5)
	require.NoError(t, err)
	require.Equal(t, a, b, "equal logical values must encode to equal bytes for the dedup check")
}
