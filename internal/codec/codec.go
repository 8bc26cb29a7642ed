// Package codec implements the pluggable value encoding described by the
// storage engine's external interfaces: turning a Go value into the bytes
// that get framed into a segment record, and back. Two implementations are
// provided, mirroring the two checkpoint formats the teacher supports side
// by side (json and avro): codec.NewJSON returns the default, codec.NewAvro wraps
// github.com/linkedin/goavro/v2 the way avroCheckpoint.go does for its
// checkpoint files.
package codec

import "github.com/chagen/clairvoyant/internal/model"

// Encoder turns a value into its on-disk byte representation. Implementations
// must guarantee that equal logical values yield equal byte strings, since
// the storage facade's dedup check compares encoded bytes.
type Encoder interface {
	// EncodeValue encodes a bare value (the payload stored in a segment
	// record).
	EncodeValue(tag model.ValueType, value any) ([]byte, error)

	// EncodeTimestamped encodes a (timestamp, value) pair as a single
	// standalone blob, used for the last-value side file.
	EncodeTimestamped(tag model.ValueType, ts float64, value any) ([]byte, error)
}

// Decoder reverses an Encoder. The ValueType tag tells the decoder which Go
// representation to reconstruct.
type Decoder interface {
	DecodeValue(tag model.ValueType, data []byte) (any, error)
	DecodeTimestamped(tag model.ValueType, data []byte) (ts float64, value any, err error)
}

// Codec bundles an Encoder and Decoder pair and is what Config accepts.
type Codec interface {
	Encoder
	Decoder
	// Name identifies the codec for diagnostics and for config validation
	// ("json" or "avro").
	Name() string
}

// ByName returns one of the two built-in codecs. An empty name selects JSON,
// matching the teacher's checkpoint file-format default handling.
func ByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return NewJSON(), nil
	case "avro":
		return NewAvro()
	default:
		return nil, &UnknownCodecError{Name: name}
	}
}

// UnknownCodecError is returned by ByName for an unrecognized codec name.
type UnknownCodecError struct {
	Name string
}

func (e *UnknownCodecError) Error() string {
	return "codec: unknown codec " + e.Name
}
