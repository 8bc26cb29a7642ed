// Package segment implements the per-metric append-only binary log: the
// exact record framing, segment file lifecycle, and the last-value side
// file. It is the largest and most exacting piece of the storage engine;
// everything above it (the catalog, the facade, the handle) treats a
// Writer as an opaque append/read/delete unit.
package segment

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/chagen/clairvoyant/internal/model"
)

const (
	minByteCount  = 8
	maxByteCount  = 65535
	timestampSize = 8
	lengthPrefix  = 2 // the byte_count field itself, not included in byte_count
)

// Frame is one decoded record: a timestamp and its opaque value payload.
type Frame struct {
	Timestamp float64
	Value     []byte
}

// encodeFrame renders ts and value as the exact on-disk record layout from
// the data model: a little-endian uint16 byte count (8 + len(value),
// covering the timestamp and payload but not the byte count field itself),
// followed by the little-endian f64 timestamp, followed by value itself.
func encodeFrame(ts float64, value []byte) ([]byte, error) {
	byteCount := timestampSize + len(value)
	if byteCount > maxByteCount {
		return nil, model.NewError(model.EncodeFailure, "append", model.MetricId{}, fmt.Errorf("record too large: %d bytes", byteCount))
	}

	buf := make([]byte, lengthPrefix+byteCount)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(byteCount))
	binary.LittleEndian.PutUint64(buf[2:10], math.Float64bits(ts))
	copy(buf[10:], value)
	return buf, nil
}

// readFrame reads one frame from r. A clean end of stream is reported as
// io.EOF; any other read failure, or a byte count outside [8, 65535], is
// reported as a *model.Error of kind LogCorrupted.
func readFrame(r io.Reader) (Frame, int, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return Frame{}, 0, io.EOF
		}
		return Frame{}, 0, model.NewError(model.LogCorrupted, "read", model.MetricId{}, err)
	}

	byteCount := int(binary.LittleEndian.Uint16(header[:]))
	if byteCount < minByteCount || byteCount > maxByteCount {
		return Frame{}, 0, model.NewError(model.LogCorrupted, "read", model.MetricId{}, fmt.Errorf("impossible byte count %d", byteCount))
	}

	rest := make([]byte, byteCount)
	if _, err := io.ReadFull(r, rest); err != nil {
		return Frame{}, 0, model.NewError(model.LogCorrupted, "read", model.MetricId{}, err)
	}

	ts := math.Float64frombits(binary.LittleEndian.Uint64(rest[0:8]))
	value := append([]byte(nil), rest[8:]...)
	return Frame{Timestamp: ts, Value: value}, lengthPrefix + byteCount, nil
}

// frameSize returns the total on-disk size of a frame holding value,
// including the 2-byte length prefix, without building it. Used by the
// writer to decide whether appending value would overflow the configured
// segment size before a new segment is needed.
func frameSize(value []byte) int {
	return lengthPrefix + timestampSize + len(value)
}
