// Package lineimport decodes InfluxDB line-protocol payloads into batches of
// double-valued samples suitable for a store_many call. It is a transform
// utility only: it does not touch a Storage or a network connection. The
// decoding loop mirrors the teacher's NATS ingestion path in
// pkg/metricstore/lineprotocol.go, adapted from a cluster/host/type selector
// tree to this engine's flat (group, id) metric key.
package lineimport

import (
	"fmt"
	"time"

	"github.com/influxdata/line-protocol/v2/lineprotocol"
)

// Sample is one decoded line-protocol point.
type Sample struct {
	Group     string
	Id        string
	Timestamp float64
	Value     float64
}

// DecodeBatch decodes every line in data. The measurement name becomes the
// metric id; a "group" tag selects the group, defaulting to defaultGroup
// when absent. Only a single field named "value" is supported per line, of
// kind float, int or uint; any other field name is an error. A missing
// timestamp falls back to the current time, the same second/millisecond/
// microsecond/nanosecond precision probing the teacher uses.
func DecodeBatch(data []byte, defaultGroup string) ([]Sample, error) {
	dec := lineprotocol.NewDecoderWithBytes(data)

	var out []Sample
	for dec.Next() {
		measurement, err := dec.Measurement()
		if err != nil {
			return nil, fmt.Errorf("lineimport: measurement: %w", err)
		}
		id := string(measurement)

		group := defaultGroup
		for {
			key, val, err := dec.NextTag()
			if err != nil {
				return nil, fmt.Errorf("lineimport: tag: %w", err)
			}
			if key == nil {
				break
			}
			if string(key) == "group" {
				group = string(val)
			}
		}

		value, haveValue, err := decodeValueField(dec)
		if err != nil {
			return nil, err
		}
		if !haveValue {
			continue
		}

		ts, err := decodeTimestamp(dec)
		if err != nil {
			return nil, fmt.Errorf("lineimport: %s/%s: %w", group, id, err)
		}

		out = append(out, Sample{Group: group, Id: id, Timestamp: ts, Value: value})
	}
	return out, nil
}

func decodeValueField(dec *lineprotocol.Decoder) (float64, bool, error) {
	var value float64
	haveValue := false
	for {
		key, val, err := dec.NextField()
		if err != nil {
			return 0, false, fmt.Errorf("lineimport: field: %w", err)
		}
		if key == nil {
			break
		}
		if string(key) != "value" {
			return 0, false, fmt.Errorf("lineimport: unsupported field %q", key)
		}
		switch val.Kind() {
		case lineprotocol.Float:
			value = val.FloatV()
		case lineprotocol.Int:
			value = float64(val.IntV())
		case lineprotocol.Uint:
			value = float64(val.UintV())
		default:
			return 0, false, fmt.Errorf("lineimport: unsupported value kind %s", val.Kind())
		}
		haveValue = true
	}
	return value, haveValue, nil
}

func decodeTimestamp(dec *lineprotocol.Decoder) (float64, error) {
	now := time.Now()
	t, err := dec.Time(lineprotocol.Second, now)
	if err != nil {
		t, err = dec.Time(lineprotocol.Millisecond, now)
	}
	if err != nil {
		t, err = dec.Time(lineprotocol.Microsecond, now)
	}
	if err != nil {
		t, err = dec.Time(lineprotocol.Nanosecond, now)
	}
	if err != nil {
		return 0, fmt.Errorf("timestamp: %w", err)
	}
	return float64(t.UnixNano()) / 1e9, nil
}
