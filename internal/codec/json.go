package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/chagen/clairvoyant/internal/model"
)

// jsonCodec is the default Codec. Per the external-interfaces convention,
// string-typed values are encoded as raw UTF-8 (so a record's value_bytes
// for a string metric is exactly the string's bytes, not a quoted JSON
// string). Bytes and custom values are likewise stored as their raw bytes;
// every other type round-trips through encoding/json.
type jsonCodec struct{}

// NewJSON returns the default codec.
func NewJSON() Codec { return jsonCodec{} }

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) EncodeValue(tag model.ValueType, value any) ([]byte, error) {
	switch tag.Base() {
	case "string":
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("codec: string value has Go type %T", value)
		}
		return []byte(s), nil
	case "bytes":
		b, ok := value.([]byte)
		if !ok {
			return nil, fmt.Errorf("codec: bytes value has Go type %T", value)
		}
		return b, nil
	case "custom":
		cv, ok := value.(model.CustomValue)
		if !ok {
			return nil, fmt.Errorf("codec: custom value has Go type %T", value)
		}
		return cv.Bytes, nil
	default:
		jv, err := jsonSafeValue(tag, value)
		if err != nil {
			return nil, err
		}
		return json.Marshal(jv)
	}
}

func (jsonCodec) DecodeValue(tag model.ValueType, data []byte) (any, error) {
	switch tag.Base() {
	case "string":
		return string(data), nil
	case "bytes":
		return append([]byte(nil), data...), nil
	case "custom":
		return model.CustomValue{Bytes: append([]byte(nil), data...)}, nil
	default:
		switch tag.Base() {
		case "integer":
			var v int64
			if err := json.Unmarshal(data, &v); err != nil {
				return nil, err
			}
			return v, nil
		case "double":
			var v float64
			if err := json.Unmarshal(data, &v); err != nil {
				return nil, err
			}
			return v, nil
		case "boolean":
			var v bool
			if err := json.Unmarshal(data, &v); err != nil {
				return nil, err
			}
			return v, nil
		case "date":
			var s string
			if err := json.Unmarshal(data, &s); err != nil {
				return nil, err
			}
			return time.Parse(time.RFC3339Nano, s)
		case "enumeration", "server-status":
			var s string
			if err := json.Unmarshal(data, &s); err != nil {
				return nil, err
			}
			return s, nil
		case "semantic-version":
			var s string
			if err := json.Unmarshal(data, &s); err != nil {
				return nil, err
			}
			return parseSemVer(s)
		}
		return nil, fmt.Errorf("codec: unsupported value type %s", tag)
	}
}

// jsonSafeValue converts value into something encoding/json can marshal
// deterministically for the given tag.
func jsonSafeValue(tag model.ValueType, value any) (any, error) {
	switch tag.Base() {
	case "integer":
		v, ok := value.(int64)
		if !ok {
			return nil, fmt.Errorf("codec: integer value has Go type %T", value)
		}
		return v, nil
	case "double":
		v, ok := value.(float64)
		if !ok {
			return nil, fmt.Errorf("codec: double value has Go type %T", value)
		}
		return v, nil
	case "boolean":
		v, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("codec: boolean value has Go type %T", value)
		}
		return v, nil
	case "date":
		v, ok := value.(time.Time)
		if !ok {
			return nil, fmt.Errorf("codec: date value has Go type %T", value)
		}
		return v.UTC().Format(time.RFC3339Nano), nil
	case "enumeration", "server-status":
		v, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("codec: %s value has Go type %T", tag, value)
		}
		return v, nil
	case "semantic-version":
		v, ok := value.(model.SemVer)
		if !ok {
			return nil, fmt.Errorf("codec: semantic-version value has Go type %T", value)
		}
		return v.String(), nil
	default:
		return nil, fmt.Errorf("codec: unsupported value type %s", tag)
	}
}

func parseSemVer(s string) (model.SemVer, error) {
	var v model.SemVer
	var pre string
	core := s
	if i := indexByte(s, '-'); i >= 0 {
		core, pre = s[:i], s[i+1:]
	}
	n, err := fmt.Sscanf(core, "%d.%d.%d", &v.Major, &v.Minor, &v.Patch)
	if err != nil || n != 3 {
		return model.SemVer{}, fmt.Errorf("codec: invalid semantic version %q", s)
	}
	v.Pre = pre
	return v, nil
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

type timestampedDoc struct {
	Timestamp float64         `json:"timestamp"`
	Value     json.RawMessage `json:"value"`
}

func (c jsonCodec) EncodeTimestamped(tag model.ValueType, ts float64, value any) ([]byte, error) {
	var raw []byte
	var err error
	switch tag.Base() {
	case "string":
		raw, err = json.Marshal(value)
	case "bytes":
		raw, err = json.Marshal(value)
	case "custom":
		cv, ok := value.(model.CustomValue)
		if !ok {
			return nil, fmt.Errorf("codec: custom value has Go type %T", value)
		}
		raw, err = json.Marshal(cv.Bytes)
	default:
		var jv any
		jv, err = jsonSafeValue(tag, value)
		if err == nil {
			raw, err = json.Marshal(jv)
		}
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(timestampedDoc{Timestamp: ts, Value: raw})
}

func (c jsonCodec) DecodeTimestamped(tag model.ValueType, data []byte) (float64, any, error) {
	var doc timestampedDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, nil, err
	}
	switch tag.Base() {
	case "string":
		var s string
		if err := json.Unmarshal(doc.Value, &s); err != nil {
			return 0, nil, err
		}
		return doc.Timestamp, s, nil
	case "bytes":
		var b []byte
		if err := json.Unmarshal(doc.Value, &b); err != nil {
			return 0, nil, err
		}
		return doc.Timestamp, b, nil
	case "custom":
		var b []byte
		if err := json.Unmarshal(doc.Value, &b); err != nil {
			return 0, nil, err
		}
		return doc.Timestamp, model.CustomValue{Bytes: b}, nil
	default:
		value, err := (jsonCodec{}).decodeSafeJSON(tag, doc.Value)
		return doc.Timestamp, value, err
	}
}

func (jsonCodec) decodeSafeJSON(tag model.ValueType, raw json.RawMessage) (any, error) {
	return (jsonCodec{}).DecodeValue(tag, []byte(raw[:]))
}
