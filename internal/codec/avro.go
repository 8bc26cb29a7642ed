package codec

import (
	"fmt"
	"sync"
	"time"

	"github.com/chagen/clairvoyant/internal/model"
	"github.com/linkedin/goavro/v2"
)

// avroCodec wraps github.com/linkedin/goavro/v2 the way the teacher's
// avroCheckpoint.go does: a schema is generated for the shape of the data
// being written and a *goavro.Codec compiled from it. Here the shape is
// fixed per ValueType rather than inferred from a map of field names, since
// a metric's value type cannot change once created; the per-tag codec is
// compiled lazily and cached.
type avroCodec struct {
	mu            sync.Mutex
	valueCodecs   map[string]*goavro.Codec
	stampedCodecs map[string]*goavro.Codec
}

// NewAvro returns the Avro-backed Codec.
func NewAvro() (Codec, error) {
	return &avroCodec{
		valueCodecs:   make(map[string]*goavro.Codec),
		stampedCodecs: make(map[string]*goavro.Codec),
	}, nil
}

func (c *avroCodec) Name() string { return "avro" }

// avroFieldType returns the Avro type name used for the "value" field of a
// tag, plus a cacheKey distinguishing custom variants from one another.
func avroFieldType(tag model.ValueType) (string, string, error) {
	switch tag.Base() {
	case "integer":
		return "long", tag.Base(), nil
	case "double":
		return "double", tag.Base(), nil
	case "boolean":
		return "boolean", tag.Base(), nil
	case "string", "date", "enumeration", "server-status", "semantic-version":
		return "string", tag.Base(), nil
	case "bytes", "custom":
		return "bytes", tag.String(), nil
	default:
		return "", "", fmt.Errorf("codec: unsupported value type %s", tag)
	}
}

func (c *avroCodec) valueCodecFor(tag model.ValueType) (*goavro.Codec, error) {
	avroType, key, err := avroFieldType(tag)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.valueCodecs[key]; ok {
		return cached, nil
	}
	schema := fmt.Sprintf(`{"type":"record","name":"Value","fields":[{"name":"value","type":%q}]}`, avroType)
	codec, err := goavro.NewCodec(schema)
	if err != nil {
		return nil, fmt.Errorf("codec: compile avro schema for %s: %w", tag, err)
	}
	c.valueCodecs[key] = codec
	return codec, nil
}

func (c *avroCodec) stampedCodecFor(tag model.ValueType) (*goavro.Codec, error) {
	avroType, key, err := avroFieldType(tag)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.stampedCodecs[key]; ok {
		return cached, nil
	}
	schema := fmt.Sprintf(`{"type":"record","name":"Timestamped","fields":[{"name":"timestamp","type":"double"},{"name":"value","type":%q}]}`, avroType)
	codec, err := goavro.NewCodec(schema)
	if err != nil {
		return nil, fmt.Errorf("codec: compile avro schema for %s: %w", tag, err)
	}
	c.stampedCodecs[key] = codec
	return codec, nil
}

// nativeValue converts a Go value into the representation goavro expects
// for the field type chosen by avroFieldType.
func nativeValue(tag model.ValueType, value any) (any, error) {
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
	case "string":
		v, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("codec: string value has Go type %T", value)
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
	case "bytes":
		v, ok := value.([]byte)
		if !ok {
			return nil, fmt.Errorf("codec: bytes value has Go type %T", value)
		}
		return v, nil
	case "custom":
		v, ok := value.(model.CustomValue)
		if !ok {
			return nil, fmt.Errorf("codec: custom value has Go type %T", value)
		}
		return v.Bytes, nil
	default:
		return nil, fmt.Errorf("codec: unsupported value type %s", tag)
	}
}

// goValue is the inverse of nativeValue.
func goValue(tag model.ValueType, native any) (any, error) {
	switch tag.Base() {
	case "integer":
		return native.(int64), nil
	case "double":
		return native.(float64), nil
	case "boolean":
		return native.(bool), nil
	case "string":
		return native.(string), nil
	case "date":
		return time.Parse(time.RFC3339Nano, native.(string))
	case "enumeration", "server-status":
		return native.(string), nil
	case "semantic-version":
		return parseSemVer(native.(string))
	case "bytes":
		return append([]byte(nil), native.([]byte)...), nil
	case "custom":
		return model.CustomValue{Bytes: append([]byte(nil), native.([]byte)...)}, nil
	default:
		return nil, fmt.Errorf("codec: unsupported value type %s", tag)
	}
}

func (c *avroCodec) EncodeValue(tag model.ValueType, value any) ([]byte, error) {
	codec, err := c.valueCodecFor(tag)
	if err != nil {
		return nil, err
	}
	native, err := nativeValue(tag, value)
	if err != nil {
		return nil, err
	}
	return codec.BinaryFromNative(nil, map[string]any{"value": native})
}

func (c *avroCodec) DecodeValue(tag model.ValueType, data []byte) (any, error) {
	codec, err := c.valueCodecFor(tag)
	if err != nil {
		return nil, err
	}
	native, _, err := codec.NativeFromBinary(data)
	if err != nil {
		return nil, err
	}
	rec, ok := native.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("codec: unexpected avro record shape %T", native)
	}
	return goValue(tag, rec["value"])
}

func (c *avroCodec) EncodeTimestamped(tag model.ValueType, ts float64, value any) ([]byte, error) {
	codec, err := c.stampedCodecFor(tag)
	if err != nil {
		return nil, err
	}
	native, err := nativeValue(tag, value)
	if err != nil {
		return nil, err
	}
	return codec.BinaryFromNative(nil, map[string]any{"timestamp": ts, "value": native})
}

func (c *avroCodec) DecodeTimestamped(tag model.ValueType, data []byte) (float64, any, error) {
	codec, err := c.stampedCodecFor(tag)
	if err != nil {
		return 0, nil, err
	}
	native, _, err := codec.NativeFromBinary(data)
	if err != nil {
		return 0, nil, err
	}
	rec, ok := native.(map[string]any)
	if !ok {
		return 0, nil, fmt.Errorf("codec: unexpected avro record shape %T", native)
	}
	value, err := goValue(tag, rec["value"])
	if err != nil {
		return 0, nil, err
	}
	return rec["timestamp"].(float64), value, nil
}
