package clairvoyant

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/chagen/clairvoyant/internal/codec"
	cfgvalidate "github.com/chagen/clairvoyant/internal/config"
)

// DefaultSegmentSize is the target maximum number of bytes per segment
// file, used when Config.SegmentSize is left at zero.
const DefaultSegmentSize = 10_000_000

// configSchema is the JSON Schema a raw configuration document is validated
// against before being decoded, grounded in the teacher's
// internal/memorystore/configSchema.go.
const configSchema = `{
	"type": "object",
	"description": "Configuration for an embedded clairvoyant metric store.",
	"required": ["root-dir"],
	"properties": {
		"root-dir": {
			"description": "Base directory holding the catalog file and every metric's segment directory.",
			"type": "string"
		},
		"segment-size": {
			"description": "Target maximum number of bytes per segment file before a new one is started.",
			"type": "integer",
			"minimum": 1
		},
		"codec": {
			"description": "Value codec used to encode/decode samples: 'json' (default) or 'avro'.",
			"type": "string",
			"enum": ["json", "avro"]
		},
		"num-workers": {
			"description": "Number of workers used by the one-time startup directory scan.",
			"type": "integer",
			"minimum": 1
		}
	}
}`

// Config configures a Storage instance, per §6's "Configuration options".
type Config struct {
	// RootDir is the base directory for the catalog and per-metric
	// directories. It is created if it does not already exist.
	RootDir string

	// SegmentSize is the target maximum bytes per segment file. Zero
	// selects DefaultSegmentSize. Taken once at Open; changing it later
	// has no effect on already-open Storages.
	SegmentSize int64

	// CodecName selects the value codec: "json" (default, or empty) or
	// "avro". Equivalent to setting Codec directly via codec.ByName.
	CodecName string

	// Codec, if set, overrides CodecName with an explicit codec instance.
	Codec codec.Codec

	// NumWorkers bounds the concurrency of the one-time startup
	// directory scan (§4.7). Zero selects runtime.NumCPU(), mirroring
	// the teacher's Init deriving Keys.NumWorkers.
	NumWorkers int
}

// rawConfig is the JSON shape LoadConfig decodes, mirroring the teacher's
// MetricStoreConfig decode-after-validate pattern.
type rawConfig struct {
	RootDir     string `json:"root-dir"`
	SegmentSize int64  `json:"segment-size"`
	CodecName   string `json:"codec"`
	NumWorkers  int    `json:"num-workers"`
}

// LoadConfig validates raw against the embedded JSON Schema and decodes it
// into a Config. Use this instead of a bare struct literal when
// configuration arrives as JSON from a host application (e.g. a config
// file section owned by something else, the way the teacher's
// InitMetricStore consumes a json.RawMessage slice of a larger document).
func LoadConfig(raw json.RawMessage) (Config, error) {
	if err := cfgvalidate.Validate(configSchema, raw); err != nil {
		return Config{}, err
	}

	var rc rawConfig
	if err := json.Unmarshal(raw, &rc); err != nil {
		return Config{}, fmt.Errorf("clairvoyant: decode config: %w", err)
	}

	return Config{
		RootDir:     rc.RootDir,
		SegmentSize: rc.SegmentSize,
		CodecName:   rc.CodecName,
		NumWorkers:  rc.NumWorkers,
	}, nil
}

// normalize fills in defaults and resolves the configured codec. It never
// mutates the Config the caller passed to Open.
func (c Config) normalize() (Config, error) {
	out := c
	if out.RootDir == "" {
		return Config{}, fmt.Errorf("clairvoyant: RootDir is required")
	}
	if out.SegmentSize <= 0 {
		out.SegmentSize = DefaultSegmentSize
	}
	if out.NumWorkers <= 0 {
		out.NumWorkers = runtime.NumCPU()
	}
	if out.Codec == nil {
		c, err := codec.ByName(out.CodecName)
		if err != nil {
			return Config{}, err
		}
		out.Codec = c
	}
	return out, nil
}
