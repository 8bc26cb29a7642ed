package clairvoyant

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{"root-dir": "/var/lib/clairvoyant"}`))
	require.NoError(t, err)
	require.Equal(t, "/var/lib/clairvoyant", cfg.RootDir)
	require.Equal(t, int64(0), cfg.SegmentSize, "LoadConfig must not apply defaults itself; normalize does")

	norm, err := cfg.normalize()
	require.NoError(t, err)
	require.Equal(t, int64(DefaultSegmentSize), norm.SegmentSize)
	require.NotNil(t, norm.Codec)
	require.Equal(t, "json", norm.Codec.Name())
}

func TestLoadConfigRejectsMissingRootDir(t *testing.T) {
	_, err := LoadConfig([]byte(`{"segment-size": 1000}`))
	require.Error(t, err)
}

func TestLoadConfigRejectsUnknownCodec(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{"root-dir": "/tmp/x", "codec": "protobuf"}`))
	require.Error(t, err)
	require.Equal(t, Config{}, cfg)
}

func TestLoadConfigSelectsAvroCodec(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{"root-dir": "/tmp/x", "codec": "avro"}`))
	require.NoError(t, err)
	norm, err := cfg.normalize()
	require.NoError(t, err)
	require.Equal(t, "avro", norm.Codec.Name())
}

func TestNormalizeRequiresRootDir(t *testing.T) {
	_, err := Config{}.normalize()
	require.Error(t, err)
}
