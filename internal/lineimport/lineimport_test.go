package lineimport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeBatchExplicitGroupAndTimestamp(t *testing.T) {
	data := []byte("temp,group=node01 value=42.5 1700000000000000000\n" +
		"temp,group=node02 value=43 1700000001000000000\n")

	samples, err := DecodeBatch(data, "default")
	require.NoError(t, err)
	require.Len(t, samples, 2)

	require.Equal(t, "node01", samples[0].Group)
	require.Equal(t, "temp", samples[0].Id)
	require.Equal(t, 42.5, samples[0].Value)
	require.Equal(t, 1700000000.0, samples[0].Timestamp)

	require.Equal(t, "node02", samples[1].Group)
	require.Equal(t, 43.0, samples[1].Value)
}

func TestDecodeBatchDefaultGroup(t *testing.T) {
	data := []byte("fanspeed value=1200 1700000000000000000\n")

	samples, err := DecodeBatch(data, "cluster01")
	require.NoError(t, err)
	require.Len(t, samples, 1)
	require.Equal(t, "cluster01", samples[0].Group)
	require.Equal(t, "fanspeed", samples[0].Id)
	require.Equal(t, 1200.0, samples[0].Value)
}

func TestDecodeBatchRejectsUnsupportedField(t *testing.T) {
	data := []byte("temp,group=node01 other=1 1700000000000000000\n")
	_, err := DecodeBatch(data, "default")
	require.Error(t, err)
}

func TestDecodeBatchIntegerField(t *testing.T) {
	data := []byte("count,group=node01 value=5i 1700000000000000000\n")
	samples, err := DecodeBatch(data, "default")
	require.NoError(t, err)
	require.Len(t, samples, 1)
	require.Equal(t, 5.0, samples[0].Value)
}
