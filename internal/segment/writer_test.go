package segment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chagen/clairvoyant/internal/codec"
	"github.com/chagen/clairvoyant/internal/model"
	"github.com/stretchr/testify/require"
)

func openTestWriter(t *testing.T, segmentSize int64) *Writer {
	t.Helper()
	id := model.MetricId{Group: "g", Id: "m"}
	w, err := Open(t.TempDir(), id, model.Integer, segmentSize, codec.NewJSON())
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestWriterAppendAndHistory(t *testing.T) {
	w := openTestWriter(t, DefaultSegmentSizeForTest)

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, w.Append(float64(i), i*10))
	}

	hist, err := w.History(1, 5, true, 0)
	require.NoError(t, err)
	require.Len(t, hist, 5)
	for i, f := range hist {
		require.Equal(t, int64((i+1)*10), f.Value)
	}
}

func TestWriterLastValue(t *testing.T) {
	w := openTestWriter(t, DefaultSegmentSizeForTest)
	require.NoError(t, w.Append(1, int64(100)))
	require.NoError(t, w.Append(2, int64(200)))

	last, ok, err := w.LastValue()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2.0, last.Timestamp)
	require.Equal(t, int64(200), last.Value)
}

func TestWriterCorruptSegmentAbortsHistory(t *testing.T) {
	w := openTestWriter(t, DefaultSegmentSizeForTest)
	require.NoError(t, w.Append(1, int64(1)))
	require.NoError(t, w.Close())

	segments, err := w.listSegments()
	require.NoError(t, err)
	require.Len(t, segments, 1)

	path := w.segmentPath(segments[0])
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Corrupt the byte-count header to 65535 so the frame claims more bytes
	// than the file holds and the read overruns it.
	data[0], data[1] = 0xff, 0xff
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = w.History(0, 10, true, 0)
	require.Error(t, err)
	var storageErr *model.Error
	require.ErrorAs(t, err, &storageErr)
	require.Equal(t, model.LogCorrupted, storageErr.Kind)
}

func TestWriterDeleteBefore(t *testing.T) {
	w := openTestWriter(t, DefaultSegmentSizeForTest)
	for i := int64(1); i <= 10; i++ {
		require.NoError(t, w.Append(float64(i), i))
	}

	require.NoError(t, w.DeleteBefore(5))

	hist, err := w.History(0, 10, true, 0)
	require.NoError(t, err)
	require.Len(t, hist, 6)
	require.Equal(t, int64(5), hist[0].Value)
}

func TestWriterSegmentRollover(t *testing.T) {
	w := openTestWriter(t, 200)
	for i := int64(1); i <= 100; i++ {
		require.NoError(t, w.Append(float64(i), i))
	}

	segments, err := w.listSegments()
	require.NoError(t, err)
	require.Greater(t, len(segments), 1, "a small segment size must force more than one segment file")

	n, err := w.SegmentCount()
	require.NoError(t, err)
	require.Equal(t, len(segments), n)

	hist, err := w.History(0, 100, true, 0)
	require.NoError(t, err)
	require.Len(t, hist, 100)
}

func TestWriterDelete(t *testing.T) {
	w := openTestWriter(t, DefaultSegmentSizeForTest)
	require.NoError(t, w.Append(1, int64(1)))

	require.NoError(t, w.Delete())

	_, err := os.Stat(w.dir)
	require.True(t, os.IsNotExist(err))
}

// DefaultSegmentSizeForTest keeps writer_test.go independent of the public
// package's default; segment rollover has its own dedicated test.
const DefaultSegmentSizeForTest = 10_000_000

func TestSegmentPathUsesMillisecondTimestamp(t *testing.T) {
	w := openTestWriter(t, DefaultSegmentSizeForTest)
	require.NoError(t, w.Append(1.5, int64(1)))

	path := filepath.Join(w.dir, "1500")
	_, err := os.Stat(path)
	require.NoError(t, err)
}
