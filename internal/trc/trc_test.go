package trc_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hybridmocap/simulator/internal/trc"
	"github.com/hybridmocap/simulator/internal/trc/trctest"
	"github.com/hybridmocap/simulator/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTRC = "PathFileType\t4\t(X/Y/Z)\tsample.trc\r\n" +
	"DataRate\tCameraRate\tNumFrames\tNumMarkers\tUnits\tOrigDataRate\tOrigDataStartFrame\tOrigNumFrames\r\n" +
	"120\t120\t3\t2\tmm\t120\t1\t3\r\n" +
	"Frame#\tTime\tRoot\t\t\tTopHead\t\t\t\r\n" +
	"\t\tX1\tY1\tZ1\tX2\tY2\tZ2\t\r\n" +
	"\r\n" +
	"1\t0.0\t1.5\t2.5\t3.5\t10\t20\t30\t\r\n" +
	"2\t0.008333\t1.6\t2.6\t3.6\t\t\t\t\r\n" +
	"3\t0.016667\tNaN\t2.7\t3.7\t11\t21\r\n"

func TestParse_HeaderAndMetadata(t *testing.T) {
	f, err := trc.Parse(strings.NewReader(sampleTRC))
	require.NoError(t, err)

	assert.Equal(t, 120.0, f.DataRate())
	assert.Equal(t, 3, f.Metadata.NumFrames)
	assert.Equal(t, "mm", f.Metadata.Units)
	assert.Equal(t, []string{"Root", "TopHead"}, f.MarkerNames())
	assert.Equal(t, 3, f.NumFrames())

	lines := strings.SplitAfter(sampleTRC, "\n")
	assert.Equal(t, strings.Join(lines[:trc.HeaderLines], ""), string(f.Header))
}

func TestParse_MissingReadings(t *testing.T) {
	f, err := trc.Parse(strings.NewReader(sampleTRC))
	require.NoError(t, err)

	first, err := f.Frame(1)
	require.NoError(t, err)
	assert.Equal(t, core.NewReading(1.5, 2.5, 3.5), first.Readings[0])
	assert.Equal(t, core.NewReading(10, 20, 30), first.Readings[1])

	second, err := f.Frame(2)
	require.NoError(t, err)
	assert.Equal(t, 0.008333, second.Time)
	assert.False(t, second.Readings[0].Missing)
	assert.True(t, second.Readings[1].Missing, "empty cells")

	third, err := f.Frame(3)
	require.NoError(t, err)
	assert.True(t, third.Readings[0].Missing, "NaN cell")
	assert.True(t, third.Readings[1].Missing, "truncated triplet")
}

func TestFile_FrameRange(t *testing.T) {
	f, err := trc.Parse(strings.NewReader(sampleTRC))
	require.NoError(t, err)

	_, err = f.Frame(0)
	assert.ErrorIs(t, err, trc.ErrFrameOutOfRange)
	_, err = f.Frame(4)
	assert.ErrorIs(t, err, trc.ErrFrameOutOfRange)
}

func TestFile_FrameReturnsCopy(t *testing.T) {
	f, err := trc.Parse(strings.NewReader(sampleTRC))
	require.NoError(t, err)

	fr, err := f.Frame(1)
	require.NoError(t, err)
	fr.Readings[0] = core.MissingReading()

	again, err := f.Frame(1)
	require.NoError(t, err)
	assert.False(t, again.Readings[0].Missing)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"short header", "PathFileType\t4\n", trc.ErrMalformedHeader},
		{"no data rate", strings.Replace(sampleTRC, "120\t120\t3", "\t120\t3", 1), trc.ErrMalformedHeader},
		{"marker count mismatch", strings.Replace(sampleTRC, "\t3\t2\tmm", "\t3\t5\tmm", 1), trc.ErrMalformedHeader},
		{"bad frame number", strings.Replace(sampleTRC, "\r\n2\t", "\r\nx\t", 1), trc.ErrMalformedRow},
		{"bad value", strings.Replace(sampleTRC, "1.6\t", "abc\t", 1), trc.ErrMalformedRow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := trc.Parse(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWithNumFrames(t *testing.T) {
	f, err := trc.Parse(strings.NewReader(sampleTRC))
	require.NoError(t, err)

	header, err := trc.WithNumFrames(f.Header, 2)
	require.NoError(t, err)

	want := strings.Replace(string(f.Header), "120\t120\t3\t2\tmm", "120\t120\t2\t2\tmm", 1)
	assert.Equal(t, want, string(header))
	assert.Contains(t, string(f.Header), "120\t120\t3\t2", "input header untouched")

	_, err = trc.WithNumFrames([]byte("PathFileType\t4\n"), 2)
	assert.ErrorIs(t, err, trc.ErrMalformedHeader)
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "1.0", trc.FormatFloat(1))
	assert.Equal(t, "-3.0", trc.FormatFloat(-3))
	assert.Equal(t, "0.0083", trc.FormatFloat(0.0083))
	assert.Equal(t, "188.4567", trc.FormatFloat(188.4567))
	assert.Equal(t, "1234567.0", trc.FormatFloat(1234567))
}

func TestWriter_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	src, err := trc.Parse(strings.NewReader(sampleTRC))
	require.NoError(t, err)

	frames := []core.Frame{
		{Number: 1, Time: 0, Readings: []core.Reading{core.NewReading(1.5, 2.5, 3.5), core.NewReading(10, 20, 30)}},
		{Number: 2, Time: 0.008333, Readings: []core.Reading{core.NewReading(188.1234, 2.6, 3.6), core.NewReading(-0.0001, 21, 31)}},
	}
	out := filepath.Join(dir, "out.trc")
	require.NoError(t, trc.WriteFile(out, src.Header, 2, frames))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, src.Header), "header copied byte-for-byte")
	assert.Contains(t, string(data), "1\t0.0\t1.5\t2.5\t3.5\t10.0\t20.0\t30.0\t\n")
	assert.Contains(t, string(data), "2\t0.008333\t188.1234\t2.6\t3.6\t-0.0001\t21.0\t31.0\t\n")

	back, err := trc.Load(out)
	require.NoError(t, err)
	require.Equal(t, 2, back.NumFrames())
	for i, f := range frames {
		got, err := back.Frame(i + 1)
		require.NoError(t, err)
		assert.Equal(t, f.Time, got.Time)
		assert.Equal(t, f.Readings, got.Readings)
	}
}

func TestWriter_RejectsMissingAndAborts(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.trc")

	w, err := trc.Create(out, []byte("header\n"), 1)
	require.NoError(t, err)

	err = w.WriteFrame(core.Frame{Number: 1, Readings: []core.Reading{core.MissingReading()}})
	assert.ErrorIs(t, err, trc.ErrMissingReading)

	err = w.WriteFrame(core.Frame{Number: 1, Readings: []core.Reading{{}, {}}})
	assert.ErrorIs(t, err, trc.ErrMarkerCount)

	require.NoError(t, w.Abort())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no output or temp file left behind")
}

func TestWriter_CommitRenames(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "nested", "out.trc")

	w, err := trc.Create(out, []byte("h\n"), 1)
	require.NoError(t, err)
	require.NoError(t, w.WriteFrame(core.Frame{Number: 1, Time: 0.5, Readings: []core.Reading{core.NewReading(1, 2, 3)}}))
	assert.Equal(t, 1, w.Rows())

	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err), "output must not exist before commit")

	require.NoError(t, w.Commit())
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "h\n1\t0.5\t1.0\t2.0\t3.0\t\n", string(data))

	assert.NoError(t, w.Abort(), "abort after commit is a no-op")
	assert.Error(t, w.WriteFrame(core.Frame{}))
}

func TestTrctest_SyntheticFileLoads(t *testing.T) {
	_, f := trctest.WriteFile(t, t.TempDir(), 4, 12, 120)

	assert.Equal(t, 12, f.NumFrames())
	assert.Len(t, f.MarkerNames(), 4)
	assert.Equal(t, 120.0, f.DataRate())
	for n := 1; n <= f.NumFrames(); n++ {
		fr, err := f.Frame(n)
		require.NoError(t, err)
		assert.Zero(t, fr.MissingCount())
	}
}
