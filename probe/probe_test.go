package probe

import (
	"bytes"
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func sine(n int, dt, freq float64) []Record {
	out := make([]Record, n)
	for i := range out {
		t := float64(i) * dt
		out[i] = Record{Step: i, Time: t, Value: float32(math.Sin(2 * math.Pi * freq * t))}
	}
	return out
}

func TestRecorderAndMulti(t *testing.T) {
	a, b := NewRecorder(2), NewRecorder(2)
	m := Multi{a, b}
	require.NoError(t, m.Write(Record{Step: 0, Value: 1}))
	require.NoError(t, m.Write(Record{Step: 1, Value: 2}))

	assert.Equal(t, []float32{1, 2}, a.Values())
	if diff := cmp.Diff(a.Records(), b.Records()); diff != "" {
		t.Fatalf("sinks diverged (-a +b):\n%s", diff)
	}
}

func TestLogSinkScientificNotation(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewLogSink(zap.New(core))

	require.NoError(t, s.Write(Record{Step: 7, Value: 0.000123}))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(7), fields["step"])
	assert.Equal(t, "1.230000e-04", fields["value"])
}

func TestCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewCSVSink(&buf)
	require.NoError(t, err)

	want := sine(5, 1e-12, 1e10)
	for _, r := range want {
		require.NoError(t, s.Write(r))
	}
	require.NoError(t, s.Close())
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("step,time_s,value\n")))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateCSVMakesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "trace.csv")
	s, err := CreateCSV(path)
	require.NoError(t, err)
	require.NoError(t, s.Write(Record{Step: 0}))
	require.NoError(t, s.Close())
	assert.FileExists(t, path)
}

func TestStoreRuns(t *testing.T) {
	ctx := context.Background()
	st, err := OpenStore(filepath.Join(t.TempDir(), "db", "yee.db"))
	require.NoError(t, err)
	defer st.Close()

	info := RunInfo{Backend: "cpu", Grid: "8x8x8", Dt: 1e-12, Steps: 3, Source: "ez(4,4,4)", Probe: "ez(6,4,4)"}
	w, err := st.Begin(ctx, info)
	require.NoError(t, err)
	_, err = uuid.Parse(w.ID)
	require.NoError(t, err)

	want := sine(3, 1e-12, 1e10)
	for _, r := range want {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Close())

	aborted, err := st.Begin(ctx, info)
	require.NoError(t, err)
	require.NoError(t, aborted.Write(want[0]))
	require.NoError(t, aborted.Abort())

	ids, err := st.Runs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{w.ID}, ids)

	got, err := st.Trace(ctx, w.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("stored trace mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyze(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		s := Analyze(nil, 1)
		assert.Equal(t, -1, s.FirstNonZero)
		assert.True(t, s.Finite)
	})

	t.Run("delayed pulse", func(t *testing.T) {
		recs := make([]Record, 10)
		for i := range recs {
			recs[i].Step = i
		}
		recs[4].Value = 0.5
		recs[6].Value = -2
		s := Analyze(recs, 1)
		assert.Equal(t, 4, s.FirstNonZero)
		assert.Equal(t, 2.0, s.Peak)
		assert.Equal(t, 6, s.PeakStep)
		assert.True(t, s.Finite)
	})

	t.Run("dominant frequency", func(t *testing.T) {
		const dt, freq = 1e-12, 1.0 / (16 * 1e-12)
		s := Analyze(sine(256, dt, freq), dt)
		assert.InEpsilon(t, freq, s.DominantFrequency, 1e-9)
		assert.InDelta(t, 1/math.Sqrt2, s.RMS, 1e-3)
	})

	t.Run("not finite", func(t *testing.T) {
		recs := []Record{{Step: 0, Value: 1}, {Step: 1, Value: float32(math.NaN())}}
		assert.False(t, Analyze(recs, 1).Finite)
	})
}

func TestPlot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Plot(&buf, "probe", sine(64, 1e-12, 1e10)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	buf.Reset()
	flat := []Record{{Step: 0}, {Step: 1}, {Step: 2}}
	require.NoError(t, Plot(&buf, "flat", flat))

	assert.Error(t, Plot(&buf, "short", flat[:1]))
}
