package progress

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestReporter_ConcurrentIncrements(t *testing.T) {
	r := New(200)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 25 {
				r.Increment()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(200), r.Completed())
	assert.Equal(t, int64(200), r.Total())
}

func TestReporter_CountingOnlyByDefault(t *testing.T) {
	r := New(3)
	r.Increment()
	r.Increment()
	assert.Equal(t, int64(2), r.Completed())
	// Finish must be safe without a bar
	r.Finish()
}

func TestReporter_BarRendersToWriter(t *testing.T) {
	var buf bytes.Buffer
	r := New(5, WithWriter(&buf), WithDescription("batch"))

	for range 5 {
		r.Increment()
	}
	r.Finish()

	out := buf.String()
	assert.Contains(t, out, "5/5")
	assert.Contains(t, out, "batch")
}

func TestReporter_UnknownTotalSpinner(t *testing.T) {
	var buf bytes.Buffer
	r := New(0, WithWriter(&buf))

	r.Increment()
	r.Increment()

	assert.Equal(t, int64(2), r.Completed())
	assert.LessOrEqual(t, r.Total(), int64(0))
}

func TestLogWriter_EmitsTrimmedFrames(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	w := NewLogWriter(zap.New(core), zapcore.InfoLevel)

	n, err := w.Write([]byte("\rjobs  60% |████    | (3/5) \r"))
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "jobs  60% |████    | (3/5)", entries[0].Message)
}

func TestLogWriter_DropsEmptyFrames(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	w := NewLogWriter(zap.New(core), zapcore.InfoLevel)

	_, err := w.Write([]byte("\r \r\n"))
	require.NoError(t, err)
	assert.Zero(t, logs.Len())
}

func TestReporter_BarThroughLogWriter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := New(2, WithWriter(NewLogWriter(zap.New(core), zapcore.InfoLevel)))

	r.Increment()
	r.Increment()
	r.Finish()

	require.Greater(t, logs.Len(), 0)
	last := logs.All()[logs.Len()-1]
	assert.Contains(t, last.Message, "2/2")
}
