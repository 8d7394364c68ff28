package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scierrors "github.com/ehoutland/tidymodels-test/pkg/errors"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestZerologProviderLevels(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProviderWithWriter(&buf, LevelInfo)
	logger := p.GetLoggerWithName("resample")

	logger.Debug("hidden")
	logger.Info("split done", SamplesKey, 10, FoldKey, "Fold1")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "split done", lines[0]["message"])
	assert.Equal(t, "resample", lines[0][ComponentKey])
	assert.Equal(t, float64(10), lines[0][SamplesKey])
	assert.Equal(t, "Fold1", lines[0][FoldKey])

	p.SetLevel(LevelDebug)
	assert.True(t, logger.Enabled(context.Background(), LevelDebug))
	logger.Debug("now visible")
	assert.Len(t, decodeLines(t, &buf), 2)
}

func TestZerologLoggerWithAndError(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProviderWithWriter(&buf, LevelDebug)
	logger := p.GetLogger().With(ModelNameKey, "lm")

	err := scierrors.NewColumnError("bake", "depth", "not found")
	logger.Error("bake failed", err, OperationKey, OperationBake)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "error", lines[0]["level"])
	assert.Equal(t, "lm", lines[0][ModelNameKey])
	assert.Equal(t, "bake", lines[0][OperationKey])
	assert.Equal(t, "ColumnError", lines[0]["type"])
	assert.Contains(t, lines[0][ErrAttrKey], "depth")
	assert.Equal(t, "depth", lines[0]["column"])
}

func TestWarningsRouteThroughProvider(t *testing.T) {
	prev := GetProvider()
	defer SetProvider(prev)

	var buf bytes.Buffer
	SetProvider(NewZerologProviderWithWriter(&buf, LevelDebug))

	scierrors.Warn(scierrors.NewDataConversionWarning("string", "float64", "malformed row", 2))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "warnings", lines[0][ComponentKey])
}

func TestTestLogger(t *testing.T) {
	logger := NewTestLogger(LevelInfo)
	child := logger.With(ComponentKey, "tune")

	child.Debug("skipped")
	child.Info("grid evaluated", CandidatesKey, 4)
	child.Warn("slow", assert.AnError)

	assert.True(t, logger.ContainsMessage("grid evaluated"))
	assert.False(t, logger.ContainsMessage("skipped"))
	assert.True(t, logger.ContainsField(CandidatesKey, float64(4)))
	assert.True(t, logger.ContainsField(ComponentKey, "tune"))
	assert.True(t, logger.ContainsField(ErrAttrKey, assert.AnError.Error()))

	entries, err := logger.Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	logger.Clear()
	assert.Empty(t, logger.Output())
}

func TestTestLoggerProvider(t *testing.T) {
	p := NewTestLoggerProvider(LevelError)
	named := p.GetLoggerWithName("metrics")
	named.Info("dropped")
	assert.False(t, p.Logger.ContainsMessage("dropped"))

	p.SetLevel(LevelInfo)
	named.Info("kept")
	assert.True(t, p.Logger.ContainsField(ComponentKey, "metrics"))
}

func TestConcurrentLogging(t *testing.T) {
	logger := NewTestLogger(LevelInfo)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.Info("fold done", FoldKey, i)
		}(i)
	}
	wg.Wait()

	entries, err := logger.Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 8)
}

func TestToLogLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ToLogLevel("debug"))
	assert.Equal(t, LevelWarn, ToLogLevel("WARN"))
	assert.Panics(t, func() { ToLogLevel("verbose") })
	assert.Equal(t, "ERROR", LevelError.String())
}
