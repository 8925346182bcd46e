package host

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStub_Allocate(t *testing.T) {
	t.Parallel()

	s := &Stub{}
	b, err := s.Allocate(16)
	require.NoError(t, err)
	assert.Len(t, b, 16)

	_, err = s.Allocate(-1)
	assert.ErrorContains(t, err, "negative scratch allocation")
}

func TestStub_ReportDiagnostic(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := &Stub{Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}

	s.ReportDiagnostic(LevelWarning, "unconnected input")
	s.ReportDiagnostic(LevelError, "bad shader")

	out := buf.String()
	assert.Contains(t, out, "unconnected input")
	assert.Contains(t, out, "bad shader")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "level=ERROR")
}

func TestStub_CheckerTexture(t *testing.T) {
	t.Parallel()

	s := &Stub{}
	r1, g1, b1 := s.SampleTexture("any", 0.01, 0.01)
	r2, g2, b2 := s.SampleTexture("any", 0.01, 0.2)
	assert.Equal(t, [3]float64{1, 1, 1}, [3]float64{r1, g1, b1})
	assert.Equal(t, [3]float64{0, 0, 0}, [3]float64{r2, g2, b2})

	assert.Equal(t, 1.0, s.SampleAlpha("any", 0.01, 0.01))
	assert.Equal(t, 0.0, s.SampleAlpha("any", 0.01, 0.2))
}

func TestDiagLevel_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "debug", LevelDebug.String())
	assert.Equal(t, "warning", LevelWarning.String())
	assert.Equal(t, "level(9)", DiagLevel(9).String())
}
