// Package host declares the callback interface the embedding renderer
// supplies to the shading system. Compiled shader code is the only caller
// of these hooks during execution; compilation and composition report
// their diagnostics through the same channel so the host sees one stream.
package host

import (
	"fmt"
	"log/slog"
)

// DiagLevel grades a reported diagnostic.
type DiagLevel int

const (
	LevelDebug DiagLevel = iota
	LevelInfo
	LevelWarning
	LevelError
)

func (l DiagLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Interface is implemented by the embedding application. All methods may
// be called from any goroutine that executes shaders, so implementations
// must either be stateless or synchronize their own state.
type Interface interface {
	// Allocate returns execution-time scratch memory. The returned bytes
	// stay valid until the host resets its backing store. Exhaustion is a
	// hard failure: implementations return an error, they never hand out
	// overlapping memory.
	Allocate(size int) ([]byte, error)

	// ReportDiagnostic delivers an out-of-band message from compilation,
	// composition, or execution.
	ReportDiagnostic(level DiagLevel, message string)

	// SampleTexture fetches a color texel for the given handle.
	SampleTexture(handle string, u, v float64) (r, g, b float64)

	// SampleAlpha fetches an alpha texel for the given handle.
	SampleAlpha(handle string, u, v float64) float64
}

// Stub is the fallback host used when the embedding application registers
// nothing. Diagnostics go to slog; texture sampling returns a checker
// pattern so misbound textures are visible rather than black.
type Stub struct {
	Logger *slog.Logger
}

var _ Interface = (*Stub)(nil)

func (s *Stub) Allocate(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("negative scratch allocation %d", size)
	}
	return make([]byte, size), nil
}

func (s *Stub) ReportDiagnostic(level DiagLevel, message string) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch level {
	case LevelDebug:
		logger.Debug(message)
	case LevelInfo:
		logger.Info(message)
	case LevelWarning:
		logger.Warn(message)
	default:
		logger.Error(message)
	}
}

func (s *Stub) SampleTexture(handle string, u, v float64) (float64, float64, float64) {
	if checker(u, v) {
		return 1, 1, 1
	}
	return 0, 0, 0
}

func (s *Stub) SampleAlpha(handle string, u, v float64) float64 {
	if checker(u, v) {
		return 1
	}
	return 0
}

func checker(u, v float64) bool {
	iu := int(u*8) & 1
	iv := int(v*8) & 1
	return iu == iv
}
