package app

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/vk/shadelink/internal/host"
)

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
	infoColor = color.New(color.FgCyan)
	dimColor  = color.New(color.Faint)
)

// diagHost is the renderer's host callback interface. Diagnostics print
// to the terminal with severity colors; texture sampling serves a
// procedural checker so every texture handle resolves without asset
// loading.
type diagHost struct {
	mu   sync.Mutex
	outW io.Writer
}

var _ host.Interface = (*diagHost)(nil)

func (d *diagHost) ReportDiagnostic(level host.DiagLevel, message string) {
	c := dimColor
	switch level {
	case host.LevelError:
		c = errColor
	case host.LevelWarning:
		c = warnColor
	case host.LevelInfo:
		c = infoColor
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.outW, "%s %s\n", c.Sprintf("[%s]", level), message)
}

func (d *diagHost) Allocate(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("negative scratch allocation %d", size)
	}
	return make([]byte, size), nil
}

func (d *diagHost) SampleTexture(handle string, u, v float64) (float64, float64, float64) {
	if checker(u, v) {
		return 0.9, 0.9, 0.9
	}
	return 0.2, 0.2, 0.2
}

func (d *diagHost) SampleAlpha(handle string, u, v float64) float64 {
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
