package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/shadelink/internal/closure"
	"github.com/vk/shadelink/internal/ctxlog"
	"github.com/vk/shadelink/internal/shading"
	"github.com/vk/shadelink/internal/sltype"
)

// App encapsulates the renderer's dependencies, configuration, and
// lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	config    *Config
	scene     *Scene
	sys       *shading.System
	materials map[string]*shading.Instance
}

// NewApp is the constructor for the renderer. It loads the scene, stands
// up the shading system, and compiles and resolves every material. A
// scene or material that cannot be prepared is a fatal startup error.
func NewApp(outW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	scene, err := LoadScene(cfg.ScenePath)
	if err != nil {
		panic(fmt.Errorf("failed to load scene: %w", err))
	}
	logger.Debug("Scene loaded.", "materials", len(scene.Materials), "spheres", len(scene.Spheres))

	sys := shading.NewSystem(shading.WithHost(&diagHost{outW: outW}))
	if err := registerSurfaceTypes(sys); err != nil {
		panic(fmt.Errorf("failed to register surface types: %w", err))
	}
	logger.Debug("Closure types and globals registered.")

	sctx, err := sys.NewContext()
	if err != nil {
		panic(err)
	}

	materials := make(map[string]*shading.Instance, len(scene.Materials))
	for _, m := range scene.Materials {
		tpl, err := sctx.BeginShaderUnitTemplate(m.Name)
		if err != nil {
			panic(fmt.Errorf("material %q: %w", m.Name, err))
		}
		if err := sctx.CompileShaderUnit(ctx, tpl, m.Source); err != nil {
			panic(fmt.Errorf("material %q: %w", m.Name, err))
		}
		if err := sctx.EndShaderUnitTemplate(tpl); err != nil {
			panic(fmt.Errorf("material %q: %w", m.Name, err))
		}
		inst := tpl.MakeShaderInstance()
		if err := sctx.ResolveShaderInstance(ctx, inst); err != nil {
			panic(fmt.Errorf("material %q: %w", m.Name, err))
		}
		materials[m.Name] = inst
	}
	logger.Debug("All materials compiled and resolved.", "count", len(materials))

	return &App{
		outW:      outW,
		logger:    logger,
		config:    cfg,
		scene:     scene,
		sys:       sys,
		materials: materials,
	}
}

// Close tears down the shading system.
func (a *App) Close() {
	a.sys.Close()
}

// registerSurfaceTypes declares the closure vocabulary and globals the
// renderer's materials are written against: a diffuse lobe, a weighted
// wrapper for layering, and the per-hit surface state.
func registerSurfaceTypes(sys *shading.System) error {
	lambert, lambertSize := closure.AutoLayout([]closure.Field{
		{Name: "base_color", Type: sltype.Color},
	})
	if _, err := sys.RegisterClosureType("lambert", lambert, lambertSize); err != nil {
		return err
	}

	scaled, scaledSize := closure.AutoLayout([]closure.Field{
		{Name: "weight", Type: sltype.Float},
		{Name: "inner", Type: sltype.Closure},
	})
	if _, err := sys.RegisterClosureType("scaled", scaled, scaledSize); err != nil {
		return err
	}

	for _, g := range []struct {
		name string
		typ  sltype.Type
	}{
		{"position", sltype.Vector},
		{"normal", sltype.Vector},
		{"u", sltype.Float},
		{"v", sltype.Float},
	} {
		if _, err := sys.RegisterGlobal(g.name, g.typ); err != nil {
			return err
		}
	}
	return nil
}
