package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Scene is the loaded, validated description of what to render: image
// dimensions, render settings, material shader sources, and the spheres
// they are bound to.
type Scene struct {
	Image     ImageConfig    `toml:"image"`
	Render    RenderConfig   `toml:"render"`
	Materials []MaterialDecl `toml:"material"`
	Spheres   []SphereDecl   `toml:"sphere"`
}

// ImageConfig sizes the output image.
type ImageConfig struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Output string `toml:"output"`
}

// RenderConfig tunes the evaluation loop.
type RenderConfig struct {
	Workers       int `toml:"workers"`
	ArenaCapacity int `toml:"arena_capacity"`
}

// MaterialDecl names one material and carries its shader source, either
// inline or as a path relative to the scene file.
type MaterialDecl struct {
	Name   string `toml:"name"`
	Shader string `toml:"shader"`
	Source string `toml:"source"`
}

// SphereDecl places one sphere and binds it to a material by name.
type SphereDecl struct {
	Center   [3]float64 `toml:"center"`
	Radius   float64    `toml:"radius"`
	Material string     `toml:"material"`
}

// LoadScene decodes and validates a TOML scene file. Shader sources
// referenced by path are read here, so a returned Scene is self-contained.
func LoadScene(path string) (*Scene, error) {
	var scene Scene
	meta, err := toml.DecodeFile(path, &scene)
	if err != nil {
		return nil, fmt.Errorf("decoding scene %q: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("scene %q has unknown keys: %v", path, undecoded)
	}

	if scene.Image.Width <= 0 || scene.Image.Height <= 0 {
		return nil, fmt.Errorf("scene %q: image dimensions must be positive, got %dx%d",
			path, scene.Image.Width, scene.Image.Height)
	}
	if len(scene.Materials) == 0 {
		return nil, fmt.Errorf("scene %q declares no materials", path)
	}

	sceneDir := filepath.Dir(path)
	names := make(map[string]struct{}, len(scene.Materials))
	for i := range scene.Materials {
		m := &scene.Materials[i]
		if m.Name == "" {
			return nil, fmt.Errorf("scene %q: material %d has no name", path, i)
		}
		if _, dup := names[m.Name]; dup {
			return nil, fmt.Errorf("scene %q: material %q declared twice", path, m.Name)
		}
		names[m.Name] = struct{}{}

		switch {
		case m.Source != "" && m.Shader != "":
			return nil, fmt.Errorf("scene %q: material %q sets both source and shader", path, m.Name)
		case m.Source == "" && m.Shader == "":
			return nil, fmt.Errorf("scene %q: material %q sets neither source nor shader", path, m.Name)
		case m.Shader != "":
			src, err := os.ReadFile(filepath.Join(sceneDir, m.Shader))
			if err != nil {
				return nil, fmt.Errorf("scene %q: material %q: %w", path, m.Name, err)
			}
			m.Source = string(src)
		}
	}

	for i, s := range scene.Spheres {
		if s.Radius <= 0 {
			return nil, fmt.Errorf("scene %q: sphere %d has non-positive radius", path, i)
		}
		if _, ok := names[s.Material]; !ok {
			return nil, fmt.Errorf("scene %q: sphere %d references unknown material %q", path, i, s.Material)
		}
	}

	return &scene, nil
}
