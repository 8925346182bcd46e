// Package app is the sample embedding of the shading runtime: a small
// sphere renderer that loads a TOML scene, compiles its materials into
// shader templates, and shades every pixel through resolved instances.
// It exists to exercise the runtime the way a production renderer would,
// including the host callback interface and per-goroutine evaluation
// state.
package app
