package app

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"runtime"

	"github.com/zclconf/go-cty/cty"
	"golang.org/x/sync/errgroup"

	"github.com/vk/shadelink/internal/arena"
	"github.com/vk/shadelink/internal/closure"
	"github.com/vk/shadelink/internal/ctxlog"
	"github.com/vk/shadelink/internal/global"
	"github.com/vk/shadelink/internal/sltype"
)

// Run renders the scene and writes the image. Scanlines render in
// parallel; each worker carries its own globals block and arena, reset
// per pixel.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	width, height := a.scene.Image.Width, a.scene.Image.Height
	pixels := make([]pixel, width*height)

	workers := a.config.WorkerCount
	if workers <= 0 {
		workers = a.scene.Render.Workers
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	capacity := a.config.ArenaCapacity
	if capacity <= 0 {
		capacity = a.scene.Render.ArenaCapacity
	}

	a.logger.Info("🚀 Starting render.", "width", width, "height", height, "workers", workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	layout := a.sys.GlobalLayout()

	for y := 0; y < height; y++ {
		y := y
		g.Go(func() error {
			block := layout.NewBlock()
			ar := arena.New(capacity)
			for x := 0; x < width; x++ {
				p, err := a.renderPixel(gctx, block, ar, x, y)
				if err != nil {
					return fmt.Errorf("pixel (%d,%d): %w", x, y, err)
				}
				pixels[y*width+x] = p
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	output := a.config.Output
	if output == "" {
		output = a.scene.Image.Output
	}
	if output == "" {
		output = "render.ppm"
	}
	if err := writePPM(output, width, height, pixels); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}

	a.logger.Info("🏁 Render finished.", "output", output)
	return nil
}

var lightDir = normalize(vec3{1, 1, 0.5})

// renderPixel casts one primary ray, shades the nearest hit through its
// material instance, and folds the resulting closure tree into a color.
func (a *App) renderPixel(ctx context.Context, block *global.Block, ar *arena.Arena, x, y int) (pixel, error) {
	w := float64(a.scene.Image.Width)
	h := float64(a.scene.Image.Height)

	// Pinhole camera at the origin looking down -Z through a 2-unit
	// viewport.
	aspect := w / h
	px := (2*(float64(x)+0.5)/w - 1) * aspect
	py := 1 - 2*(float64(y)+0.5)/h
	dir := normalize(vec3{px, py, -1})

	hit, sphere, ok := a.nearestHit(vec3{}, dir)
	if !ok {
		return background(dir), nil
	}

	n := normalize(sub(hit, vec3{sphere.Center[0], sphere.Center[1], sphere.Center[2]}))
	u, v := sphereUV(n)

	if err := block.Set("position", sltype.VectorVal(hit.x, hit.y, hit.z)); err != nil {
		return pixel{}, err
	}
	if err := block.Set("normal", sltype.VectorVal(n.x, n.y, n.z)); err != nil {
		return pixel{}, err
	}
	if err := block.Set("u", cty.NumberFloatVal(u)); err != nil {
		return pixel{}, err
	}
	if err := block.Set("v", cty.NumberFloatVal(v)); err != nil {
		return pixel{}, err
	}

	ar.Reset()
	node, err := a.materials[sphere.Material].Execute(ctx, block, ar)
	if err != nil {
		return pixel{}, err
	}

	r, g, b := a.shade(node, n)
	return pixel{clamp01(r), clamp01(g), clamp01(b)}, nil
}

// shade folds a closure tree into a final color. A nil tree contributes
// nothing; an unknown closure type shades magenta so it is visible in
// the output instead of silently black.
func (a *App) shade(node *closure.TreeNode, n vec3) (float64, float64, float64) {
	if node == nil {
		return 0, 0, 0
	}
	switch node.Descriptor().Name {
	case "lambert":
		base, err := node.Get("base_color")
		if err != nil {
			return 1, 0, 1
		}
		r, g, b := colorComponents(base)
		lam := math.Max(dot(n, lightDir), 0)*0.9 + 0.1
		return r * lam, g * lam, b * lam

	case "scaled":
		weightVal, err := node.Get("weight")
		if err != nil {
			return 1, 0, 1
		}
		innerVal, err := node.Get("inner")
		if err != nil || innerVal.IsNull() {
			return 0, 0, 0
		}
		raw, ok := sltype.ClosureNode(innerVal)
		if !ok {
			return 1, 0, 1
		}
		inner, ok := raw.(*closure.TreeNode)
		if !ok {
			return 1, 0, 1
		}
		weight := floatComponent(weightVal)
		r, g, b := a.shade(inner, n)
		return weight * r, weight * g, weight * b
	}
	return 1, 0, 1
}

func (a *App) nearestHit(origin, dir vec3) (vec3, *SphereDecl, bool) {
	nearest := math.Inf(1)
	var found *SphereDecl
	for i := range a.scene.Spheres {
		s := &a.scene.Spheres[i]
		t, ok := intersectSphere(origin, dir, vec3{s.Center[0], s.Center[1], s.Center[2]}, s.Radius)
		if ok && t < nearest {
			nearest = t
			found = s
		}
	}
	if found == nil {
		return vec3{}, nil, false
	}
	return add(origin, scale(dir, nearest)), found, true
}

func intersectSphere(origin, dir, center vec3, radius float64) (float64, bool) {
	oc := sub(origin, center)
	b := dot(oc, dir)
	c := dot(oc, oc) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	t := -b - math.Sqrt(disc)
	if t < 1e-4 {
		return 0, false
	}
	return t, true
}

func sphereUV(n vec3) (float64, float64) {
	u := 0.5 + math.Atan2(n.z, n.x)/(2*math.Pi)
	v := 0.5 - math.Asin(math.Max(-1, math.Min(1, n.y)))/math.Pi
	return u, v
}

// background is a vertical sky gradient, the usual empty-scene sanity
// signal.
func background(dir vec3) pixel {
	t := 0.5 * (dir.y + 1)
	return pixel{
		(1-t)*1.0 + t*0.5,
		(1-t)*1.0 + t*0.7,
		(1-t)*1.0 + t*1.0,
	}
}

type pixel struct {
	r, g, b float64
}

func writePPM(path string, width, height int, pixels []pixel) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "P3\n%d %d\n255\n", width, height)
	for _, p := range pixels {
		fmt.Fprintf(w, "%d %d %d\n", toByte(p.r), toByte(p.g), toByte(p.b))
	}
	return w.Flush()
}

func toByte(v float64) int {
	return int(clamp01(v) * 255.999)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func colorComponents(v cty.Value) (float64, float64, float64) {
	r, _ := v.GetAttr("r").AsBigFloat().Float64()
	g, _ := v.GetAttr("g").AsBigFloat().Float64()
	b, _ := v.GetAttr("b").AsBigFloat().Float64()
	return r, g, b
}

func floatComponent(v cty.Value) float64 {
	f, _ := v.AsBigFloat().Float64()
	return f
}

type vec3 struct {
	x, y, z float64
}

func add(a, b vec3) vec3      { return vec3{a.x + b.x, a.y + b.y, a.z + b.z} }
func sub(a, b vec3) vec3      { return vec3{a.x - b.x, a.y - b.y, a.z - b.z} }
func scale(a vec3, s float64) vec3 { return vec3{a.x * s, a.y * s, a.z * s} }
func dot(a, b vec3) float64   { return a.x*b.x + a.y*b.y + a.z*b.z }

func normalize(a vec3) vec3 {
	l := math.Sqrt(dot(a, a))
	if l == 0 {
		return a
	}
	return scale(a, 1/l)
}
