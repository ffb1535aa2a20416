package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/Faultbox/l2drt/internal/avatar"
	"github.com/Faultbox/l2drt/internal/raster"
	"github.com/Faultbox/l2drt/pkg/moc"
	"github.com/Faultbox/l2drt/pkg/model"
	"github.com/Faultbox/l2drt/pkg/motion"
)

const frameMS = 1000 / 30

// offline loads an avatar on a manual clock with a fixed seed, so plots
// and snapshots are reproducible.
func offline(path string, seed uint64, blink bool) (*avatar.Avatar, *motion.ManualClock, error) {
	clock := &motion.ManualClock{}
	opts := avatar.Options{
		Clock:    clock,
		Rand:     rand.New(rand.NewPCG(seed, seed)),
		Physics:  true,
		Breath:   true,
		EyeBlink: blink,
	}
	a, err := avatar.Load(path, opts)
	if err != nil {
		return nil, nil, err
	}
	return a, clock, nil
}

// parseMotionRef splits "group:no".
func parseMotionRef(s string) (string, int, error) {
	group, no, ok := strings.Cut(s, ":")
	if !ok {
		return s, 0, nil
	}
	n, err := strconv.Atoi(no)
	if err != nil {
		return "", 0, fmt.Errorf("motion %q: %w", s, err)
	}
	return group, n, nil
}

func cmdPlot(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("plot", flag.ContinueOnError)
	param := fs.String("param", string(avatar.ParamAngleX), "Parameter to chart")
	ms := fs.Int("ms", 3000, "Time span in milliseconds")
	start := fs.String("motion", "", "Motion to start at t=0, as group:no")
	height := fs.Int("height", 12, "Chart height in rows")
	width := fs.Int("width", 72, "Chart width in columns")
	seed := fs.Uint64("seed", 1, "Random seed")
	if err := fs.Parse(args); err != nil || fs.NArg() < 1 {
		return errUsage
	}

	a, clock, err := offline(fs.Arg(0), *seed, false)
	if err != nil {
		return err
	}
	ctx := a.Context()
	idx := ctx.ParamIndex(model.ParamID(*param))
	if idx < 0 {
		return fmt.Errorf("model has no parameter %s", *param)
	}
	if *start != "" {
		group, no, err := parseMotionRef(*start)
		if err != nil {
			return err
		}
		if a.StartMotion(group, no, motion.PriorityForce) < 0 {
			return fmt.Errorf("motion %s did not start", *start)
		}
	}

	var series []float64
	for t := 0; t <= *ms; t += frameMS {
		clock.Set(int64(t))
		a.Update()
		series = append(series, float64(ctx.Param(idx)))
	}

	lo, hi, _ := ctx.ParamRange(idx)
	fmt.Fprintln(w, asciigraph.Plot(series,
		asciigraph.Height(*height),
		asciigraph.Width(*width),
		asciigraph.Caption(fmt.Sprintf("%s over %d ms, range [%g, %g]", *param, *ms, lo, hi))))
	return nil
}

func cmdSnap(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("snap", flag.ContinueOnError)
	out := fs.String("o", "snapshot.png", "Output file (.png or .webp)")
	at := fs.Int("t", 0, "Time of the frame in milliseconds")
	width := fs.Int("w", 512, "Image width")
	height := fs.Int("h", 512, "Image height")
	bg := fs.String("bg", "#ffffff00", "Background color")
	seed := fs.Uint64("seed", 1, "Random seed")
	if err := fs.Parse(args); err != nil || fs.NArg() < 1 {
		return errUsage
	}
	if *width <= 0 || *height <= 0 {
		return fmt.Errorf("bad size %dx%d", *width, *height)
	}
	color, err := raster.ParseColor(*bg)
	if err != nil {
		return err
	}

	a, clock, err := offline(fs.Arg(0), *seed, true)
	if err != nil {
		return err
	}
	// Step at frame rate so physics and pose fades settle as in playback.
	for t := 0; t < *at; t += frameMS {
		clock.Set(int64(t))
		a.Update()
	}
	clock.Set(int64(*at))
	a.Update()

	r := raster.New(*width, *height)
	r.SetBackground(color)
	r.SetProjection(a.Projection(*width, *height))
	a.BindTextures(r)
	r.Begin()
	a.Draw(r)
	if err := raster.WriteFile(*out, r.Image()); err != nil {
		return err
	}

	st := r.Stats()
	fmt.Fprintf(w, "Wrote %s: %d meshes, %d triangles, %d skipped\n", *out, st.Meshes, st.Triangles, st.Skipped)
	return nil
}

func cmdConvert(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	out := fs.String("o", "", "Output file")
	le := fs.Bool("le", false, "Write little-endian")
	version := fs.Int("version", 0, "Format version (0 keeps the input's)")
	if err := fs.Parse(args); err != nil || fs.NArg() < 1 || *out == "" {
		return errUsage
	}

	m, err := model.LoadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	h := moc.Header{Version: m.Version, LittleEndian: *le}
	if *version != 0 {
		h.Version = *version
	}
	data, err := model.Encode(m, h)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(w, "Wrote %s: %s, %d bytes\n", *out, h, len(data))
	return nil
}
