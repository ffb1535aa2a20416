package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Faultbox/l2drt/internal/avatar"
	"github.com/Faultbox/l2drt/pkg/moc"
	"github.com/Faultbox/l2drt/pkg/model"
	"github.com/Faultbox/l2drt/pkg/motion"
)

// resolveModel returns the .moc path for a model.json or .moc argument,
// plus the settings when there are any.
func resolveModel(path string) (string, *avatar.Settings, error) {
	if strings.EqualFold(filepath.Ext(path), ".moc") {
		return path, nil, nil
	}
	s, err := avatar.LoadSettings(path)
	if err != nil {
		return "", nil, err
	}
	return filepath.Join(filepath.Dir(path), s.Model), s, nil
}

func cmdInfo(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil || fs.NArg() < 1 {
		return errUsage
	}

	mocPath, s, err := resolveModel(fs.Arg(0))
	if err != nil {
		return err
	}
	data, err := os.ReadFile(mocPath)
	if err != nil {
		return err
	}
	h, err := moc.ParseHeader(data)
	if err != nil {
		return err
	}
	mainArena, scratch := moc.NewArena(0), moc.NewArena(0)
	m, err := model.LoadWithOptions(data, model.LoadOptions{Main: mainArena, Scratch: scratch})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Model:       %s\n", mocPath)
	fmt.Fprintf(w, "Format:      %s\n", h)
	fmt.Fprintf(w, "Size:        %d bytes\n", len(data))
	fmt.Fprintf(w, "Canvas:      %dx%d\n", m.CanvasWidth, m.CanvasHeight)
	fmt.Fprintf(w, "Parameters:  %d\n", len(m.Params))
	fmt.Fprintf(w, "Parts:       %d\n", len(m.Parts))
	fmt.Fprintf(w, "Deformers:   %d\n", m.BaseDataCount())
	fmt.Fprintf(w, "Meshes:      %d\n", m.DrawDataCount())
	if len(m.AvatarParts) > 0 {
		fmt.Fprintf(w, "Avatar sets: %d\n", len(m.AvatarParts))
	}

	var kinds [2]int
	var points, polys int
	for i := range m.BaseDataCount() {
		if m.BaseDataAt(i).Kind == model.BaseAffine {
			kinds[0]++
		} else {
			kinds[1]++
		}
	}
	for i := range m.DrawDataCount() {
		d := m.DrawDataAt(i)
		points += d.NumPts
		polys += d.NumPolygons
	}
	fmt.Fprintf(w, "  affine %d, grid %d; %d vertices, %d triangles\n", kinds[0], kinds[1], points, polys)

	ms, ss := mainArena.Stats(), scratch.Stats()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arena:")
	fmt.Fprintf(w, "  main     %6d allocs %9d bytes %4d pages\n", ms.Allocs, ms.Bytes, ms.Pages)
	fmt.Fprintf(w, "  scratch  %6d allocs %9d pages after clear\n", ss.Allocs, ss.Pages)

	if s != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Settings:    %s\n", s.Name)
		fmt.Fprintf(w, "Textures:    %d\n", len(s.Textures))
		fmt.Fprintf(w, "Expressions: %d\n", len(s.Expressions))
		fmt.Fprintf(w, "Physics:     %s\n", orNone(s.Physics))
		fmt.Fprintf(w, "Pose:        %s\n", orNone(s.Pose))
		groups := make([]string, 0, len(s.Motions))
		for g := range s.Motions {
			groups = append(groups, g)
		}
		slices.Sort(groups)
		for _, g := range groups {
			fmt.Fprintf(w, "  motions %-12s %d\n", g, len(s.Motions[g]))
		}
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func cmdParams(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("params", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil || fs.NArg() < 1 {
		return errUsage
	}
	mocPath, _, err := resolveModel(fs.Arg(0))
	if err != nil {
		return err
	}
	m, err := model.LoadFile(mocPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%-32s %10s %10s %10s\n", "ID", "MIN", "MAX", "DEFAULT")
	for _, p := range m.Params {
		fmt.Fprintf(w, "%-32s %10.3f %10.3f %10.3f\n", p.ID, p.Min, p.Max, p.Default)
	}
	return nil
}

var curveKinds = map[motion.CurveKind]string{
	motion.CurveParam:   "param",
	motion.CurveVisible: "visible",
	motion.CurveLayout:  "layout",
}

func cmdMotion(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("motion", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil || fs.NArg() < 1 {
		return errUsage
	}
	k, err := motion.LoadKeyframe(fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Motion:   %s\n", fs.Arg(0))
	fmt.Fprintf(w, "FPS:      %g\n", k.FPS)
	fmt.Fprintf(w, "Frames:   %d\n", k.MaxFrames())
	fmt.Fprintf(w, "Duration: %d ms\n", k.LoopDuration())
	fmt.Fprintf(w, "Fades:    in %d ms, out %d ms\n", k.FadeIn, k.FadeOut)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-8s %-32s %6s %9s %9s\n", "KIND", "ID", "FRAMES", "MIN", "MAX")
	for _, c := range k.Curves {
		lo, hi := float32(0), float32(0)
		if len(c.Values) > 0 {
			lo, hi = slices.Min(c.Values), slices.Max(c.Values)
		}
		fmt.Fprintf(w, "%-8s %-32s %6d %9.3f %9.3f\n", curveKinds[c.Kind], c.ID, len(c.Values), lo, hi)
	}
	return nil
}
