package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/l2drt/pkg/moc"
	"github.com/Faultbox/l2drt/pkg/model"
)

// writeModel writes a small big-endian model with one quad driven by
// PARAM_ANGLE_X and returns the directory and the .moc path.
func writeModel(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	m := &model.Model{
		CanvasWidth:  32,
		CanvasHeight: 32,
		Params:       []*model.ParamDef{{ID: "PARAM_ANGLE_X", Min: -30, Max: 30}},
		Parts: []*model.PartsData{{
			ID:      "PARTS_ALL",
			Visible: true,
			DrawData: []*model.DrawData{{
				Kind:             model.DrawTexture,
				ID:               "D_ALL",
				TargetID:         model.DstBaseID,
				Pivots:           &model.PivotManager{Params: []*model.ParamPivots{{ParamID: "PARAM_ANGLE_X", Values: []float32{0}}}},
				AverageDrawOrder: 500,
				PivotDrawOrder:   []int32{500},
				NumPts:           3,
				NumPolygons:      1,
				Indices:          []uint16{0, 1, 2},
				PivotPoints:      [][]float32{{0, 0, 32, 0, 0, 32}},
				UVs:              []float32{0, 0, 1, 0, 0, 1},
			}},
		}},
	}
	data, err := model.Encode(m, moc.Header{Version: moc.VersionCurrent})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "tri.moc")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, path
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestInfo(t *testing.T) {
	dir, mocPath := writeModel(t)
	settings := filepath.Join(dir, "tri.model.json")
	writeFile(t, settings, `{"name": "tri", "model": "tri.moc", "motions": {"idle": [{"file": "a.mtn"}]}}`)

	var out bytes.Buffer
	if err := cmdInfo([]string{mocPath}, &out); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Canvas:      32x32", "Parameters:  1", "Meshes:      1", "Arena:", "moc v11 BE"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("info output missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := cmdInfo([]string{settings}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "motions idle") {
		t.Errorf("settings section missing:\n%s", out.String())
	}
}

func TestParams(t *testing.T) {
	_, mocPath := writeModel(t)
	var out bytes.Buffer
	if err := cmdParams([]string{mocPath}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "PARAM_ANGLE_X") || !strings.Contains(out.String(), "-30.000") {
		t.Errorf("params output:\n%s", out.String())
	}
}

func TestMotion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.mtn")
	writeFile(t, path, "$fps=10\nPARAM_A=0,1,2,3\nVISIBLE:PARTS_B=1\n")
	var out bytes.Buffer
	if err := cmdMotion([]string{path}, &out); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Duration: 400 ms", "param", "visible", "PARTS_B"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("motion output missing %q:\n%s", want, out.String())
		}
	}
}

func TestConvert(t *testing.T) {
	dir, mocPath := writeModel(t)
	out := filepath.Join(dir, "le.moc")
	var buf bytes.Buffer
	if err := cmdConvert([]string{"-o", out, "-le", mocPath}, &buf); err != nil {
		t.Fatal(err)
	}
	m, err := model.LoadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !m.LittleEndian || m.Version != moc.VersionCurrent || m.DrawDataCount() != 1 {
		t.Errorf("converted model v%d le=%v meshes=%d", m.Version, m.LittleEndian, m.DrawDataCount())
	}
}

func TestPlotAndSnap(t *testing.T) {
	dir, _ := writeModel(t)
	settings := filepath.Join(dir, "tri.model.json")
	writeFile(t, settings, `{"model": "tri.moc"}`)

	var out bytes.Buffer
	if err := cmdPlot([]string{"-ms", "500", "-height", "5", settings}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "PARAM_ANGLE_X over 500 ms") {
		t.Errorf("plot output:\n%s", out.String())
	}
	if err := cmdPlot([]string{"-param", "PARAM_NOPE", settings}, &out); err == nil {
		t.Error("plot of an unknown parameter succeeded")
	}

	png := filepath.Join(dir, "out", "snap.png")
	out.Reset()
	if err := cmdSnap([]string{"-o", png, "-t", "100", "-w", "16", "-h", "16", settings}, &out); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(png); err != nil {
		t.Errorf("snapshot not written: %v", err)
	}
	// No textures are listed, so the mesh is skipped rather than drawn.
	if !strings.Contains(out.String(), "0 meshes") {
		t.Errorf("snap output: %s", out.String())
	}
}

func TestUsageErrors(t *testing.T) {
	var out bytes.Buffer
	for name, cmd := range commands {
		if err := cmd.run(nil, &out); !errors.Is(err, errUsage) {
			t.Errorf("%s with no arguments: %v", name, err)
		}
	}
}

func TestParseMotionRef(t *testing.T) {
	tests := []struct {
		in    string
		group string
		no    int
		ok    bool
	}{
		{"tap_body:2", "tap_body", 2, true},
		{"idle", "idle", 0, true},
		{"idle:x", "", 0, false},
	}
	for _, tt := range tests {
		g, n, err := parseMotionRef(tt.in)
		if (err == nil) != tt.ok || g != tt.group || n != tt.no {
			t.Errorf("parseMotionRef(%q) = %q, %d, %v", tt.in, g, n, err)
		}
	}
}
