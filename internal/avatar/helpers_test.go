package avatar

import (
	"image"
	"image/color"
	"image/png"
	stdmath "math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"

	"github.com/Faultbox/l2drt/pkg/moc"
	"github.com/Faultbox/l2drt/pkg/model"
	"github.com/Faultbox/l2drt/pkg/motion"
)

const (
	paramX         model.ParamID = "PARAM_X"
	paramMouthForm model.ParamID = "PARAM_MOUTH_FORM"
)

func approxEqual(a, b, eps float32) bool {
	return float32(stdmath.Abs(float64(a-b))) <= eps
}

// quadMesh is a two-triangle mesh covering canvas rectangle (x0,y0)-(x1,y1)
// directly on the canvas.
func quadMesh(id model.DrawDataID, order int32, x0, y0, x1, y1 float32) *model.DrawData {
	return &model.DrawData{
		Kind:             model.DrawTexture,
		ID:               id,
		TargetID:         model.DstBaseID,
		Pivots:           &model.PivotManager{Params: []*model.ParamPivots{{ParamID: paramX, Values: []float32{0}}}},
		AverageDrawOrder: order,
		PivotDrawOrder:   []int32{order},
		NumPts:           4,
		NumPolygons:      2,
		Indices:          []uint16{0, 1, 2, 0, 2, 3},
		PivotPoints:      [][]float32{{x0, y0, x1, y0, x1, y1, x0, y1}},
		UVs:              []float32{0, 0, 1, 0, 1, 1, 0, 1},
	}
}

// testModel is a 100×100 canvas with a body quad, a head quad over its top
// 40 units and three empty parts for pose tests.
func testModel() *model.Model {
	param := func(id model.ParamID, lo, hi, def float32) *model.ParamDef {
		return &model.ParamDef{ID: id, Min: lo, Max: hi, Default: def}
	}
	return &model.Model{
		CanvasWidth:  100,
		CanvasHeight: 100,
		Params: []*model.ParamDef{
			param(paramX, 0, 10, 0),
			param(ParamAngleX, -30, 30, 0),
			param(ParamAngleZ, -30, 30, 0),
			param(ParamBreath, 0, 1, 0),
			param(ParamMouthOpenY, 0, 1, 0),
			param(paramMouthForm, -1, 1, 0),
			param(motion.ParamEyeLOpen, 0, 1, 1),
		},
		Parts: []*model.PartsData{
			{
				ID:       "PARTS_BODY",
				Visible:  true,
				DrawData: []*model.DrawData{quadMesh("D_BODY", 500, 0, 0, 100, 100), quadMesh("D_HEAD", 600, 0, 0, 100, 40)},
			},
			{ID: "PARTS_ARM_A", Visible: true},
			{ID: "PARTS_ARM_B", Visible: true},
			{ID: "PARTS_ARM_A_SHADOW", Visible: true},
		},
	}
}

const testSettings = `{
	"name": "test",
	"model": "test.moc",
	"textures": ["tex.png"],
	"physics": "test.physics.json",
	"pose": "pose.json",
	"expressions": [{"name": "smile", "file": "smile.exp.json"}],
	"hit_areas": [{"name": "head", "id": "D_HEAD"}, {"name": "body", "id": "D_BODY"}],
	"motions": {
		"idle": [{"file": "idle.mtn", "fade_in": 0, "fade_out": 0}],
		"tap_body": [{"file": "tap.mtn", "fade_in": 0}],
		"talk": [{"file": "tap.mtn", "sound": "voice.wav"}],
		"broken": [{"file": "missing.mtn"}]
	},
	"init_param": [{"id": "PARAM_MOUTH_FORM", "value": 0.5}, {"id": "PARAM_NOPE", "value": 1}],
	"init_parts_visible": [{"id": "PARTS_BODY", "value": 0.75}]
}`

var testFiles = map[string]string{
	"model.json": testSettings,
	"idle.mtn":   "$fps=30\nPARAM_X=5,5,5,5,5,5,5,5,5,5\n",
	"tap.mtn":    "$fps=30\n$fadeout=0\nPARAM_X=9,9,9,9,9,9,9,9,9,9,9,9,9,9,9,9,9,9,9,9,9,9,9,9,9,9,9,9,9,9\n",
	"smile.exp.json": `{"fade_in": 0, "fade_out": 0,
		"params": [{"id": "PARAM_MOUTH_FORM", "val": 1, "calc": "set"}]}`,
	"test.physics.json": `{"physics_hair": [{
		"setup": {"length": 0.2, "regist": 0.5, "mass": 0.14},
		"src": [{"id": "PARAM_ANGLE_X", "ptype": "x", "scale": 0.02}],
		"targets": [{"id": "PARAM_ANGLE_Z", "ptype": "angle", "scale": 0.1}]}]}`,
	"pose.json": `{"parts_visible": [{"group": [
		{"id": "PARTS_ARM_A", "link": ["PARTS_ARM_A_SHADOW"]},
		{"id": "PARTS_ARM_B"}]}]}`,
}

// writeFixture writes a complete model directory and returns the path of
// its model.json.
func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	write := func(name string, data []byte) {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	for name, body := range testFiles {
		write(name, []byte(body))
	}

	data, err := model.Encode(testModel(), moc.Header{Version: moc.VersionCurrent})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	write("test.moc", data)

	f, err := os.Create(filepath.Join(dir, "tex.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, solid(color.NRGBA{R: 255, A: 255})); err != nil {
		t.Fatal(err)
	}
	f.Close()

	writeVoice(t, filepath.Join(dir, "voice.wav"))
	return filepath.Join(dir, "model.json")
}

func solid(c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// writeVoice encodes half a second of a loud 300 Hz tone.
func writeVoice(t *testing.T, path string) {
	t.Helper()
	format := beep.Format{SampleRate: 8000, NumChannels: 1, Precision: 2}
	total := format.SampleRate.N(500 * time.Millisecond)
	i := 0
	gen := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if i >= total {
			return 0, false
		}
		n := 0
		for n < len(samples) && i < total {
			v := 0.9 * stdmath.Sin(2*stdmath.Pi*300*float64(i)/float64(format.SampleRate))
			samples[n] = [2]float64{v, v}
			n++
			i++
		}
		return n, true
	})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := wav.Encode(f, gen, format); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
}

// quietOptions turns off every automatic behavior so tests see only what
// they drive.
func quietOptions(clock motion.Clock) Options {
	return Options{Clock: clock, IdleGroup: GroupIdle}
}

func loadAvatar(t *testing.T, opts Options) *Avatar {
	t.Helper()
	a, err := Load(writeFixture(t), opts)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return a
}
