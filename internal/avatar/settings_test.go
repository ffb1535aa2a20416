package avatar

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestParseSettings(t *testing.T) {
	s, err := ParseSettings([]byte(testSettings))
	if err != nil {
		t.Fatal(err)
	}
	if s.Model != "test.moc" || len(s.Textures) != 1 || s.Pose != "pose.json" {
		t.Errorf("settings %+v", s)
	}
	if s.MotionCount("idle") != 1 || s.MotionCount("nope") != 0 {
		t.Errorf("motion counts idle=%d nope=%d", s.MotionCount("idle"), s.MotionCount("nope"))
	}
	tap := s.Motions["tap_body"][0]
	if tap.FadeIn == nil || *tap.FadeIn != 0 || tap.FadeOut != nil {
		t.Errorf("tap fades %v %v", tap.FadeIn, tap.FadeOut)
	}
	if got := s.HitAreaIDs("head"); !slices.Equal(got, []string{"D_HEAD"}) {
		t.Errorf("head ids %v", got)
	}
	if len(s.InitParams) != 2 || s.InitParams[0].Value != 0.5 {
		t.Errorf("init params %+v", s.InitParams)
	}
	if s.Layout != nil {
		t.Error("layout set without a layout key")
	}
}

func TestParseSettingsLayout(t *testing.T) {
	s, err := ParseSettings([]byte(`{"model": "m.moc", "layout": {"width": 1.5, "center_x": 0.25}}`))
	if err != nil {
		t.Fatal(err)
	}
	l := s.Layout
	if l == nil || l.Width == nil || *l.Width != 1.5 || l.CenterX == nil || l.Height != nil {
		t.Errorf("layout %+v", l)
	}
}

func TestParseSettingsErrors(t *testing.T) {
	for _, src := range []string{`{`, `{"name": "no model"}`, `{"model": 3}`} {
		if _, err := ParseSettings([]byte(src)); err == nil {
			t.Errorf("ParseSettings(%s) succeeded", src)
		}
	}
}

func TestLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte(testSettings), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSettings(path); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSettings(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file loaded")
	}
}
