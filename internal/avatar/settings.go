package avatar

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Faultbox/l2drt/pkg/encoding"
)

// Settings is a model.json file: the model, its textures and the motion,
// expression, physics and pose files that go with it. Paths are relative
// to the settings file.
type Settings struct {
	Version     string                   `json:"version,omitempty"`
	Name        string                   `json:"name,omitempty"`
	Model       string                   `json:"model"`
	Textures    []string                 `json:"textures,omitempty"`
	Physics     string                   `json:"physics,omitempty"`
	Pose        string                   `json:"pose,omitempty"`
	Expressions []ExpressionEntry        `json:"expressions,omitempty"`
	Layout      *Layout                  `json:"layout,omitempty"`
	HitAreas    []HitArea                `json:"hit_areas,omitempty"`
	Motions     map[string][]MotionEntry `json:"motions,omitempty"`
	InitParams  []InitValue              `json:"init_param,omitempty"`
	InitParts   []InitValue              `json:"init_parts_visible,omitempty"`
}

// ExpressionEntry names an expression file.
type ExpressionEntry struct {
	Name string `json:"name"`
	File string `json:"file"`
}

// MotionEntry is one motion of a group. Fade times override the motion
// file's own settings when present.
type MotionEntry struct {
	File    string `json:"file"`
	Sound   string `json:"sound,omitempty"`
	FadeIn  *int64 `json:"fade_in,omitempty"`
	FadeOut *int64 `json:"fade_out,omitempty"`
}

// HitArea maps a tap region name to the mesh that defines it.
type HitArea struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// InitValue sets a parameter or part opacity when the model loads.
type InitValue struct {
	ID    string  `json:"id"`
	Value float32 `json:"value"`
}

// Layout positions the model in logical coordinates. Absent fields are
// left alone.
type Layout struct {
	Width   *float32 `json:"width,omitempty"`
	Height  *float32 `json:"height,omitempty"`
	CenterX *float32 `json:"center_x,omitempty"`
	CenterY *float32 `json:"center_y,omitempty"`
	X       *float32 `json:"x,omitempty"`
	Y       *float32 `json:"y,omitempty"`
	Left    *float32 `json:"left,omitempty"`
	Top     *float32 `json:"top,omitempty"`
	Right   *float32 `json:"right,omitempty"`
	Bottom  *float32 `json:"bottom,omitempty"`
}

// ParseSettings decodes a model.json document. Shift_JIS input is accepted.
func ParseSettings(data []byte) (*Settings, error) {
	var s Settings
	if err := json.Unmarshal(encoding.DecodeBytes(data), &s); err != nil {
		return nil, fmt.Errorf("parsing model settings: %w", err)
	}
	if s.Model == "" {
		return nil, fmt.Errorf("parsing model settings: no model file")
	}
	return &s, nil
}

// LoadSettings reads and parses a model.json file.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	s, err := ParseSettings(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return s, nil
}

// MotionCount returns the number of motions in group.
func (s *Settings) MotionCount(group string) int {
	return len(s.Motions[group])
}

// HitAreaIDs returns the mesh ids registered under name.
func (s *Settings) HitAreaIDs(name string) []string {
	var ids []string
	for _, h := range s.HitAreas {
		if h.Name == name {
			ids = append(ids, h.ID)
		}
	}
	return ids
}
