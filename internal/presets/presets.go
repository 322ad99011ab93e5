// Package presets holds the embedded agent templates.
package presets

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/clawdesk/clawdesk/internal/timeline"
	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var presetsYAML []byte

// Well-known preset keys.
const (
	Trending = "trending"
	Hashtag  = "hashtag"
	Digest   = "digest"
)

// ErrUnknownPreset is returned by Get for a key that is not defined.
var ErrUnknownPreset = errors.New("unknown preset")

// Preset is one agent template.
type Preset struct {
	Key      string   `yaml:"key" json:"key"`
	Name     string   `yaml:"name" json:"name"`
	Role     string   `yaml:"role" json:"role"`
	Goal     string   `yaml:"goal" json:"goal"`
	Tools    []string `yaml:"tools" json:"tools"`
	Schedule string   `yaml:"schedule" json:"schedule"`
	Sandbox  bool     `yaml:"sandbox" json:"sandbox"`
	Summary  string   `yaml:"summary" json:"summary"`
}

// Agent returns a fresh, unsaved agent built from the preset.
func (p Preset) Agent() *timeline.Agent {
	return &timeline.Agent{
		Name:     p.Name,
		Role:     p.Role,
		Goal:     p.Goal,
		Tools:    append([]string(nil), p.Tools...),
		Schedule: p.Schedule,
		Sandbox:  p.Sandbox,
	}
}

type document struct {
	Presets []Preset `yaml:"presets"`
}

var (
	loadOnce sync.Once
	loaded   []Preset
	loadErr  error
)

// Parse decodes a presets document.
func Parse(data []byte) ([]Preset, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal presets: %w", err)
	}
	seen := make(map[string]bool, len(doc.Presets))
	for _, p := range doc.Presets {
		if p.Key == "" || p.Name == "" {
			return nil, fmt.Errorf("preset missing key or name: %+v", p)
		}
		if seen[p.Key] {
			return nil, fmt.Errorf("duplicate preset key %q", p.Key)
		}
		seen[p.Key] = true
	}
	return doc.Presets, nil
}

// All returns every embedded preset in file order.
func All() []Preset {
	loadOnce.Do(func() { loaded, loadErr = Parse(presetsYAML) })
	if loadErr != nil {
		panic("presets: embedded presets.yaml is invalid: " + loadErr.Error())
	}
	return loaded
}

// Get returns the preset for key, case-insensitively.
func Get(key string) (Preset, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, p := range All() {
		if p.Key == key {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, key)
}

// MustGet is Get for the well-known keys.
func MustGet(key string) Preset {
	p, err := Get(key)
	if err != nil {
		panic(err)
	}
	return p
}
