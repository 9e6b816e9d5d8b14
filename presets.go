package sonify

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Preset is a named, canned function with a human readable description.
type Preset struct {
	ID             string
	Label          string
	Expression     string
	DisplayFormula string `yaml:"displayformula"`
	Description    string
	Domain         *DomainSpec `yaml:",omitempty"`
}

//go:embed presets/functions.yml
var functionPresetsYaml []byte

var functionPresets = func() []Preset {
	var ret []Preset
	if err := yaml.Unmarshal(functionPresetsYaml, &ret); err != nil {
		panic(fmt.Errorf("failed to unmarshal function presets: %w", err))
	}
	return ret
}()

// Presets returns the built-in function presets. The returned slice is a copy.
func Presets() []Preset {
	ret := make([]Preset, len(functionPresets))
	copy(ret, functionPresets)
	return ret
}

// FindPreset looks up a built-in preset by its id.
func FindPreset(id string) (Preset, bool) {
	for _, p := range functionPresets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}
