package engine

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sonigraph/sonify"
	"gopkg.in/yaml.v2"
)

type (
	// Preferences are the defaults the model starts from and falls back to
	// when switching to function mode.
	Preferences struct {
		Playback sonify.PlaybackParams
		Function FunctionPreferences
		YmlError error `yaml:"-"`
	}

	FunctionPreferences struct {
		Expression string
		Domain     sonify.DomainSpec `yaml:",inline"`
	}
)

//go:embed preferences.yml
var defaultPreferencesYaml []byte

func loadDefaultPreferences() Preferences {
	var preferences Preferences
	err := yaml.UnmarshalStrict(defaultPreferencesYaml, &preferences)
	if err != nil {
		panic(fmt.Errorf("failed to unmarshal preferences: %w", err))
	}
	return preferences
}

// ReadCustomConfigYml modifies the target argument, i.e. needs a pointer
func ReadCustomConfigYml(filename string, target any) (exists bool, err error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return false, err
	}
	path := filepath.Join(configDir, "sonify", filename)
	bytes, err2 := os.ReadFile(path)
	if err2 != nil {
		return false, err2
	}
	err = yaml.UnmarshalStrict(bytes, target)
	return true, err
}

// DefaultPreferences returns the built-in preferences.
func DefaultPreferences() Preferences {
	return loadDefaultPreferences()
}

// MakePreferences returns the built-in preferences overridden by
// preferences.yml in the user's config directory, if it exists. A malformed
// file is reported in YmlError.
func MakePreferences() Preferences {
	preferences := loadDefaultPreferences()
	exists, err := ReadCustomConfigYml("preferences.yml", &preferences)
	if exists {
		preferences.YmlError = err
	}
	return preferences
}
