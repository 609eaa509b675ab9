package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PresetsDir returns the directory holding saved transformer presets.
func PresetsDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "presets"), nil
}

// PresetPath returns the full path for a named preset.
func PresetPath(name string) (string, error) {
	dir, err := PresetsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, sanitizeFilename(name)+".json"), nil
}

// ListPresets returns all saved preset names, sorted
func ListPresets() ([]string, error) {
	dir, err := PresetsDir()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".json"))
	}

	sort.Strings(names)
	return names, nil
}

// SavePreset writes serialized preset data under the given name
func SavePreset(name string, data []byte) error {
	dir, err := PresetsDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := PresetPath(name)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadPreset reads a named preset's serialized data
func LoadPreset(name string) ([]byte, error) {
	path, err := PresetPath(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// DeletePreset removes a named preset
func DeletePreset(name string) error {
	path, err := PresetPath(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// sanitizeFilename removes/replaces characters that are problematic in filenames
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, " ", "-")
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	name = strings.ReplaceAll(name, ":", "-")
	name = strings.ReplaceAll(name, "*", "")
	name = strings.ReplaceAll(name, "?", "")
	name = strings.ReplaceAll(name, "\"", "")
	name = strings.ReplaceAll(name, "<", "")
	name = strings.ReplaceAll(name, ">", "")
	name = strings.ReplaceAll(name, "|", "")
	return name
}
