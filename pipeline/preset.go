package pipeline

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// PresetEntry is the serialized form of one chain position: the transformer
// kind plus its flat config map. The enabled flag travels inside the config
// under the "enabled" key.
type PresetEntry struct {
	Type   string         `json:"type"`
	Config map[string]any `json:"config"`
}

// ExportConfig serializes the chain in order.
func (m *Manager) ExportConfig() []PresetEntry {
	chain := m.Transformers()
	entries := make([]PresetEntry, 0, len(chain))
	for _, t := range chain {
		entries = append(entries, PresetEntry{Type: t.Kind(), Config: t.Config()})
	}
	return entries
}

// ImportConfig rebuilds the chain from entries via the kind registry.
// Unknown kinds are logged and skipped; the rest of the import continues.
// The chain is replaced atomically with one aggregate change notification.
func (m *Manager) ImportConfig(entries []PresetEntry) {
	chain := make([]Transformer, 0, len(entries))
	for _, entry := range entries {
		t, err := New(entry.Type, m.log)
		if err != nil {
			m.log.Warn("skipping preset entry", zap.String("type", entry.Type), zap.Error(err))
			continue
		}
		for key, value := range entry.Config {
			t.SetConfig(key, value)
		}
		chain = append(chain, t)
	}
	m.SetAll(chain)
}

// MarshalPreset renders the chain as indented JSON, the on-disk preset
// format.
func (m *Manager) MarshalPreset() ([]byte, error) {
	return json.MarshalIndent(m.ExportConfig(), "", "  ")
}

// UnmarshalPreset parses JSON produced by MarshalPreset and imports it.
func (m *Manager) UnmarshalPreset(data []byte) error {
	var entries []PresetEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse preset: %w", err)
	}
	m.ImportConfig(entries)
	return nil
}
