package model

import (
	"time"

	"github.com/google/uuid"
)

// SettingsPreset is a named, reusable set of optimizer settings together
// with an optional piece list, e.g. "6 m aluminium, exact counts".
type SettingsPreset struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	CreatedAt   string      `json:"created_at"`
	UpdatedAt   string      `json:"updated_at"`
	Pieces      []PieceType `json:"pieces"`
	Settings    CutSettings `json:"settings"`
}

// NewSettingsPreset creates a preset from the given job data. Results are
// never captured.
func NewSettingsPreset(name, description string, pieces []PieceType, settings CutSettings) SettingsPreset {
	now := time.Now().UTC().Format(time.RFC3339)
	return SettingsPreset{
		ID:          uuid.New().String()[:8],
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
		Pieces:      copyPieces(pieces),
		Settings:    settings,
	}
}

// ToJob creates a new Job from this preset. Pieces get fresh IDs so they
// are independent of the preset.
func (p SettingsPreset) ToJob(jobName string) Job {
	pieces := make([]PieceType, len(p.Pieces))
	for i, pc := range p.Pieces {
		pieces[i] = NewPieceType(pc.Label, pc.Length, pc.Quantity)
	}
	return Job{
		Name:     jobName,
		Pieces:   pieces,
		Settings: p.Settings,
	}
}

// PresetStore holds a collection of settings presets.
type PresetStore struct {
	Presets []SettingsPreset `json:"presets"`
}

func NewPresetStore() PresetStore {
	return PresetStore{
		Presets: []SettingsPreset{},
	}
}

// Add adds a preset to the store.
func (ps *PresetStore) Add(p SettingsPreset) {
	ps.Presets = append(ps.Presets, p)
}

// Remove removes a preset by ID. Returns true if found and removed.
func (ps *PresetStore) Remove(id string) bool {
	for i, p := range ps.Presets {
		if p.ID == id {
			ps.Presets = append(ps.Presets[:i], ps.Presets[i+1:]...)
			return true
		}
	}
	return false
}

// FindByID returns a pointer to the preset with the given ID, or nil.
func (ps *PresetStore) FindByID(id string) *SettingsPreset {
	for i := range ps.Presets {
		if ps.Presets[i].ID == id {
			return &ps.Presets[i]
		}
	}
	return nil
}

// FindByName returns a pointer to the first preset with the given name, or nil.
func (ps *PresetStore) FindByName(name string) *SettingsPreset {
	for i := range ps.Presets {
		if ps.Presets[i].Name == name {
			return &ps.Presets[i]
		}
	}
	return nil
}

// Names returns the preset names in store order.
func (ps *PresetStore) Names() []string {
	names := make([]string, len(ps.Presets))
	for i, p := range ps.Presets {
		names[i] = p.Name
	}
	return names
}
