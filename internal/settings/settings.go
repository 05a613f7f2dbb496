package settings

import (
	"fmt"
	"slices"
	"strings"
)

// Key is the name of the persisted settings blob.
const Key = "anki_settings_v1"

// DefaultTag marks notes created by this client.
const DefaultTag = "web-creator"

// PlacementMode selects where an attachment marker is appended.
type PlacementMode string

const (
	PlaceFront PlacementMode = "front"
	PlaceBack  PlacementMode = "back"
	PlaceField PlacementMode = "field"
	PlaceNone  PlacementMode = "none"
)

// Valid reports whether m is a known placement mode.
func (m PlacementMode) Valid() bool {
	switch m {
	case PlaceFront, PlaceBack, PlaceField, PlaceNone:
		return true
	}
	return false
}

// Placement is a placement policy for an attachment. FieldName is only
// meaningful when Mode is PlaceField.
type Placement struct {
	Mode      PlacementMode `json:"mode" yaml:"mode"`
	FieldName string        `json:"fieldName,omitempty" yaml:"fieldName,omitempty"`
}

// ParsePlacement parses "front", "back", "none" or "field:<name>".
func ParsePlacement(s string) (Placement, error) {
	mode, name, _ := strings.Cut(strings.TrimSpace(s), ":")
	p := Placement{Mode: PlacementMode(mode)}
	if !p.Mode.Valid() {
		return Placement{}, fmt.Errorf("unknown placement %q (want front, back, none or field:<name>)", s)
	}
	if p.Mode == PlaceField {
		p.FieldName = strings.TrimSpace(name)
		if p.FieldName == "" {
			return Placement{}, fmt.Errorf("placement %q is missing a field name", s)
		}
	}
	return p, nil
}

func (p Placement) String() string {
	if p.Mode == PlaceField {
		return string(p.Mode) + ":" + p.FieldName
	}
	return string(p.Mode)
}

// Settings is the user-editable note layout configuration.
type Settings struct {
	DeckName       string             `json:"deckName" yaml:"deckName"`
	ModelName      string             `json:"modelName" yaml:"modelName"`
	FrontFieldName string             `json:"frontFieldName" yaml:"frontFieldName"`
	BackFieldName  string             `json:"backFieldName" yaml:"backFieldName"`
	SectionOrder   []Section          `json:"sectionOrder" yaml:"sectionOrder"`
	SectionToField map[Section]string `json:"sectionToField" yaml:"sectionToField"`
	Audio1Target   Placement          `json:"audio1Target" yaml:"audio1Target"`
	Audio2Target   Placement          `json:"audio2Target" yaml:"audio2Target"`
	ImagesTarget   Placement          `json:"imagesTarget" yaml:"imagesTarget"`
	AllowDuplicate bool               `json:"allowDuplicate" yaml:"allowDuplicate"`
	Tags           []string           `json:"tags" yaml:"tags"`
}

// Default returns the canonical default settings.
func Default() Settings {
	return Settings{
		DeckName:       "Default",
		ModelName:      "Basic",
		FrontFieldName: "Front",
		BackFieldName:  "Back",
		SectionOrder:   AllSections(),
		SectionToField: map[Section]string{},
		Audio1Target:   Placement{Mode: PlaceFront},
		Audio2Target:   Placement{Mode: PlaceBack},
		ImagesTarget:   Placement{Mode: PlaceBack},
		AllowDuplicate: false,
		Tags:           []string{DefaultTag},
	}
}

// Destination resolves a placement policy to a concrete field name. An
// empty result means the attachment is stored but not referenced.
func (s Settings) Destination(p Placement) string {
	switch p.Mode {
	case PlaceFront:
		return s.FrontFieldName
	case PlaceBack:
		return s.BackFieldName
	case PlaceField:
		return p.FieldName
	}
	return ""
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	out := s
	out.SectionOrder = slices.Clone(s.SectionOrder)
	out.Tags = slices.Clone(s.Tags)
	out.SectionToField = make(map[Section]string, len(s.SectionToField))
	for k, v := range s.SectionToField {
		out.SectionToField[k] = v
	}
	return out
}

// MoveSection returns a copy of s with section moved to index to. Indexes
// are clamped to the order bounds.
func (s Settings) MoveSection(section Section, to int) (Settings, error) {
	out := s.Clone()
	from := slices.Index(out.SectionOrder, section)
	if from < 0 {
		return s, fmt.Errorf("section %q is not in the order", section)
	}
	to = max(0, min(to, len(out.SectionOrder)-1))
	if from == to {
		return out, nil
	}
	moved := out.SectionOrder[from]
	out.SectionOrder = slices.Delete(out.SectionOrder, from, from+1)
	out.SectionOrder = slices.Insert(out.SectionOrder, to, moved)
	return out, nil
}

// MapSection returns a copy of s with section mapped to field. An empty
// field name removes the mapping, sending the section back to the default
// placement.
func (s Settings) MapSection(section Section, field string) (Settings, error) {
	if !section.Valid() {
		return s, fmt.Errorf("unknown section %q", section)
	}
	out := s.Clone()
	field = strings.TrimSpace(field)
	if field == "" {
		delete(out.SectionToField, section)
	} else {
		out.SectionToField[section] = field
	}
	return out, nil
}
