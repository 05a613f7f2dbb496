package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ConfigLoadError reports a persisted settings blob that could not be read.
// Callers log it and carry on with the returned defaults.
type ConfigLoadError struct {
	Reason string
	Err    error
}

func (e *ConfigLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load settings: %s: %v", e.Reason, e.Err)
	}
	return "load settings: " + e.Reason
}

func (e *ConfigLoadError) Unwrap() error {
	return e.Err
}

// Partial is a possibly incomplete Settings value as read from storage.
// Nil pointers and nil collections mean "absent".
type Partial struct {
	DeckName       *string           `json:"deckName" yaml:"deckName"`
	ModelName      *string           `json:"modelName" yaml:"modelName"`
	FrontFieldName *string           `json:"frontFieldName" yaml:"frontFieldName"`
	BackFieldName  *string           `json:"backFieldName" yaml:"backFieldName"`
	SectionOrder   []string          `json:"sectionOrder" yaml:"sectionOrder"`
	SectionToField map[string]string `json:"sectionToField" yaml:"sectionToField"`
	Audio1Target   *Placement        `json:"audio1Target" yaml:"audio1Target"`
	Audio2Target   *Placement        `json:"audio2Target" yaml:"audio2Target"`
	ImagesTarget   *Placement        `json:"imagesTarget" yaml:"imagesTarget"`
	AllowDuplicate *bool             `json:"allowDuplicate" yaml:"allowDuplicate"`
	Tags           []string          `json:"tags" yaml:"tags"`
}

// Partial converts s into a fully populated Partial.
func (s Settings) Partial() Partial {
	p := Partial{
		DeckName:       &s.DeckName,
		ModelName:      &s.ModelName,
		FrontFieldName: &s.FrontFieldName,
		BackFieldName:  &s.BackFieldName,
		SectionToField: make(map[string]string, len(s.SectionToField)),
		Audio1Target:   &s.Audio1Target,
		Audio2Target:   &s.Audio2Target,
		ImagesTarget:   &s.ImagesTarget,
		AllowDuplicate: &s.AllowDuplicate,
		Tags:           s.Tags,
	}
	p.SectionOrder = make([]string, 0, len(s.SectionOrder))
	for _, sec := range s.SectionOrder {
		p.SectionOrder = append(p.SectionOrder, string(sec))
	}
	for k, v := range s.SectionToField {
		p.SectionToField[string(k)] = v
	}
	return p
}

// Normalized returns s repaired against the canonical schema.
func (s Settings) Normalized() Settings {
	return Normalize(s.Partial())
}

// Normalize merges raw over the defaults and repairs the section order so
// that it is a permutation of every canonical section. It never fails.
func Normalize(raw Partial) Settings {
	def := Default()
	out := def

	if raw.DeckName != nil {
		out.DeckName = *raw.DeckName
	}
	if raw.ModelName != nil {
		out.ModelName = *raw.ModelName
	}
	if raw.FrontFieldName != nil {
		out.FrontFieldName = *raw.FrontFieldName
	}
	if raw.BackFieldName != nil {
		out.BackFieldName = *raw.BackFieldName
	}
	if raw.AllowDuplicate != nil {
		out.AllowDuplicate = *raw.AllowDuplicate
	}
	if raw.Tags != nil {
		out.Tags = append([]string{}, raw.Tags...)
	}

	out.SectionOrder = normalizeOrder(raw.SectionOrder)
	out.SectionToField = normalizeMapping(raw.SectionToField)
	out.Audio1Target = normalizePlacement(raw.Audio1Target, def.Audio1Target)
	out.Audio2Target = normalizePlacement(raw.Audio2Target, def.Audio2Target)
	out.ImagesTarget = normalizePlacement(raw.ImagesTarget, def.ImagesTarget)
	return out
}

// normalizeOrder keeps recognised ids in their given order, drops unknown
// and repeated ids, then appends missing sections in canonical order.
func normalizeOrder(order []string) []Section {
	seen := make(map[Section]bool, len(canonicalOrder))
	out := make([]Section, 0, len(canonicalOrder))
	for _, id := range order {
		s := Section(id)
		if !s.Valid() || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, s := range canonicalOrder {
		if !seen[s] {
			out = append(out, s)
		}
	}
	return out
}

func normalizeMapping(m map[string]string) map[Section]string {
	out := make(map[Section]string, len(m))
	for k, v := range m {
		s := Section(k)
		v = strings.TrimSpace(v)
		// targetWord is pinned to the front field.
		if !s.Valid() || s == TargetWord || v == "" {
			continue
		}
		out[s] = v
	}
	return out
}

func normalizePlacement(p *Placement, def Placement) Placement {
	if p == nil || !p.Mode.Valid() {
		return def
	}
	if p.Mode != PlaceField {
		return Placement{Mode: p.Mode}
	}
	name := strings.TrimSpace(p.FieldName)
	if name == "" {
		return def
	}
	return Placement{Mode: PlaceField, FieldName: name}
}

// Decode reads a persisted settings blob. Keys are decoded one at a time so
// a single malformed value only loses that value. A blob that is not a JSON
// object yields the defaults together with a *ConfigLoadError.
func Decode(data []byte) (Settings, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Default(), &ConfigLoadError{Reason: "empty blob"}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Default(), &ConfigLoadError{Reason: "corrupt blob", Err: err}
	}

	var p Partial
	p.DeckName = decodeKey[string](raw, "deckName")
	p.ModelName = decodeKey[string](raw, "modelName")
	p.FrontFieldName = decodeKey[string](raw, "frontFieldName")
	p.BackFieldName = decodeKey[string](raw, "backFieldName")
	p.Audio1Target = decodeKey[Placement](raw, "audio1Target")
	p.Audio2Target = decodeKey[Placement](raw, "audio2Target")
	p.ImagesTarget = decodeKey[Placement](raw, "imagesTarget")
	p.AllowDuplicate = decodeKey[bool](raw, "allowDuplicate")
	p.SectionOrder = decodeStrings(raw["sectionOrder"])
	p.Tags = decodeStrings(raw["tags"])

	if m := decodeKey[map[string]json.RawMessage](raw, "sectionToField"); m != nil {
		p.SectionToField = make(map[string]string, len(*m))
		for k, v := range *m {
			var field string
			if json.Unmarshal(v, &field) == nil {
				p.SectionToField[k] = field
			}
		}
	}

	return Normalize(p), nil
}

// Encode serialises s in the persisted blob format.
func Encode(s Settings) ([]byte, error) {
	return json.Marshal(s)
}

func decodeKey[T any](raw map[string]json.RawMessage, key string) *T {
	msg, ok := raw[key]
	if !ok || string(msg) == "null" {
		return nil
	}
	var v T
	if err := json.Unmarshal(msg, &v); err != nil {
		return nil
	}
	return &v
}

// decodeStrings keeps the string elements of a JSON array, skipping any
// element of another type.
func decodeStrings(msg json.RawMessage) []string {
	if len(msg) == 0 || string(msg) == "null" {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(msg, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil {
			out = append(out, s)
		}
	}
	return out
}
