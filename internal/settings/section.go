package settings

import "fmt"

// Section identifies one of the fixed content slots of the note form.
type Section string

const (
	TargetWord          Section = "targetWord"
	Definition          Section = "definition"
	Sentence            Section = "sentence"
	SentenceTranslation Section = "sentenceTranslation"
	ExampleSentences    Section = "exampleSentences"
	Notes               Section = "notes"
	SentenceAudio       Section = "sentenceAudio"
	WordAudio           Section = "wordAudio"
	Images              Section = "images"
)

// canonicalOrder is the default section order. Membership is fixed.
var canonicalOrder = [...]Section{
	TargetWord,
	Definition,
	Sentence,
	SentenceTranslation,
	ExampleSentences,
	Notes,
	SentenceAudio,
	WordAudio,
	Images,
}

var sectionLabels = map[Section]string{
	TargetWord:          "Word",
	Definition:          "Definition",
	Sentence:            "Sentence",
	SentenceTranslation: "Translation",
	ExampleSentences:    "Examples",
	Notes:               "Notes",
	SentenceAudio:       "Sentence audio",
	WordAudio:           "Word audio",
	Images:              "Images",
}

// AllSections returns every section in canonical order. The returned slice
// is a fresh copy.
func AllSections() []Section {
	out := make([]Section, len(canonicalOrder))
	copy(out, canonicalOrder[:])
	return out
}

// TextSections returns the sections that carry free text, in canonical order.
func TextSections() []Section {
	var out []Section
	for _, s := range canonicalOrder {
		if s.IsText() {
			out = append(out, s)
		}
	}
	return out
}

// Valid reports whether s is one of the canonical sections.
func (s Section) Valid() bool {
	_, ok := sectionLabels[s]
	return ok
}

// Label returns the fixed display name used in composed HTML.
func (s Section) Label() string {
	if l, ok := sectionLabels[s]; ok {
		return l
	}
	return string(s)
}

// IsAttachment reports whether s holds binary attachments rather than text.
func (s Section) IsAttachment() bool {
	return s == SentenceAudio || s == WordAudio || s == Images
}

// IsText reports whether s holds free text.
func (s Section) IsText() bool {
	return s.Valid() && !s.IsAttachment()
}

func (s Section) String() string {
	return string(s)
}

// ParseSection converts a section id into a Section.
func ParseSection(id string) (Section, error) {
	s := Section(id)
	if !s.Valid() {
		return "", fmt.Errorf("unknown section %q", id)
	}
	return s, nil
}
