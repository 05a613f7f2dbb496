package compose

import (
	"codeberg.org/snonux/ankiform/internal/media"
	"codeberg.org/snonux/ankiform/internal/settings"
)

// FormState is the transient content of the note form.
type FormState struct {
	TargetWord          string
	Definition          string
	Sentence            string
	SentenceTranslation string
	ExampleSentences    string
	Notes               string

	SentenceAudio media.Attachment
	WordAudio     media.Attachment
	Images        []media.Attachment

	MemeMode     bool
	ModifySyntax bool
}

// Text returns the raw value of a text section.
func (f *FormState) Text(s settings.Section) string {
	if p := f.textField(s); p != nil {
		return *p
	}
	return ""
}

// SetText sets the raw value of a text section. It reports false for
// sections that do not hold text.
func (f *FormState) SetText(s settings.Section, value string) bool {
	p := f.textField(s)
	if p == nil {
		return false
	}
	*p = value
	return true
}

func (f *FormState) textField(s settings.Section) *string {
	switch s {
	case settings.TargetWord:
		return &f.TargetWord
	case settings.Definition:
		return &f.Definition
	case settings.Sentence:
		return &f.Sentence
	case settings.SentenceTranslation:
		return &f.SentenceTranslation
	case settings.ExampleSentences:
		return &f.ExampleSentences
	case settings.Notes:
		return &f.Notes
	}
	return nil
}

// AddImages appends images to the selection. Earlier selections are kept.
func (f *FormState) AddImages(images ...media.Attachment) {
	for _, img := range images {
		if img != nil {
			f.Images = append(f.Images, img)
		}
	}
}

// Clear resets every section, attachment and flag.
func (f *FormState) Clear() {
	*f = FormState{}
}

// IsEmpty reports whether the form holds no text and no attachments.
func (f *FormState) IsEmpty() bool {
	for _, s := range settings.TextSections() {
		if f.Text(s) != "" {
			return false
		}
	}
	return f.SentenceAudio == nil && f.WordAudio == nil && len(f.Images) == 0
}
