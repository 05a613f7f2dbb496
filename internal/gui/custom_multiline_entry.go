package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"
)

// SectionEntry is a form input that unfocuses on Escape. Multi-line
// entries wrap words and keep Enter for new lines.
type SectionEntry struct {
	widget.Entry
	onEscape func()
}

// NewSectionEntry creates a single-line entry.
func NewSectionEntry(placeholder string) *SectionEntry {
	entry := &SectionEntry{}
	entry.SetPlaceHolder(placeholder)
	entry.ExtendBaseWidget(entry)
	return entry
}

// NewSectionMultiLineEntry creates a wrapping multi-line entry.
func NewSectionMultiLineEntry(placeholder string) *SectionEntry {
	entry := &SectionEntry{}
	entry.MultiLine = true
	entry.Wrapping = fyne.TextWrapWord
	entry.SetPlaceHolder(placeholder)
	entry.SetMinRowsVisible(2)
	entry.ExtendBaseWidget(entry)
	return entry
}

// TypedKey handles key events
func (e *SectionEntry) TypedKey(key *fyne.KeyEvent) {
	if key.Name == fyne.KeyEscape && e.onEscape != nil {
		e.onEscape()
		return
	}
	e.Entry.TypedKey(key)
}

// SetOnEscape sets the callback for when Escape is pressed
func (e *SectionEntry) SetOnEscape(f func()) {
	e.onEscape = f
}
