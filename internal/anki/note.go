package anki

import (
	"fmt"
	"strings"
)

// Note is the payload of the addNote action.
type Note struct {
	DeckName  string   `json:"deckName"`
	ModelName string   `json:"modelName"`
	Fields    *Fields  `json:"fields"`
	Options   Options  `json:"options"`
	Tags      []string `json:"tags"`
}

// Options controls duplicate handling on the remote side.
type Options struct {
	AllowDuplicate bool `json:"allowDuplicate"`
}

// SoundMarker returns the field markup that plays a stored audio file.
func SoundMarker(filename string) string {
	return fmt.Sprintf("[sound:%s]", filename)
}

// ImageMarker returns the field markup that shows a stored image.
func ImageMarker(filename string) string {
	return fmt.Sprintf(`<img src="%s" />`, filename)
}

// ImageMarkers returns one image marker per file, one per line.
func ImageMarkers(filenames []string) string {
	markers := make([]string, 0, len(filenames))
	for _, f := range filenames {
		markers = append(markers, ImageMarker(f))
	}
	return strings.Join(markers, LineBreak)
}

// AppendSound appends a sound marker to field. Sound markers follow
// existing content directly.
func (f *Fields) AppendSound(field, filename string) {
	f.Append(field, SoundMarker(filename), "")
}

// AppendImages appends image markers to field, on a new line when the
// field already has content.
func (f *Fields) AppendImages(field string, filenames []string) {
	if len(filenames) == 0 {
		return
	}
	f.Append(field, ImageMarkers(filenames), LineBreak)
}
