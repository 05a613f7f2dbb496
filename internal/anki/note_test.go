package anki

import (
	"encoding/json"
	"testing"
)

func TestFieldsAppend(t *testing.T) {
	f := NewFields()
	f.Touch("Front")
	f.Append("Back", "<strong>Definition</strong><br>x", SectionSeparator)
	f.Append("Back", "<strong>Notes</strong><br>y", SectionSeparator)
	f.Append("Back", "", SectionSeparator)

	if got, _ := f.Get("Front"); got != "" {
		t.Errorf("Front = %q, want empty", got)
	}
	want := "<strong>Definition</strong><br>x<br><br><strong>Notes</strong><br>y"
	if got, _ := f.Get("Back"); got != want {
		t.Errorf("Back = %q, want %q", got, want)
	}
	if names := f.Names(); len(names) != 2 || names[0] != "Front" || names[1] != "Back" {
		t.Errorf("Names() = %v", names)
	}
}

func TestMarkers(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"sound", SoundMarker("_a.mp3"), "[sound:_a.mp3]"},
		{"image", ImageMarker("_a.png"), `<img src="_a.png" />`},
		{"images", ImageMarkers([]string{"_a.png", "_b.png"}), `<img src="_a.png" /><br><img src="_b.png" />`},
		{"no images", ImageMarkers(nil), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestAppendMedia(t *testing.T) {
	f := NewFields()
	f.Append("Front", "ubiquitous", SectionSeparator)
	f.AppendSound("Front", "_s.mp3")
	f.AppendSound("Front", "_w.mp3")
	f.AppendImages("Front", []string{"_1.png"})
	f.AppendImages("Back", []string{"_2.png", "_3.png"})
	f.AppendImages("Extra", nil)

	if got, _ := f.Get("Front"); got != `ubiquitous[sound:_s.mp3][sound:_w.mp3]<br><img src="_1.png" />` {
		t.Errorf("Front = %q", got)
	}
	if got, _ := f.Get("Back"); got != `<img src="_2.png" /><br><img src="_3.png" />` {
		t.Errorf("Back = %q", got)
	}
	if _, ok := f.Get("Extra"); ok {
		t.Error("empty image list must not create a field")
	}
}

func TestNoteJSON(t *testing.T) {
	f := NewFields()
	f.Append("Word", "ябълка", "")
	f.Append("Back", "apple", "")
	note := Note{
		DeckName:  "Default",
		ModelName: "Basic",
		Fields:    f,
		Options:   Options{AllowDuplicate: true},
		Tags:      []string{"web-creator"},
	}

	data, err := json.Marshal(note)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"deckName":"Default","modelName":"Basic","fields":{"Word":"ябълка","Back":"apple"},"options":{"allowDuplicate":true},"tags":["web-creator"]}`
	if string(data) != want {
		t.Errorf("json = %s\nwant %s", data, want)
	}
}
