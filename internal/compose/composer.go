package compose

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"golang.org/x/text/unicode/norm"

	"codeberg.org/snonux/ankiform/internal/anki"
	"codeberg.org/snonux/ankiform/internal/settings"
)

// Display-only annotations for the form toggles.
const (
	SyntaxAnnotation = "<em>syntax: modified</em>"
	MemeAnnotation   = "<em>meme mode: on</em>"
)

// AttachmentPlacement is the resolved destination of one attachment.
type AttachmentPlacement struct {
	// Policy is the effective policy after section mappings are applied.
	Policy settings.Placement
	// Field is the destination field name, empty when the attachment is
	// stored but not referenced.
	Field string
}

// ComposedNote is the text part of a note, ready for media merging.
type ComposedNote struct {
	Deck           string
	Model          string
	AllowDuplicate bool
	Tags           []string

	FrontField string
	BackField  string
	Front      string
	Fields     *anki.Fields

	Audio1 AttachmentPlacement
	Audio2 AttachmentPlacement
	Images AttachmentPlacement

	// Annotations are shown alongside a preview and never written to a field.
	Annotations []string
}

// Back returns the composed content of the back field.
func (n ComposedNote) Back() string {
	v, _ := n.Fields.Get(n.BackField)
	return v
}

// Note builds the addNote payload from the composed fields.
func (n ComposedNote) Note() anki.Note {
	return anki.Note{
		DeckName:  n.Deck,
		ModelName: n.Model,
		Fields:    n.Fields,
		Options:   anki.Options{AllowDuplicate: n.AllowDuplicate},
		Tags:      slices.Clone(n.Tags),
	}
}

// Preview renders the composed note as readable text, annotations included.
func (n ComposedNote) Preview() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Deck: %s\nModel: %s\n", n.Deck, n.Model)
	for _, a := range n.Annotations {
		fmt.Fprintf(&b, "Note: %s\n", a)
	}
	for _, name := range n.Fields.Names() {
		v, _ := n.Fields.Get(name)
		fmt.Fprintf(&b, "\n[%s]\n%s\n", name, v)
	}
	for _, p := range []struct {
		label string
		pl    AttachmentPlacement
	}{
		{settings.SentenceAudio.Label(), n.Audio1},
		{settings.WordAudio.Label(), n.Audio2},
		{settings.Images.Label(), n.Images},
	} {
		dest := p.pl.Field
		if dest == "" {
			dest = "(not referenced)"
		}
		fmt.Fprintf(&b, "\n%s -> %s", p.label, dest)
	}
	b.WriteString("\n")
	return b.String()
}

// Option configures a Composer.
type Option func(*Composer)

// WithSanitizer toggles HTML sanitizing of section text.
func WithSanitizer(enabled bool) Option {
	return func(c *Composer) { c.sanitize = enabled }
}

// WithMarkdown toggles Markdown rendering of section text.
func WithMarkdown(enabled bool) Option {
	return func(c *Composer) { c.markdown = enabled }
}

// Composer turns form state into note fields.
type Composer struct {
	sanitize bool
	markdown bool
	policy   *bluemonday.Policy
	md       goldmark.Markdown
}

// NewComposer creates a composer. Section text is only trimmed and
// normalized unless opts turn on sanitizing or Markdown.
func NewComposer(opts ...Option) *Composer {
	c := &Composer{}
	for _, opt := range opts {
		opt(c)
	}
	c.policy = bluemonday.UGCPolicy().
		AllowElements("img").
		AllowAttrs("src", "alt").OnElements("img")
	c.md = goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	return c
}

var defaultComposer = NewComposer()

// Compose composes form with the default composer.
func Compose(form FormState, s settings.Settings) ComposedNote {
	return defaultComposer.Compose(form, s)
}

// Compose maps the form sections onto note fields. The front field is
// written first, then sections with an explicit field mapping in section
// order, then the back field with every unmapped section. Writes to a field
// that already has content append to it. The result depends only on form
// and s.
func (c *Composer) Compose(form FormState, s settings.Settings) ComposedNote {
	s = s.Normalized()

	note := ComposedNote{
		Deck:           s.DeckName,
		Model:          s.ModelName,
		AllowDuplicate: s.AllowDuplicate,
		Tags:           slices.Clone(s.Tags),
		FrontField:     s.FrontFieldName,
		BackField:      s.BackFieldName,
		Front:          c.render(form.Text(settings.TargetWord)),
		Fields:         anki.NewFields(),
	}

	note.Fields.Append(s.FrontFieldName, note.Front, anki.SectionSeparator)

	var back []string
	for _, sec := range s.SectionOrder {
		if !sec.IsText() || sec == settings.TargetWord {
			continue
		}
		value := c.render(form.Text(sec))
		if value == "" {
			continue
		}
		frag := Fragment(sec, value)
		if field, ok := s.SectionToField[sec]; ok {
			note.Fields.Append(field, frag, anki.SectionSeparator)
			continue
		}
		back = append(back, frag)
	}
	note.Fields.Append(s.BackFieldName, strings.Join(back, anki.SectionSeparator), anki.SectionSeparator)

	note.Audio1 = resolvePlacement(s, settings.SentenceAudio, s.Audio1Target)
	note.Audio2 = resolvePlacement(s, settings.WordAudio, s.Audio2Target)
	note.Images = resolvePlacement(s, settings.Images, s.ImagesTarget)

	if form.ModifySyntax {
		note.Annotations = append(note.Annotations, SyntaxAnnotation)
	}
	if form.MemeMode {
		note.Annotations = append(note.Annotations, MemeAnnotation)
	}
	return note
}

// Fragment renders a labelled section fragment.
func Fragment(sec settings.Section, value string) string {
	return "<strong>" + sec.Label() + "</strong><br>" + value
}

// resolvePlacement applies a section mapping for an attachment section,
// which forces field mode, before falling back to the configured policy.
func resolvePlacement(s settings.Settings, sec settings.Section, policy settings.Placement) AttachmentPlacement {
	if field, ok := s.SectionToField[sec]; ok && field != "" {
		return AttachmentPlacement{
			Policy: settings.Placement{Mode: settings.PlaceField, FieldName: field},
			Field:  field,
		}
	}
	return AttachmentPlacement{Policy: policy, Field: s.Destination(policy)}
}

func (c *Composer) render(raw string) string {
	v := strings.TrimSpace(norm.NFC.String(raw))
	if v == "" {
		return ""
	}
	if c.markdown {
		var buf bytes.Buffer
		if err := c.md.Convert([]byte(v), &buf); err == nil {
			v = unwrapParagraph(strings.TrimSpace(buf.String()))
		}
	}
	if c.sanitize {
		v = strings.TrimSpace(c.policy.Sanitize(v))
	}
	return v
}

// unwrapParagraph strips the paragraph goldmark puts around a single line
// of text.
func unwrapParagraph(s string) string {
	inner, ok := strings.CutPrefix(s, "<p>")
	if !ok {
		return s
	}
	inner, ok = strings.CutSuffix(inner, "</p>")
	if !ok || strings.Contains(inner, "<p>") {
		return s
	}
	return inner
}
