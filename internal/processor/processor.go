package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"codeberg.org/snonux/ankiform/internal/anki"
	"codeberg.org/snonux/ankiform/internal/compose"
	"codeberg.org/snonux/ankiform/internal/media"
	"codeberg.org/snonux/ankiform/internal/settings"
	"codeberg.org/snonux/ankiform/internal/store"
	"codeberg.org/snonux/ankiform/internal/submit"
)

// Errors returned before anything is sent to AnkiConnect.
var (
	ErrInvalidSettings = errors.New("invalid settings")
	ErrEmptyWord       = errors.New("the word is empty")
)

// Remote is the AnkiConnect surface the processor uses.
type Remote interface {
	submit.Remote
	DeckNames(ctx context.Context) ([]string, error)
	ModelNames(ctx context.Context) ([]string, error)
	ModelFieldNames(ctx context.Context, model string) ([]string, error)
	CanAddNotes(ctx context.Context, notes ...anki.Note) ([]bool, error)
}

// History records submission attempts.
type History interface {
	Record(ctx context.Context, s store.Submission) (store.Submission, error)
	Recent(ctx context.Context, limit int) ([]store.Submission, error)
}

// Config wires a Processor. Remote and Settings are required.
type Config struct {
	Remote   Remote
	Settings *settings.Store
	History  History
	Composer *compose.Composer
	Encoder  *media.Encoder
	Logger   *slog.Logger
}

// Processor is the application service behind every front end: it loads
// settings, composes notes, submits them and keeps the history.
type Processor struct {
	remote       Remote
	settings     *settings.Store
	history      History
	composer     *compose.Composer
	orchestrator *submit.Orchestrator
	logger       *slog.Logger
}

// NewProcessor creates a processor from config.
func NewProcessor(config Config) *Processor {
	p := &Processor{
		remote:   config.Remote,
		settings: config.Settings,
		history:  config.History,
		composer: config.Composer,
		logger:   config.Logger,
	}
	if p.composer == nil {
		p.composer = compose.NewComposer()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.orchestrator = submit.New(config.Remote, config.Encoder, p.logger)
	return p
}

// Settings returns the current settings.
func (p *Processor) Settings(ctx context.Context) settings.Settings {
	return p.settings.Load(ctx)
}

// SaveSettings validates and saves s, returning the stored value.
func (p *Processor) SaveSettings(ctx context.Context, s settings.Settings) (settings.Settings, error) {
	s = s.Normalized()
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return p.settings.Save(ctx, s)
}

// ResetSettings restores the default settings.
func (p *Processor) ResetSettings(ctx context.Context) error {
	return p.settings.Reset(ctx)
}

// Preview composes form with the current settings without sending
// anything.
func (p *Processor) Preview(ctx context.Context, form compose.FormState) (compose.ComposedNote, error) {
	s := p.settings.Load(ctx)
	if err := s.Validate(); err != nil {
		return compose.ComposedNote{}, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return p.composer.Compose(form, s), nil
}

// CanAdd asks AnkiConnect whether note would be accepted. Duplicates
// report false.
func (p *Processor) CanAdd(ctx context.Context, note compose.ComposedNote) (bool, error) {
	ok, err := p.remote.CanAddNotes(ctx, note.Note())
	if err != nil {
		return false, err
	}
	return len(ok) == 1 && ok[0], nil
}

// Submit composes form with the current settings and sends it. Every
// attempt is recorded in the history.
func (p *Processor) Submit(ctx context.Context, form compose.FormState) (*submit.Result, error) {
	if p.orchestrator.InFlight() {
		return nil, submit.ErrInFlight
	}
	note, err := p.Preview(ctx, form)
	if err != nil {
		return nil, err
	}
	if note.Front == "" {
		return nil, ErrEmptyWord
	}

	res, err := p.orchestrator.Submit(ctx, note, submit.AttachmentsFrom(form))
	if errors.Is(err, submit.ErrInFlight) {
		return nil, err
	}
	p.record(ctx, note, res, err)
	return res, err
}

// InFlight reports whether a submission is running.
func (p *Processor) InFlight() bool {
	return p.orchestrator.InFlight()
}

func (p *Processor) record(ctx context.Context, note compose.ComposedNote, res *submit.Result, err error) {
	if p.history == nil {
		return
	}
	entry := store.Submission{
		CreatedAt: time.Now().UTC(),
		Deck:      note.Deck,
		Model:     note.Model,
		Front:     note.Front,
		Media:     res.MediaNames(),
	}
	var failure *submit.Failure
	switch {
	case errors.As(err, &failure):
		entry.Error = err.Error()
		entry.Media = failure.StoredNames()
	case err != nil:
		entry.Error = err.Error()
	default:
		entry.NoteID = res.NoteID
	}
	// The submission already finished; a cancelled caller must not lose
	// the record.
	if _, recErr := p.history.Record(context.WithoutCancel(ctx), entry); recErr != nil {
		p.logger.Warn("processor: failed to record submission", slog.String("error", recErr.Error()))
	}
}

// History returns up to limit recent submissions.
func (p *Processor) History(ctx context.Context, limit int) ([]store.Submission, error) {
	if p.history == nil {
		return nil, nil
	}
	return p.history.Recent(ctx, limit)
}

// Decks lists the deck names.
func (p *Processor) Decks(ctx context.Context) ([]string, error) {
	return p.remote.DeckNames(ctx)
}

// Models lists the note type names.
func (p *Processor) Models(ctx context.Context) ([]string, error) {
	return p.remote.ModelNames(ctx)
}

// ModelFields lists the fields of a note type.
func (p *Processor) ModelFields(ctx context.Context, model string) ([]string, error) {
	return p.remote.ModelFieldNames(ctx, model)
}

// MissingFields returns the field names s refers to that the configured
// model does not have.
func (p *Processor) MissingFields(ctx context.Context, s settings.Settings) ([]string, error) {
	fields, err := p.remote.ModelFieldNames(ctx, s.ModelName)
	if err != nil {
		return nil, err
	}
	var missing []string
	check := func(name string) {
		if name != "" && !slices.Contains(fields, name) && !slices.Contains(missing, name) {
			missing = append(missing, name)
		}
	}
	check(s.FrontFieldName)
	check(s.BackFieldName)
	for _, sec := range s.SectionOrder {
		check(s.SectionToField[sec])
	}
	for _, pl := range []settings.Placement{s.Audio1Target, s.Audio2Target, s.ImagesTarget} {
		check(s.Destination(pl))
	}
	return missing, nil
}
