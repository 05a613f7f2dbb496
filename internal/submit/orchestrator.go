package submit

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"codeberg.org/snonux/ankiform/internal/anki"
	"codeberg.org/snonux/ankiform/internal/compose"
	"codeberg.org/snonux/ankiform/internal/media"
)

// ErrInFlight is returned when a submission is started while another one
// is still running.
var ErrInFlight = errors.New("a submission is already in progress")

// Remote is the part of AnkiConnect a submission needs.
type Remote interface {
	StoreMediaFile(ctx context.Context, filename, data string) (string, error)
	AddNote(ctx context.Context, note anki.Note) (int64, error)
}

// Attachments are the files selected in the form.
type Attachments struct {
	Audio1 media.Attachment
	Audio2 media.Attachment
	Images []media.Attachment
}

// AttachmentsFrom takes the attachments out of a form.
func AttachmentsFrom(form compose.FormState) Attachments {
	return Attachments{
		Audio1: form.SentenceAudio,
		Audio2: form.WordAudio,
		Images: form.Images,
	}
}

// Step names a stage of a submission.
type Step string

const (
	StepEncodeAudio1 Step = "encode audio1"
	StepStoreAudio1  Step = "store audio1"
	StepEncodeAudio2 Step = "encode audio2"
	StepStoreAudio2  Step = "store audio2"
	StepEncodeImages Step = "encode images"
	StepStoreImages  Step = "store images"
	StepAddNote      Step = "add note"
)

// Failure is the terminal error of a submission. Its message is the
// reason reported by the failing step. Stored lists the files that were
// already stored in the collection when the step failed.
type Failure struct {
	Step   Step
	Err    error
	Stored []StoredMedia
}

func (f *Failure) Error() string { return f.Err.Error() }

func (f *Failure) Unwrap() error { return f.Err }

// StoredMedia is one file stored during a submission.
type StoredMedia struct {
	Filename string `json:"filename"`
	// Field is where the file's marker was appended, empty if nowhere.
	Field string `json:"field,omitempty"`
}

// Result describes a created note.
type Result struct {
	NoteID int64         `json:"noteId"`
	Fields *anki.Fields  `json:"fields"`
	Media  []StoredMedia `json:"media,omitempty"`
}

// Orchestrator stores attachments and creates the note, one submission at
// a time.
type Orchestrator struct {
	remote   Remote
	encoder  *media.Encoder
	logger   *slog.Logger
	inFlight atomic.Bool
}

// New creates an orchestrator. A nil encoder uses media defaults.
func New(remote Remote, encoder *media.Encoder, logger *slog.Logger) *Orchestrator {
	if encoder == nil {
		encoder = media.NewEncoder(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{remote: remote, encoder: encoder, logger: logger}
}

// InFlight reports whether a submission is running.
func (o *Orchestrator) InFlight() bool {
	return o.inFlight.Load()
}

// Submit stores audio1, audio2 and the images, in that order, appends their
// markers to the placed fields and then adds the note. Every step waits for
// the previous one. The first failing step aborts the submission with a
// *Failure; media stored before it is left in place.
func (o *Orchestrator) Submit(ctx context.Context, note compose.ComposedNote, att Attachments) (*Result, error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return nil, ErrInFlight
	}
	defer o.inFlight.Store(false)

	fields := note.Fields.Clone()
	res := &Result{Fields: fields}

	audio := []struct {
		file         media.Attachment
		field        string
		encode, keep Step
	}{
		{att.Audio1, note.Audio1.Field, StepEncodeAudio1, StepStoreAudio1},
		{att.Audio2, note.Audio2.Field, StepEncodeAudio2, StepStoreAudio2},
	}
	for _, a := range audio {
		enc, err := o.encoder.Encode(a.file)
		if err != nil {
			return nil, o.fail(a.encode, err, res.Media)
		}
		if enc == nil {
			continue
		}
		stored, err := o.remote.StoreMediaFile(ctx, enc.Filename, enc.Data)
		if err != nil {
			return nil, o.fail(a.keep, err, res.Media)
		}
		if a.field != "" {
			fields.AppendSound(a.field, stored)
		}
		res.Media = append(res.Media, StoredMedia{Filename: stored, Field: a.field})
	}

	if len(att.Images) > 0 {
		encoded, err := o.encoder.EncodeAll(att.Images)
		if err != nil {
			return nil, o.fail(StepEncodeImages, err, res.Media)
		}
		names := make([]string, 0, len(encoded))
		for _, enc := range encoded {
			stored, err := o.remote.StoreMediaFile(ctx, enc.Filename, enc.Data)
			if err != nil {
				return nil, o.fail(StepStoreImages, err, res.Media)
			}
			names = append(names, stored)
			res.Media = append(res.Media, StoredMedia{Filename: stored, Field: note.Images.Field})
		}
		if note.Images.Field != "" {
			fields.AppendImages(note.Images.Field, names)
		}
	}

	payload := note.Note()
	payload.Fields = fields
	id, err := o.remote.AddNote(ctx, payload)
	if err != nil {
		return nil, o.fail(StepAddNote, err, res.Media)
	}
	res.NoteID = id

	o.logger.Info("submit: note added",
		slog.Int64("note_id", id),
		slog.String("deck", note.Deck),
		slog.Int("media", len(res.Media)))
	return res, nil
}

func (o *Orchestrator) fail(step Step, err error, stored []StoredMedia) error {
	o.logger.Warn("submit: aborted",
		slog.String("step", string(step)),
		slog.String("error", err.Error()),
		slog.Int("stored", len(stored)))
	return &Failure{Step: step, Err: err, Stored: stored}
}

// MediaNames returns the stored filenames of r.
func (r *Result) MediaNames() []string {
	if r == nil {
		return nil
	}
	return mediaNames(r.Media)
}

// StoredNames returns the filenames stored before the failing step.
func (f *Failure) StoredNames() []string {
	return mediaNames(f.Stored)
}

func mediaNames(media []StoredMedia) []string {
	out := make([]string, 0, len(media))
	for _, m := range media {
		out = append(out, m.Filename)
	}
	return out
}

func (s Step) String() string { return string(s) }
