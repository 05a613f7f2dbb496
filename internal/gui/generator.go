package gui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fyne.io/fyne/v2"

	"codeberg.org/snonux/ankiform/internal/assist"
	"codeberg.org/snonux/ankiform/internal/settings"
	"codeberg.org/snonux/ankiform/internal/submit"
)

var (
	errNoAssistant   = errors.New("no assistant API key configured (set OPENAI_API_KEY or GEMINI_API_KEY)")
	errNoSpeaker     = errors.New("no OpenAI API key configured for audio")
	errNoIllustrator = errors.New("no OpenAI API key configured for images")
	errNoImageSearch = errors.New("no Pixabay API key configured (set PIXABAY_API_KEY)")
)

// refreshProviderButtons disables the CREATE/SEARCH buttons whose
// provider is not configured.
func (a *Application) refreshProviderButtons() {
	for _, btn := range a.generateBtns {
		if a.svc.Generator == nil {
			btn.Disable()
		}
	}
	if a.svc.Speaker == nil {
		a.sentenceAud.createBtn.Disable()
		a.wordAud.createBtn.Disable()
	}
	if a.svc.Illustrator == nil {
		a.createImageBtn.Disable()
	}
	if a.svc.Images == nil {
		a.searchImageBtn.Disable()
	}
}

// startFill runs fn as a background task. The returned apply func runs
// on the UI thread unless the form was cleared in the meantime.
func (a *Application) startFill(name string, fn func(ctx context.Context) (func(), error)) {
	epoch := a.clears
	a.updateStatus(name + "...")
	a.queue.Add(name, func(ctx context.Context) error {
		apply, err := fn(ctx)
		fyne.Do(func() {
			if epoch != a.clears {
				return
			}
			if err != nil {
				a.showStatus(submit.Status{Kind: submit.KindError, Message: fmt.Sprintf("Error: %s: %v", strings.ToLower(name), err)})
				return
			}
			apply()
			a.updateStatus(name + " done")
		})
		return err
	})
}

// onGenerate fills sec with assistant text for the current word.
func (a *Application) onGenerate(sec settings.Section) {
	gen := a.svc.Generator
	if gen == nil {
		a.showError(errNoAssistant)
		return
	}
	req := assist.Request{
		Word:     strings.TrimSpace(a.inputs[settings.TargetWord].Text),
		Sentence: strings.TrimSpace(a.inputs[settings.Sentence].Text),
		Language: a.options.Language,
	}
	if req.Word == "" {
		a.showError(errors.New("enter a word first"))
		return
	}

	a.startFill("Generating "+strings.ToLower(sec.Label()), func(ctx context.Context) (func(), error) {
		text, err := gen.Generate(ctx, sec, req)
		if err != nil {
			return nil, err
		}
		return func() { a.inputs[sec].SetText(text) }, nil
	})
}

// onCreateAudio speaks the word or the sentence into its audio picker.
func (a *Application) onCreateAudio(sec settings.Section) {
	speaker := a.svc.Speaker
	if speaker == nil {
		a.showError(errNoSpeaker)
		return
	}
	source := settings.TargetWord
	if sec == settings.SentenceAudio {
		source = settings.Sentence
	}
	text := strings.TrimSpace(a.inputs[source].Text)
	if text == "" {
		a.showError(fmt.Errorf("cannot create %s: the %s is empty", strings.ToLower(sec.Label()), strings.ToLower(source.Label())))
		return
	}

	picker := a.audioPicker(sec)
	picker.SetWorking("creating...")
	a.startFill("Creating "+strings.ToLower(sec.Label()), func(ctx context.Context) (func(), error) {
		att, err := speaker.Speak(ctx, text)
		if err != nil {
			fyne.Do(func() { picker.SetAttachment(picker.Attachment()) })
			return nil, err
		}
		return func() { picker.SetAttachment(att) }, nil
	})
}

// onCreateImage appends an illustration of the word.
func (a *Application) onCreateImage() {
	illustrator := a.svc.Illustrator
	if illustrator == nil {
		a.showError(errNoIllustrator)
		return
	}
	word := strings.TrimSpace(a.inputs[settings.TargetWord].Text)
	if word == "" {
		a.showError(errors.New("enter a word first"))
		return
	}
	hint := strings.TrimSpace(a.inputs[settings.Definition].Text)

	a.imageStrip.SetWorking("Creating image...")
	a.startFill("Creating image", func(ctx context.Context) (func(), error) {
		att, err := illustrator.Illustrate(ctx, word, hint)
		if err != nil {
			return nil, err
		}
		return func() { a.imageStrip.Add(att) }, nil
	})
}

// onSearchImage appends the best matching photo for the word.
func (a *Application) onSearchImage() {
	images := a.svc.Images
	if images == nil {
		a.showError(errNoImageSearch)
		return
	}
	word := strings.TrimSpace(a.inputs[settings.TargetWord].Text)
	if word == "" {
		a.showError(errors.New("enter a word first"))
		return
	}

	a.imageStrip.SetWorking("Searching image...")
	a.startFill("Searching image", func(ctx context.Context) (func(), error) {
		att, result, err := images.DownloadBestMatch(ctx, word)
		if err != nil {
			return nil, err
		}
		return func() {
			a.imageStrip.Add(att)
			if result != nil && result.Attribution != "" {
				a.logViewer.Log("%s: %s", att.Name(), result.Attribution)
			}
		}, nil
	})
}
