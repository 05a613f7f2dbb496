package gui

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/ankiform/internal/cli"
	"codeberg.org/snonux/ankiform/internal/media"
	"codeberg.org/snonux/ankiform/internal/settings"
	"codeberg.org/snonux/ankiform/internal/submit"
	"codeberg.org/snonux/ankiform/internal/testutil"
)

func newTestApplication(t *testing.T) (*Application, *testutil.FakeAnki) {
	t.Helper()
	fake := testutil.NewFakeAnki(t)

	v := viper.New()
	v.Set("anki.endpoint", fake.URL())
	v.Set("store.path", filepath.Join(t.TempDir(), "ankiform.db"))
	v.Set("cache.directory", t.TempDir())
	v.Set("log.level", "error")
	cfg, err := cli.LoadConfig(v)
	require.NoError(t, err)

	svc, err := cli.NewApp(cfg, cli.Keys{})
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	fyneApp := test.NewApp()
	t.Cleanup(fyneApp.Quit)

	a := New(fyneApp, svc, nil)
	t.Cleanup(a.queue.Stop)
	return a, fake
}

func TestFormState(t *testing.T) {
	a, _ := newTestApplication(t)
	files := testutil.CreateMediaFiles(t, "s.mp3", "a.png", "b.png")

	a.inputs[settings.TargetWord].SetText("котка")
	a.inputs[settings.Definition].SetText("cat")
	a.inputs[settings.Notes].SetText("feminine")
	a.sentenceAud.SetAttachment(media.FromPath(files[0]))
	a.imageStrip.Add(media.FromPath(files[1]))
	a.imageStrip.Add(media.FromPath(files[2]))
	a.syntaxCheck.SetChecked(true)

	form := a.formState()
	require.Equal(t, "котка", form.TargetWord)
	require.Equal(t, "cat", form.Definition)
	require.Equal(t, "feminine", form.Notes)
	require.Empty(t, form.Sentence)
	require.Equal(t, "s.mp3", form.SentenceAudio.Name())
	require.Nil(t, form.WordAudio)
	require.Len(t, form.Images, 2)
	require.Equal(t, "b.png", form.Images[1].Name())
	require.True(t, form.ModifySyntax)
	require.False(t, form.MemeMode)
}

// submitForm runs one submission the way onSubmit does, without the
// goroutine hop.
func submitForm(a *Application) {
	tk := a.submissions.Next()
	res, err := a.svc.Processor.Submit(a.ctx, a.formState())
	a.finishSubmit(tk, res, submit.Outcome(res, err))
}

func fillForm(t *testing.T, a *Application, word string) {
	t.Helper()
	files := testutil.CreateMediaFiles(t, "s.mp3", "w.mp3", "a.png")
	a.inputs[settings.TargetWord].SetText(word)
	a.inputs[settings.Definition].SetText("cat")
	a.sentenceAud.SetAttachment(media.FromPath(files[0]))
	a.wordAud.SetAttachment(media.FromPath(files[1]))
	a.imageStrip.Add(media.FromPath(files[2]))
	a.memeCheck.SetChecked(true)
}

func TestSubmitResetsFormOnSuccess(t *testing.T) {
	a, fake := newTestApplication(t)
	fillForm(t, a, "котка")

	submitForm(a)

	require.Len(t, fake.Notes(), 1)
	for sec, entry := range a.inputs {
		require.Empty(t, entry.Text, "section %s", sec)
	}
	require.Nil(t, a.sentenceAud.Attachment())
	require.Nil(t, a.wordAud.Attachment())
	require.Empty(t, a.imageStrip.Images())
	require.False(t, a.memeCheck.Checked)
	require.Equal(t, submit.MsgAdded, a.statusLabel.Text)
	require.False(t, a.submitButton.Disabled())
}

func TestSubmitKeepsFormOnFailure(t *testing.T) {
	a, fake := newTestApplication(t)
	fillForm(t, a, "котка")
	submitForm(a)

	fillForm(t, a, "котка")
	submitForm(a)

	require.Len(t, fake.Notes(), 1)
	require.Equal(t, "котка", a.inputs[settings.TargetWord].Text)
	require.NotNil(t, a.sentenceAud.Attachment())
	require.Len(t, a.imageStrip.Images(), 1)
	require.Contains(t, a.statusLabel.Text, "duplicate")
}

func TestClearResetsForm(t *testing.T) {
	a, _ := newTestApplication(t)
	fillForm(t, a, "котка")

	a.onClear()

	require.Empty(t, a.inputs[settings.Definition].Text)
	require.Nil(t, a.wordAud.Attachment())
	require.Empty(t, a.imageStrip.Images())
	require.Equal(t, submit.MsgCleared, a.statusLabel.Text)
}

func TestProviderButtonsWithoutKeys(t *testing.T) {
	a, _ := newTestApplication(t)

	for _, btn := range a.generateBtns {
		require.True(t, btn.Disabled())
	}
	require.True(t, a.wordAud.createBtn.Disabled())
	require.True(t, a.createImageBtn.Disabled())
	require.True(t, a.searchImageBtn.Disabled())
	require.False(t, a.submitButton.Disabled())
	require.Equal(t, "Checking Anki connection...", a.banner.Text)
}

func TestSettingsEditorBuild(t *testing.T) {
	newTestApplication(t)
	current := settings.Default()

	e := &settingsEditor{draft: current.Clone(), selected: -1}
	e.fieldOpts = []string{"Front", "Back", "Audio"}
	e.deck = newSelectEntry("Bulgarian")
	e.model = newSelectEntry("Basic")
	e.front = newSelectEntry("Front")
	e.back = newSelectEntry("Back")
	e.audio1 = newSelectEntry("field:Audio")
	e.audio2 = newSelectEntry("none")
	e.images = newSelectEntry("back")
	e.allowDup = newCheck(true)
	e.tags = newEntry("vocab, bg")

	s, err := e.build()
	require.NoError(t, err)
	require.Equal(t, "Bulgarian", s.DeckName)
	require.Equal(t, settings.Placement{Mode: settings.PlaceField, FieldName: "Audio"}, s.Audio1Target)
	require.Equal(t, settings.PlaceNone, s.Audio2Target.Mode)
	require.True(t, s.AllowDuplicate)
	require.Equal(t, []string{"vocab", "bg"}, s.Tags)

	e.audio2.SetText("sideways")
	_, err = e.build()
	require.ErrorContains(t, err, "word audio")

	e.audio2.SetText("back")
	e.front.SetText(" ")
	_, err = e.build()
	require.Error(t, err)
}

func newSelectEntry(text string) *widget.SelectEntry {
	e := widget.NewSelectEntry(nil)
	e.SetText(text)
	return e
}

func newCheck(checked bool) *widget.Check {
	c := widget.NewCheck("", nil)
	c.SetChecked(checked)
	return c
}

func newEntry(text string) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(text)
	return e
}

func TestPlacementChoices(t *testing.T) {
	require.Equal(t, []string{"front", "back", "none", "field:Extra"}, placementChoices([]string{"Extra"}))
	require.Equal(t, []string{"front", "back", "none"}, placementChoices(nil))
}

func TestSectionRow(t *testing.T) {
	s := settings.Default()
	require.Equal(t, "Sentence", sectionRow(s, settings.Sentence))

	s, err := s.MapSection(settings.Sentence, "Example")
	require.NoError(t, err)
	require.Equal(t, "Sentence -> Example", sectionRow(s, settings.Sentence))
}

func TestWithCurrentAndSplitTags(t *testing.T) {
	require.Equal(t, []string{"A", "B"}, withCurrent([]string{"A"}, "B", "", "A"))
	require.Equal(t, []string{"Default"}, withCurrent(nil, "Default"))
	require.Equal(t, []string{"a", "b"}, splitTags(" a ,, b ,"))
	require.Equal(t, []string{}, splitTags(""))
}

func TestSummaries(t *testing.T) {
	require.Equal(t, "No images", imagesSummary(nil))
	one := []media.Attachment{media.FromBytes("a.png", nil)}
	require.Equal(t, "a.png", imagesSummary(one))
	two := append(one, media.FromBytes("b.png", nil))
	require.Equal(t, "2 images, last: b.png", imagesSummary(two))

	require.Equal(t, "Tasks: idle", queueSummary(0))
	require.Equal(t, "Tasks: 2 running", queueSummary(2))
	require.Equal(t, "Enter", keyLabel("Return"))
}

func TestLogViewerPush(t *testing.T) {
	v := &LogViewer{maxMessages: 2, now: func() time.Time {
		return time.Date(2024, 5, 1, 9, 30, 15, 0, time.UTC)
	}}

	v.push("first")
	v.push("second")
	text := v.push("third")

	require.Equal(t, "[09:30:15] third\n[09:30:15] second", text)
	require.Equal(t, []string{"[09:30:15] third", "[09:30:15] second"}, v.Messages())
}

func TestFormatRecord(t *testing.T) {
	r := slog.NewRecord(time.Now(), slog.LevelWarn, "store failed", 0)
	r.AddAttrs(slog.String("file", "_a.png"))

	got := formatRecord(r, []slog.Attr{slog.String("component", "gui")})
	require.Equal(t, "WARN store failed component=gui file=_a.png", got)
}

func TestTaskQueue(t *testing.T) {
	q := NewTaskQueue(context.Background(), 3)

	var mu sync.Mutex
	final := map[string]TaskStatus{}
	done := make(chan struct{}, 3)
	q.SetCallback(func(task *Task) {
		switch task.Status {
		case StatusCompleted, StatusFailed, StatusCancelled:
			mu.Lock()
			final[task.Name] = task.Status
			mu.Unlock()
			done <- struct{}{}
		}
	})

	block := make(chan struct{})
	q.Add("ok", func(ctx context.Context) error {
		<-block
		return nil
	})
	q.Add("fail", func(ctx context.Context) error {
		<-block
		return errors.New("boom")
	})
	q.Add("cancel", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.Equal(t, 3, q.Active())

	close(block)
	<-done
	<-done
	q.CancelAll()
	<-done
	q.Stop()

	require.Equal(t, 0, q.Active())
	require.Equal(t, StatusCompleted, final["ok"])
	require.Equal(t, StatusFailed, final["fail"])
	require.Equal(t, StatusCancelled, final["cancel"])

	late := q.Add("late", func(context.Context) error { return nil })
	require.Equal(t, StatusFailed, late.Status)
}
