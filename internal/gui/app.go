package gui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	fynetooltip "github.com/dweymouth/fyne-tooltip"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"

	"codeberg.org/snonux/ankiform/internal"
	"codeberg.org/snonux/ankiform/internal/cli"
	"codeberg.org/snonux/ankiform/internal/compose"
	"codeberg.org/snonux/ankiform/internal/media"
	"codeberg.org/snonux/ankiform/internal/probe"
	"codeberg.org/snonux/ankiform/internal/settings"
	"codeberg.org/snonux/ankiform/internal/submit"
)

// Options holds GUI options that are not part of the app configuration.
type Options struct {
	// Language is the language the assistant explains words in.
	Language string
}

// Application represents the main GUI application
type Application struct {
	// Fyne components
	app    fyne.App
	window fyne.Window

	svc     *cli.App
	options Options
	logger  *slog.Logger

	// Form inputs, one per text section
	inputs       map[settings.Section]*SectionEntry
	generateBtns map[settings.Section]*ttwidget.Button
	sentenceAud  *AudioPicker
	wordAud      *AudioPicker
	imageStrip   *ImageStrip
	memeCheck    *widget.Check
	syntaxCheck  *widget.Check

	// Image buttons
	pickImageBtn   *ttwidget.Button
	createImageBtn *ttwidget.Button
	searchImageBtn *ttwidget.Button
	clearImagesBtn *ttwidget.Button

	// Toolbar
	submitButton   *ttwidget.Button
	clearButton    *ttwidget.Button
	previewButton  *ttwidget.Button
	settingsButton *ttwidget.Button
	helpButton     *ttwidget.Button

	// Status
	banner           *widget.Label
	statusLabel      *widget.Label
	queueStatusLabel *widget.Label
	logViewer        *LogViewer

	// submissions guards against stale submit results. clears counts
	// form resets so CREATE/SEARCH results for a cleared form are dropped.
	submissions submit.Tickets
	clears      uint64
	submitting  bool

	queue *TaskQueue
	probe *probe.Handle

	ctx    context.Context
	cancel context.CancelFunc
}

// formSections lists the text inputs in display order.
var formSections = []struct {
	section     settings.Section
	placeholder string
	multiLine   bool
}{
	{settings.TargetWord, "Word...", false},
	{settings.Definition, "Definition...", true},
	{settings.Sentence, "Sentence...", true},
	{settings.SentenceTranslation, "Sentence translation...", true},
	{settings.ExampleSentences, "Example sentences...", true},
	{settings.Notes, "Notes...", true},
}

// New creates the form window on fyneApp backed by the wired services.
func New(fyneApp fyne.App, svc *cli.App, options *Options) *Application {
	if options == nil {
		options = &Options{}
	}
	if options.Language == "" {
		options.Language = "English"
	}

	ctx, cancel := context.WithCancel(context.Background())
	fyneApp.SetIcon(GetAppIcon())

	a := &Application{
		app:          fyneApp,
		svc:          svc,
		options:      *options,
		inputs:       make(map[settings.Section]*SectionEntry),
		generateBtns: make(map[settings.Section]*ttwidget.Button),
		ctx:          ctx,
		cancel:       cancel,
	}

	a.queue = NewTaskQueue(ctx, 3)
	a.queue.SetCallback(a.onTaskUpdate)

	a.setupUI()
	a.logger = slog.New(a.logViewer.Handler(svc.Logger.Handler()))
	return a
}

// setupUI creates the main user interface
func (a *Application) setupUI() {
	a.window = a.app.NewWindow(fmt.Sprintf("ankiform v%s - Anki note form", internal.Version))
	a.window.SetIcon(GetAppIcon())
	a.window.Resize(fyne.NewSize(900, 780))

	inputRows := container.New(layout.NewFormLayout())
	for _, fs := range formSections {
		var entry *SectionEntry
		if fs.multiLine {
			entry = NewSectionMultiLineEntry(fs.placeholder)
		} else {
			entry = NewSectionEntry(fs.placeholder)
			entry.OnSubmitted = func(string) {
				a.onSubmit()
				a.window.Canvas().Unfocus()
			}
		}
		entry.SetOnEscape(func() { a.window.Canvas().Unfocus() })
		a.inputs[fs.section] = entry

		field := fyne.CanvasObject(entry)
		if fs.section != settings.TargetWord {
			sec := fs.section
			btn := ttwidget.NewButtonWithIcon("", theme.ComputerIcon(), func() { a.onGenerate(sec) })
			a.generateBtns[sec] = btn
			field = container.NewBorder(nil, nil, nil, btn, entry)
		}
		inputRows.Add(widget.NewLabelWithStyle(fs.section.Label(), fyne.TextAlignTrailing, fyne.TextStyle{Bold: true}))
		inputRows.Add(field)
	}

	a.sentenceAud = NewAudioPicker(settings.SentenceAudio.Label(),
		func() { a.pickAudio(settings.SentenceAudio) },
		func() { a.onCreateAudio(settings.SentenceAudio) })
	a.wordAud = NewAudioPicker(settings.WordAudio.Label(),
		func() { a.pickAudio(settings.WordAudio) },
		func() { a.onCreateAudio(settings.WordAudio) })

	a.imageStrip = NewImageStrip()
	a.pickImageBtn = ttwidget.NewButtonWithIcon("", theme.FolderOpenIcon(), a.pickImage)
	a.createImageBtn = ttwidget.NewButtonWithIcon("", theme.ColorPaletteIcon(), a.onCreateImage)
	a.searchImageBtn = ttwidget.NewButtonWithIcon("", theme.SearchIcon(), a.onSearchImage)
	a.clearImagesBtn = ttwidget.NewButtonWithIcon("", theme.ContentClearIcon(), a.imageStrip.Clear)

	imageSection := container.NewBorder(
		nil, nil,
		container.NewVBox(a.pickImageBtn, a.createImageBtn, a.searchImageBtn, a.clearImagesBtn),
		nil,
		a.imageStrip,
	)

	a.memeCheck = widget.NewCheck("Meme mode", nil)
	a.syntaxCheck = widget.NewCheck("Modified syntax", nil)

	mediaSection := container.NewVBox(
		a.sentenceAud,
		a.wordAud,
		container.NewHBox(a.memeCheck, a.syntaxCheck),
	)

	a.submitButton = ttwidget.NewButtonWithIcon("Add note", theme.ConfirmIcon(), a.onSubmit)
	a.submitButton.Importance = widget.HighImportance
	a.clearButton = ttwidget.NewButtonWithIcon("", theme.ContentClearIcon(), a.onClear)
	a.previewButton = ttwidget.NewButtonWithIcon("", theme.VisibilityIcon(), a.onPreview)
	a.settingsButton = ttwidget.NewButtonWithIcon("", theme.SettingsIcon(), a.onSettings)
	a.helpButton = ttwidget.NewButtonWithIcon("", theme.HelpIcon(), a.onShowHotkeys)

	a.banner = widget.NewLabel(probe.Unknown.Banner())
	a.banner.TextStyle = fyne.TextStyle{Bold: true}

	toolbar := container.NewHBox(
		a.submitButton,
		a.previewButton,
		a.clearButton,
		widget.NewSeparator(),
		a.settingsButton,
		a.helpButton,
		layout.NewSpacer(),
		a.banner,
	)

	a.statusLabel = widget.NewLabel("Ready")
	a.statusLabel.Wrapping = fyne.TextWrapWord
	a.queueStatusLabel = widget.NewLabel(queueSummary(0))
	a.queueStatusLabel.TextStyle = fyne.TextStyle{Italic: true}
	a.logViewer = NewLogViewer()

	statusSection := container.NewVBox(
		widget.NewSeparator(),
		container.NewBorder(nil, nil, nil, a.queueStatusLabel, a.statusLabel),
		a.logViewer,
	)

	formSplit := container.NewHSplit(
		container.NewVScroll(inputRows),
		container.NewBorder(nil, mediaSection, nil, nil, imageSection),
	)
	formSplit.SetOffset(0.6)

	content := container.NewBorder(
		container.NewVBox(toolbar, widget.NewSeparator()),
		statusSection,
		nil, nil,
		formSplit,
	)

	// Tooltips need the tooltip layer
	a.window.SetContent(fynetooltip.AddWindowToolTipLayer(content, a.window.Canvas()))
	a.setupTooltips()
	a.refreshProviderButtons()

	a.window.SetOnClosed(a.shutdown)
	a.setupKeyboardShortcuts()
}

// setupTooltips sets up all tooltips after the tooltip layer has been created
func (a *Application) setupTooltips() {
	a.submitButton.SetToolTip("Add the note to Anki (Ctrl+Enter)")
	a.previewButton.SetToolTip("Preview the note fields (Ctrl+P)")
	a.clearButton.SetToolTip("Clear the form (Ctrl+L)")
	a.settingsButton.SetToolTip("Note layout settings (Ctrl+,)")
	a.helpButton.SetToolTip("Show hotkeys (F1)")

	for sec, btn := range a.generateBtns {
		btn.SetToolTip("Generate " + strings.ToLower(sec.Label()))
	}
	a.sentenceAud.SetToolTips("Choose sentence audio", "Speak the sentence")
	a.wordAud.SetToolTips("Choose word audio", "Speak the word")
	a.pickImageBtn.SetToolTip("Add image files")
	a.createImageBtn.SetToolTip("Create an illustration")
	a.searchImageBtn.SetToolTip("Search a photo")
	a.clearImagesBtn.SetToolTip("Remove all images")
}

// Run starts the connectivity probe and shows the window until it is
// closed.
func (a *Application) Run() {
	a.startProbe()
	a.window.ShowAndRun()
}

func (a *Application) startProbe() {
	prober := a.svc.Prober(func(s probe.State) {
		fyne.Do(func() { a.setConnection(s) })
	})
	a.probe = prober.Start(a.ctx)
}

func (a *Application) setConnection(s probe.State) {
	a.banner.SetText(s.Banner())
	if s == probe.Connected {
		a.banner.Importance = widget.SuccessImportance
	} else if s == probe.Disconnected {
		a.banner.Importance = widget.DangerImportance
	} else {
		a.banner.Importance = widget.MediumImportance
	}
	a.banner.Refresh()
}

// shutdown stops the probe and background tasks when the window closes.
func (a *Application) shutdown() {
	if a.probe != nil {
		a.probe.Stop()
	}
	a.cancel()
	a.queue.Stop()
	a.sentenceAud.Clear()
	a.wordAud.Clear()
}

// formState collects the current inputs.
func (a *Application) formState() compose.FormState {
	var form compose.FormState
	for sec, entry := range a.inputs {
		form.SetText(sec, entry.Text)
	}
	form.SentenceAudio = a.sentenceAud.Attachment()
	form.WordAudio = a.wordAud.Attachment()
	form.AddImages(a.imageStrip.Images()...)
	form.MemeMode = a.memeCheck.Checked
	form.ModifySyntax = a.syntaxCheck.Checked
	return form
}

// onSubmit sends the form to Anki in the background. The submit button
// stays disabled until the result arrives.
func (a *Application) onSubmit() {
	if a.submitting || a.svc.Processor.InFlight() {
		return
	}
	form := a.formState()
	tk := a.submissions.Next()
	a.setSubmitting(true)
	a.updateStatus("Adding note...")

	go func() {
		res, err := a.svc.Processor.Submit(a.ctx, form)
		status := submit.Outcome(res, err)
		if err != nil {
			a.logger.Warn("gui: submission failed", slog.String("error", err.Error()))
		}
		fyne.Do(func() { a.finishSubmit(tk, res, status) })
	}()
}

// finishSubmit shows the result of submission tk unless the form moved on.
// A successful submission empties the form for the next note.
func (a *Application) finishSubmit(tk submit.Ticket, res *submit.Result, status submit.Status) {
	a.setSubmitting(false)
	if !a.submissions.Current(tk) {
		return
	}
	if res != nil {
		a.resetForm()
		a.logViewer.Log("Note %d added (%s)", res.NoteID, strings.Join(res.MediaNames(), ", "))
	}
	a.showStatus(status)
}

func (a *Application) setSubmitting(on bool) {
	a.submitting = on
	if on {
		a.submitButton.Disable()
	} else {
		a.submitButton.Enable()
	}
}

// onClear resets every input. Results of earlier submissions and
// CREATE/SEARCH tasks are ignored from here on.
func (a *Application) onClear() {
	a.submissions.Invalidate()
	a.resetForm()
	a.showStatus(submit.Cleared())
}

// resetForm empties every input and drops pending CREATE/SEARCH results.
func (a *Application) resetForm() {
	a.clears++
	a.queue.CancelAll()

	for _, entry := range a.inputs {
		entry.SetText("")
	}
	a.sentenceAud.Clear()
	a.wordAud.Clear()
	a.imageStrip.Clear()
	a.memeCheck.SetChecked(false)
	a.syntaxCheck.SetChecked(false)
	a.window.Canvas().Focus(a.inputs[settings.TargetWord])
}

func (a *Application) onPreview() {
	form := a.formState()
	note, err := a.svc.Processor.Preview(a.ctx, form)
	if err != nil {
		a.showError(err)
		return
	}

	text := note.Preview()
	content := widget.NewLabel(text)
	content.Wrapping = fyne.TextWrapWord
	scroll := container.NewScroll(content)
	scroll.SetMinSize(fyne.NewSize(600, 400))

	d := dialog.NewCustomConfirm("Preview", "Copy", "Close", scroll, func(copyText bool) {
		if copyText {
			a.window.Clipboard().SetContent(text)
			a.updateStatus("Preview copied to the clipboard")
		}
	}, a.window)
	d.Show()
}

func (a *Application) pickAudio(sec settings.Section) {
	picker := a.audioPicker(sec)
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			a.showError(err)
			return
		}
		if rc == nil {
			return
		}
		defer rc.Close()
		picker.SetAttachment(media.FromPath(rc.URI().Path()))
	}, a.window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".mp3", ".wav", ".ogg", ".m4a", ".opus", ".flac", ".aac"}))
	fd.Show()
}

func (a *Application) pickImage() {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			a.showError(err)
			return
		}
		if rc == nil {
			return
		}
		defer rc.Close()
		a.imageStrip.Add(media.FromPath(rc.URI().Path()))
	}, a.window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif", ".webp"}))
	fd.Show()
}

func (a *Application) audioPicker(sec settings.Section) *AudioPicker {
	if sec == settings.SentenceAudio {
		return a.sentenceAud
	}
	return a.wordAud
}

func (a *Application) showStatus(status submit.Status) {
	a.statusLabel.SetText(status.Message)
	switch status.Kind {
	case submit.KindSuccess:
		a.statusLabel.Importance = widget.SuccessImportance
	case submit.KindError:
		a.statusLabel.Importance = widget.DangerImportance
	default:
		a.statusLabel.Importance = widget.MediumImportance
	}
	a.statusLabel.Refresh()
	a.logViewer.AddMessage(status.Message)
}

func (a *Application) updateStatus(message string) {
	a.statusLabel.Importance = widget.MediumImportance
	a.statusLabel.SetText(message)
}

func (a *Application) showError(err error) {
	dialog.ShowError(err, a.window)
	a.showStatus(submit.Status{Kind: submit.KindError, Message: "Error: " + err.Error()})
}

func (a *Application) onTaskUpdate(task *Task) {
	active := a.queue.Active()
	failed := task.Status == StatusFailed
	name, taskErr := task.Name, task.Error
	fyne.Do(func() {
		a.queueStatusLabel.SetText(queueSummary(active))
		if failed {
			a.logViewer.Log("%s failed: %v", name, taskErr)
		}
	})
}

// queueSummary describes the number of running CREATE/SEARCH tasks.
func queueSummary(active int) string {
	if active == 0 {
		return "Tasks: idle"
	}
	return fmt.Sprintf("Tasks: %d running", active)
}
