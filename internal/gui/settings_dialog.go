package gui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"codeberg.org/snonux/ankiform/internal/settings"
)

// remoteChoices are the names offered by the settings editor. Fetch errors
// leave a list empty; the editor then only offers the current values.
type remoteChoices struct {
	decks  []string
	models []string
	fields []string
	err    error
}

func (a *Application) fetchChoices(ctx context.Context, model string) remoteChoices {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var c remoteChoices
	if c.decks, c.err = a.svc.Processor.Decks(ctx); c.err != nil {
		return c
	}
	if c.models, c.err = a.svc.Processor.Models(ctx); c.err != nil {
		return c
	}
	c.fields, c.err = a.svc.Processor.ModelFields(ctx, model)
	return c
}

// onSettings loads the deck, model and field names and opens the editor.
func (a *Application) onSettings() {
	current := a.svc.Processor.Settings(a.ctx)
	a.updateStatus("Loading decks and models...")
	go func() {
		choices := a.fetchChoices(a.ctx, current.ModelName)
		fyne.Do(func() {
			if choices.err != nil {
				a.logViewer.Log("Settings: could not load names from Anki: %v", choices.err)
			}
			a.updateStatus("Ready")
			a.showSettingsDialog(current, choices)
		})
	}()
}

// settingsEditor holds the widgets of the settings dialog.
type settingsEditor struct {
	draft settings.Settings

	deck      *widget.SelectEntry
	model     *widget.SelectEntry
	front     *widget.SelectEntry
	back      *widget.SelectEntry
	audio1    *widget.SelectEntry
	audio2    *widget.SelectEntry
	images    *widget.SelectEntry
	mapping   *widget.SelectEntry
	allowDup  *widget.Check
	tags      *widget.Entry
	order     *widget.List
	selected  int
	fieldOpts []string
}

func (a *Application) showSettingsDialog(current settings.Settings, choices remoteChoices) {
	e := &settingsEditor{draft: current.Clone(), selected: -1}
	e.fieldOpts = withCurrent(choices.fields, current.FrontFieldName, current.BackFieldName)

	e.deck = widget.NewSelectEntry(withCurrent(choices.decks, current.DeckName))
	e.deck.SetText(current.DeckName)
	e.model = widget.NewSelectEntry(withCurrent(choices.models, current.ModelName))
	e.model.SetText(current.ModelName)
	e.front = widget.NewSelectEntry(e.fieldOpts)
	e.front.SetText(current.FrontFieldName)
	e.back = widget.NewSelectEntry(e.fieldOpts)
	e.back.SetText(current.BackFieldName)

	e.audio1 = widget.NewSelectEntry(placementChoices(e.fieldOpts))
	e.audio1.SetText(current.Audio1Target.String())
	e.audio2 = widget.NewSelectEntry(placementChoices(e.fieldOpts))
	e.audio2.SetText(current.Audio2Target.String())
	e.images = widget.NewSelectEntry(placementChoices(e.fieldOpts))
	e.images.SetText(current.ImagesTarget.String())

	e.allowDup = widget.NewCheck("Allow duplicates", nil)
	e.allowDup.SetChecked(current.AllowDuplicate)
	e.tags = widget.NewEntry()
	e.tags.SetText(strings.Join(current.Tags, ", "))

	// Switching the model offers that model's fields
	e.model.OnChanged = func(name string) {
		go func() {
			fields, err := a.svc.Processor.ModelFields(a.ctx, strings.TrimSpace(name))
			if err != nil {
				return
			}
			fyne.Do(func() { e.setFieldOptions(fields) })
		}()
	}

	e.mapping = widget.NewSelectEntry(e.fieldOpts)
	e.mapping.SetPlaceHolder("default placement")
	e.mapping.Disable()
	e.mapping.OnChanged = func(field string) {
		if e.selected < 0 {
			return
		}
		sec := e.draft.SectionOrder[e.selected]
		if s, err := e.draft.MapSection(sec, field); err == nil {
			e.draft = s
			e.order.RefreshItem(e.selected)
		}
	}

	e.order = widget.NewList(
		func() int { return len(e.draft.SectionOrder) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			obj.(*widget.Label).SetText(sectionRow(e.draft, e.draft.SectionOrder[id]))
		},
	)
	e.order.OnSelected = func(id widget.ListItemID) {
		e.selected = id
		sec := e.draft.SectionOrder[id]
		if sec.IsText() && sec != settings.TargetWord {
			e.mapping.Enable()
			e.mapping.SetText(e.draft.SectionToField[sec])
		} else {
			e.mapping.SetText("")
			e.mapping.Disable()
		}
	}
	move := func(delta int) {
		if e.selected < 0 {
			return
		}
		to := e.selected + delta
		s, err := e.draft.MoveSection(e.draft.SectionOrder[e.selected], to)
		if err != nil {
			return
		}
		e.draft = s
		e.order.Refresh()
		e.order.Select(max(0, min(to, len(s.SectionOrder)-1)))
	}
	up := widget.NewButtonWithIcon("", theme.MoveUpIcon(), func() { move(-1) })
	down := widget.NewButtonWithIcon("", theme.MoveDownIcon(), func() { move(1) })

	orderScroll := container.NewVScroll(e.order)
	orderScroll.SetMinSize(fyne.NewSize(0, 220))
	orderPane := container.NewBorder(
		widget.NewLabelWithStyle("Section order and field mapping", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewBorder(nil, nil, container.NewHBox(up, down), nil, e.mapping),
		nil, nil,
		orderScroll,
	)

	form := widget.NewForm(
		widget.NewFormItem("Deck", e.deck),
		widget.NewFormItem("Model", e.model),
		widget.NewFormItem("Front field", e.front),
		widget.NewFormItem("Back field", e.back),
		widget.NewFormItem("Sentence audio", e.audio1),
		widget.NewFormItem("Word audio", e.audio2),
		widget.NewFormItem("Images", e.images),
		widget.NewFormItem("Tags", e.tags),
		widget.NewFormItem("", e.allowDup),
	)

	var d dialog.Dialog
	reset := widget.NewButtonWithIcon("Reset to defaults", theme.HistoryIcon(), func() {
		if err := a.svc.Processor.ResetSettings(a.ctx); err != nil {
			a.showError(err)
			return
		}
		d.Hide()
		a.updateStatus("Settings reset to defaults")
	})

	content := container.NewVBox(form, widget.NewSeparator(), orderPane, reset)
	d = dialog.NewCustomConfirm("Note layout", "Save", "Cancel", container.NewVScroll(content), func(save bool) {
		if !save {
			return
		}
		a.saveSettings(e)
	}, a.window)
	d.Resize(fyne.NewSize(640, 720))
	d.Show()
}

func (e *settingsEditor) setFieldOptions(fields []string) {
	e.fieldOpts = fields
	e.front.SetOptions(fields)
	e.back.SetOptions(fields)
	e.mapping.SetOptions(fields)
	for _, sel := range []*widget.SelectEntry{e.audio1, e.audio2, e.images} {
		sel.SetOptions(placementChoices(fields))
	}
}

// build returns the edited settings.
func (e *settingsEditor) build() (settings.Settings, error) {
	s := e.draft.Clone()
	s.DeckName = strings.TrimSpace(e.deck.Text)
	s.ModelName = strings.TrimSpace(e.model.Text)
	s.FrontFieldName = strings.TrimSpace(e.front.Text)
	s.BackFieldName = strings.TrimSpace(e.back.Text)
	s.AllowDuplicate = e.allowDup.Checked
	s.Tags = splitTags(e.tags.Text)

	for _, p := range []struct {
		name string
		text string
		dst  *settings.Placement
	}{
		{"sentence audio", e.audio1.Text, &s.Audio1Target},
		{"word audio", e.audio2.Text, &s.Audio2Target},
		{"images", e.images.Text, &s.ImagesTarget},
	} {
		pl, err := settings.ParsePlacement(p.text)
		if err != nil {
			return s, fmt.Errorf("%s: %w", p.name, err)
		}
		*p.dst = pl
	}
	return s, s.Validate()
}

func (a *Application) saveSettings(e *settingsEditor) {
	s, err := e.build()
	if err != nil {
		a.showError(err)
		return
	}
	saved, err := a.svc.Processor.SaveSettings(a.ctx, s)
	if err != nil {
		a.showError(err)
		return
	}
	a.updateStatus(fmt.Sprintf("Settings saved: %s / %s", saved.DeckName, saved.ModelName))

	go func() {
		missing, err := a.svc.Processor.MissingFields(a.ctx, saved)
		if err != nil || len(missing) == 0 {
			return
		}
		fyne.Do(func() {
			a.logViewer.Log("Warning: settings refer to missing fields: %s", strings.Join(missing, ", "))
		})
	}()
}

// placementChoices lists the placement strings offered for fields.
func placementChoices(fields []string) []string {
	out := []string{"front", "back", "none"}
	for _, f := range fields {
		out = append(out, "field:"+f)
	}
	return out
}

// sectionRow renders one line of the section order list.
func sectionRow(s settings.Settings, sec settings.Section) string {
	if field := s.SectionToField[sec]; field != "" {
		return fmt.Sprintf("%s -> %s", sec.Label(), field)
	}
	return sec.Label()
}

// withCurrent returns names with the current values added when missing,
// so the editor still offers them while Anki is unreachable.
func withCurrent(names []string, current ...string) []string {
	out := slices.Clone(names)
	for _, c := range current {
		if c != "" && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

func splitTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
