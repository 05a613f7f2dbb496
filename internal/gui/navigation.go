package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"codeberg.org/snonux/ankiform/internal/settings"
)

// hotkey is a window shortcut and the action it triggers.
type hotkey struct {
	key   fyne.KeyName
	label string
	run   func(a *Application)
}

var hotkeys = []hotkey{
	{fyne.KeyReturn, "Add the note", (*Application).onSubmit},
	{fyne.KeyP, "Preview the note", (*Application).onPreview},
	{fyne.KeyL, "Clear the form", (*Application).onClear},
	{fyne.KeyComma, "Open the settings", (*Application).onSettings},
	{fyne.KeyW, "Focus the word", func(a *Application) { a.focusSection(settings.TargetWord) }},
	{fyne.KeyD, "Focus the definition", func(a *Application) { a.focusSection(settings.Definition) }},
	{fyne.KeyS, "Focus the sentence", func(a *Application) { a.focusSection(settings.Sentence) }},
	{fyne.KeyI, "Add image files", (*Application).pickImage},
	{fyne.KeyQ, "Quit", func(a *Application) { a.window.Close() }},
}

// setupKeyboardShortcuts registers the Ctrl (Cmd on macOS) shortcuts,
// F1 for help and Tab navigation between the text inputs.
func (a *Application) setupKeyboardShortcuts() {
	canvas := a.window.Canvas()
	for _, hk := range hotkeys {
		run := hk.run
		canvas.AddShortcut(&desktop.CustomShortcut{
			KeyName:  hk.key,
			Modifier: fyne.KeyModifierShortcutDefault,
		}, func(fyne.Shortcut) {
			if hk.key == fyne.KeyReturn && a.submitButton.Disabled() {
				return
			}
			run(a)
		})
	}

	canvas.SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyEscape:
			canvas.Unfocus()
		case fyne.KeyF1:
			a.onShowHotkeys()
		case fyne.KeyTab:
			a.handleTabNavigation()
		}
	})
}

func (a *Application) focusSection(sec settings.Section) {
	if entry, ok := a.inputs[sec]; ok {
		a.window.Canvas().Focus(entry)
	}
}

// handleTabNavigation focuses the first text input when nothing has focus.
// Entries handle Tab themselves once focused.
func (a *Application) handleTabNavigation() {
	if a.window.Canvas().Focused() == nil {
		a.focusSection(formSections[0].section)
	}
}

func (a *Application) onShowHotkeys() {
	text := "## Shortcuts\n\nCtrl is Cmd on macOS.\n\n"
	for _, hk := range hotkeys {
		text += "**Ctrl+" + keyLabel(hk.key) + "** " + hk.label + "  \n"
	}
	text += "**F1** Show this help  \n**Esc** Leave the current field  \n"
	text += "\n---\n*Results of actions started before Clear are discarded.*"

	content := widget.NewRichTextFromMarkdown(text)
	content.Wrapping = fyne.TextWrapWord

	scroll := container.NewScroll(container.NewPadded(content))
	scroll.SetMinSize(fyne.NewSize(480, 360))

	dialog.NewCustom("Keyboard Shortcuts", "Close", scroll, a.window).Show()
}

func keyLabel(k fyne.KeyName) string {
	switch k {
	case fyne.KeyReturn:
		return "Enter"
	case fyne.KeyComma:
		return ","
	}
	return string(k)
}
