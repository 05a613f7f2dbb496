package gui

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"

	"codeberg.org/snonux/ankiform/internal/media"
)

// AudioPicker holds one audio attachment of the form and can play it
// with the platform audio player.
type AudioPicker struct {
	widget.BaseWidget

	container   *fyne.Container
	pickButton  *ttwidget.Button
	createBtn   *ttwidget.Button
	playButton  *ttwidget.Button
	clearButton *ttwidget.Button
	statusLabel *widget.Label

	title      string
	attachment media.Attachment
	isPlaying  bool
	playCmd    *exec.Cmd
	tempFile   string
}

// NewAudioPicker creates a picker. onPick opens a file dialog and onCreate
// synthesizes the audio; either may be nil.
func NewAudioPicker(title string, onPick, onCreate func()) *AudioPicker {
	p := &AudioPicker{title: title}

	p.pickButton = ttwidget.NewButtonWithIcon("", theme.FolderOpenIcon(), onPick)
	p.createBtn = ttwidget.NewButtonWithIcon("", theme.MediaRecordIcon(), onCreate)
	p.playButton = ttwidget.NewButtonWithIcon("", theme.MediaPlayIcon(), p.onPlay)
	p.clearButton = ttwidget.NewButtonWithIcon("", theme.ContentClearIcon(), p.Clear)
	if onPick == nil {
		p.pickButton.Disable()
	}
	if onCreate == nil {
		p.createBtn.Disable()
	}

	p.statusLabel = widget.NewLabel(title + ": none")
	p.statusLabel.Truncation = fyne.TextTruncateEllipsis

	p.playButton.Disable()
	p.clearButton.Disable()

	p.container = container.NewBorder(nil, nil,
		container.NewHBox(p.pickButton, p.createBtn, p.playButton, p.clearButton),
		nil,
		p.statusLabel,
	)

	p.ExtendBaseWidget(p)
	return p
}

// CreateRenderer implements fyne.Widget
func (p *AudioPicker) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(p.container)
}

// SetToolTips labels the buttons.
func (p *AudioPicker) SetToolTips(pick, create string) {
	p.pickButton.SetToolTip(pick)
	p.createBtn.SetToolTip(create)
	p.playButton.SetToolTip("Play " + p.title)
	p.clearButton.SetToolTip("Remove " + p.title)
}

// Attachment returns the selected audio, nil when none is selected.
func (p *AudioPicker) Attachment() media.Attachment {
	return p.attachment
}

// SetAttachment selects a, replacing the previous selection.
func (p *AudioPicker) SetAttachment(a media.Attachment) {
	if a == nil {
		p.Clear()
		return
	}
	p.stop()
	p.removeTemp()
	p.attachment = a
	p.playButton.Enable()
	p.clearButton.Enable()
	p.statusLabel.SetText(fmt.Sprintf("%s: %s", p.title, a.Name()))
}

// SetWorking shows a progress text while the audio is being created.
func (p *AudioPicker) SetWorking(message string) {
	p.statusLabel.SetText(fmt.Sprintf("%s: %s", p.title, message))
}

// Clear drops the selection and stops playback.
func (p *AudioPicker) Clear() {
	p.stop()
	p.removeTemp()
	p.attachment = nil
	p.playButton.Disable()
	p.clearButton.Disable()
	p.statusLabel.SetText(p.title + ": none")
}

// Play triggers audio playback
func (p *AudioPicker) Play() {
	if !p.playButton.Disabled() {
		p.onPlay()
	}
}

func (p *AudioPicker) onPlay() {
	if p.attachment == nil {
		return
	}
	if p.isPlaying {
		p.stop()
		return
	}

	path, err := p.playablePath()
	if err != nil {
		p.statusLabel.SetText(fmt.Sprintf("Error: %v", err))
		return
	}
	if err := p.startPlayback(path); err != nil {
		p.statusLabel.SetText(fmt.Sprintf("Error: %v", err))
		return
	}

	p.isPlaying = true
	p.playButton.SetIcon(theme.MediaStopIcon())
	p.statusLabel.SetText(fmt.Sprintf("%s: playing %s", p.title, p.attachment.Name()))
}

func (p *AudioPicker) stop() {
	if p.playCmd != nil && p.playCmd.Process != nil {
		p.playCmd.Process.Kill()
		p.playCmd = nil
	}
	p.isPlaying = false
	p.playButton.SetIcon(theme.MediaPlayIcon())
	if p.attachment != nil {
		p.statusLabel.SetText(fmt.Sprintf("%s: %s", p.title, p.attachment.Name()))
	}
}

// playablePath returns a file the platform player can open. Audio that
// only exists in memory is written to a temporary file first.
func (p *AudioPicker) playablePath() (string, error) {
	if path, ok := media.Path(p.attachment); ok {
		return path, nil
	}
	if p.tempFile != "" {
		return p.tempFile, nil
	}

	rc, err := p.attachment.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	f, err := os.CreateTemp("", "ankiform-*"+filepath.Ext(p.attachment.Name()))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, rc); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	p.tempFile = f.Name()
	return p.tempFile, nil
}

func (p *AudioPicker) removeTemp() {
	if p.tempFile != "" {
		os.Remove(p.tempFile)
		p.tempFile = ""
	}
}

// startPlayback starts audio playback using platform-specific commands
func (p *AudioPicker) startPlayback(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin": // macOS
		cmd = exec.Command("afplay", path)
	case "linux":
		// mpg123 first since it handles MP3 files best
		if _, err := exec.LookPath("mpg123"); err == nil {
			cmd = exec.Command("mpg123", "-q", path)
		} else if _, err := exec.LookPath("ffplay"); err == nil {
			cmd = exec.Command("ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", path)
		} else if _, err := exec.LookPath("play"); err == nil {
			cmd = exec.Command("play", "-q", path)
		} else if _, err := exec.LookPath("paplay"); err == nil {
			cmd = exec.Command("paplay", path)
		} else {
			return fmt.Errorf("no audio player found. Install mpg123, ffplay, sox or paplay")
		}
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "/min", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	p.playCmd = cmd
	go func() {
		if err := cmd.Run(); err == nil {
			fyne.Do(func() {
				if p.playCmd == cmd {
					p.playCmd = nil
					p.stop()
				}
			})
		}
	}()
	return nil
}
