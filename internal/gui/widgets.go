package gui

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"codeberg.org/snonux/ankiform/internal/media"
)

// ImageStrip shows the most recently selected image and how many images
// the form holds.
type ImageStrip struct {
	widget.BaseWidget

	container   *fyne.Container
	imageCanvas *canvas.Image
	imageLabel  *widget.Label

	images []media.Attachment
}

// NewImageStrip creates an empty image strip.
func NewImageStrip() *ImageStrip {
	d := &ImageStrip{}

	d.imageCanvas = canvas.NewImageFromResource(nil)
	d.imageCanvas.FillMode = canvas.ImageFillContain
	d.imageCanvas.SetMinSize(fyne.NewSize(200, 150))

	d.imageLabel = widget.NewLabel(imagesSummary(nil))
	d.imageLabel.Alignment = fyne.TextAlignCenter
	d.imageLabel.Truncation = fyne.TextTruncateEllipsis

	d.container = container.NewBorder(
		nil,
		d.imageLabel,
		nil, nil,
		d.imageCanvas,
	)

	d.ExtendBaseWidget(d)
	return d
}

// CreateRenderer implements fyne.Widget
func (d *ImageStrip) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(d.container)
}

// Add appends images and previews the last one. Earlier images are kept
// until Clear.
func (d *ImageStrip) Add(images ...media.Attachment) {
	if len(images) == 0 {
		return
	}
	d.images = append(d.images, images...)
	d.imageLabel.SetText(imagesSummary(d.images))

	img, err := decodeAttachment(images[len(images)-1])
	if err != nil {
		d.imageCanvas.Image = nil
		d.imageLabel.SetText(fmt.Sprintf("%s (no preview: %v)", imagesSummary(d.images), err))
	} else {
		d.imageCanvas.Image = img
	}
	d.imageCanvas.Refresh()
}

// Images returns the selected images in selection order.
func (d *ImageStrip) Images() []media.Attachment {
	return append([]media.Attachment(nil), d.images...)
}

// Clear drops every selected image.
func (d *ImageStrip) Clear() {
	d.images = nil
	d.imageCanvas.Image = nil
	d.imageCanvas.Refresh()
	d.imageLabel.SetText(imagesSummary(nil))
}

// SetWorking shows a progress text while an image is being created.
func (d *ImageStrip) SetWorking(message string) {
	d.imageLabel.SetText(message)
}

func decodeAttachment(a media.Attachment) (image.Image, error) {
	rc, err := a.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	img, _, err := image.Decode(rc)
	return img, err
}

// imagesSummary describes the image selection for the strip label.
func imagesSummary(images []media.Attachment) string {
	switch len(images) {
	case 0:
		return "No images"
	case 1:
		return images[0].Name()
	default:
		return fmt.Sprintf("%d images, last: %s", len(images), images[len(images)-1].Name())
	}
}
