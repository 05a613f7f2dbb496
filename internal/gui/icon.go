package gui

import "fyne.io/fyne/v2"

var iconData = []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 64 64">
<rect x="10" y="6" width="40" height="52" rx="5" fill="#2e6db4"/>
<rect x="16" y="12" width="40" height="46" rx="5" fill="#f4f4f4" stroke="#2e6db4" stroke-width="2"/>
<path d="M24 26h24M24 34h24M24 42h14" stroke="#2e6db4" stroke-width="3" stroke-linecap="round"/>
</svg>`)

// GetAppIcon returns the application icon as a Fyne resource
func GetAppIcon() fyne.Resource {
	return &fyne.StaticResource{
		StaticName:    "ankiform.svg",
		StaticContent: iconData,
	}
}
