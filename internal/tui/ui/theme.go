// Package ui holds presentation constants shared by the terminal views.
package ui

import "github.com/gdamore/tcell/v2"

// Theme holds widget colors and the color names used in tview markup.
type Theme struct {
	BgColor          tcell.Color
	FgColor          tcell.Color
	BorderColor      tcell.Color
	BorderFocusColor tcell.Color
	TitleColor       tcell.Color
	PromptColor      tcell.Color
	StatusBgColor    tcell.Color

	// Markup color names.
	DayTag    string
	SelfTag   string
	OtherTag  string
	MutedTag  string
	ErrTag    string
	WarnTag   string
	NoticeTag string
}

// DefaultTheme returns a k9s-inspired dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:          tcell.ColorBlack,
		FgColor:          tcell.ColorCadetBlue,
		BorderColor:      tcell.ColorDodgerBlue,
		BorderFocusColor: tcell.ColorLightSkyBlue,
		TitleColor:       tcell.ColorFuchsia,
		PromptColor:      tcell.ColorDodgerBlue,
		StatusBgColor:    tcell.ColorNavy,

		DayTag:    "fuchsia",
		SelfTag:   "aqua",
		OtherTag:  "orange",
		MutedTag:  "gray",
		ErrTag:    "orangered",
		WarnTag:   "yellow",
		NoticeTag: "navajowhite",
	}
}
