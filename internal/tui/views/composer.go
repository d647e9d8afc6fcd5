// Package views holds the tview widgets of the chat screen.
package views

import (
	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/daychat/internal/tui/ui"
	"github.com/rivo/tview"
)

// Composer is the text input bound to the chat's typing buffer.
type Composer struct {
	*tview.InputField
	onChange func(text string)
	onSend   func()
	clearing bool
}

// NewComposer creates a new message composer.
func NewComposer(theme *ui.Theme) *Composer {
	input := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	input.SetBorder(true)
	input.SetBorderColor(theme.BorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.PromptColor)
	input.SetTitle(" Compose ")
	input.SetTitleColor(theme.TitleColor)

	c := &Composer{InputField: input}
	input.SetChangedFunc(func(text string) {
		if !c.clearing && c.onChange != nil {
			c.onChange(text)
		}
	})
	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && c.onSend != nil {
			c.onSend()
		}
	})
	return c
}

// SetOnChange sets the callback receiving every edit.
func (c *Composer) SetOnChange(fn func(text string)) {
	c.onChange = fn
}

// SetOnSend sets the callback for Enter.
func (c *Composer) SetOnSend(fn func()) {
	c.onSend = fn
}

// Reset empties the field without reporting a change.
func (c *Composer) Reset() {
	c.clearing = true
	c.SetText("")
	c.clearing = false
}
