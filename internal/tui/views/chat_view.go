package views

import (
	"github.com/matheus3301/daychat/internal/tui/ui"
	"github.com/rivo/tview"
)

// ChatView shows the rendered message history.
type ChatView struct {
	*tview.TextView
	content string
}

// NewChatView creates the history pane.
func NewChatView(theme *ui.Theme, title string) *ChatView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" " + title + " ")
	tv.SetTitleColor(theme.TitleColor)
	return &ChatView{TextView: tv}
}

// SetContent replaces the markup and scrolls to the newest message. An
// unchanged content keeps the scroll position.
func (v *ChatView) SetContent(markup string) {
	if markup == v.content {
		return
	}
	v.content = markup
	v.SetText(markup)
	v.ScrollToEnd()
}
