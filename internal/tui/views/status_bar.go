package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/daychat/internal/tui/ui"
	"github.com/rivo/tview"
)

// StatusBar displays the session, the history state, key hints and flashes.
type StatusBar struct {
	*tview.TextView
	theme   *ui.Theme
	session string
	status  string
	hints   []string
	flash   string
	now     func() time.Time
}

// NewStatusBar creates a new status bar.
func NewStatusBar(theme *ui.Theme) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.StatusBgColor)
	return &StatusBar{TextView: tv, theme: theme, now: time.Now}
}

// SetSession updates the session name display.
func (sb *StatusBar) SetSession(name string) {
	sb.session = name
	sb.render()
}

// SetStatus updates the history state display.
func (sb *StatusBar) SetStatus(status string) {
	sb.status = status
	sb.render()
}

// SetHints updates the key hints.
func (sb *StatusBar) SetHints(hints []string) {
	sb.hints = hints
	sb.render()
}

// SetFlash sets a temporary message; empty clears it.
func (sb *StatusBar) SetFlash(msg string) {
	sb.flash = msg
	sb.render()
}

// Line returns the current markup.
func (sb *StatusBar) Line() string {
	line := fmt.Sprintf(" [::b]%s[-:-:-] | %s | %s", tview.Escape(sb.session), sb.status, sb.now().Format("15:04"))
	if len(sb.hints) > 0 {
		line += fmt.Sprintf(" | [%s]%s[-]", sb.theme.MutedTag, strings.Join(sb.hints, " "))
	}
	if sb.flash != "" {
		line += fmt.Sprintf(" | [%s]%s[-]", sb.theme.WarnTag, tview.Escape(sb.flash))
	}
	return line
}

func (sb *StatusBar) render() {
	sb.SetText(sb.Line())
}
