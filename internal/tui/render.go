package tui

import (
	"fmt"
	"strings"

	"github.com/matheus3301/daychat/internal/chat"
	"github.com/matheus3301/daychat/internal/tui/ui"
	"github.com/rivo/tview"
)

// SelfName labels messages written by the session owner.
const SelfName = "You"

// RenderState returns the tview markup for the history pane. It depends only
// on s, so fixed states can be previewed without a feed.
func RenderState(s chat.ViewState) string {
	return renderState(s, ui.DefaultTheme())
}

func renderState(s chat.ViewState, th *ui.Theme) string {
	var b strings.Builder
	switch s.Kind {
	case chat.ViewIdle:
		return ""
	case chat.ViewNoContent:
		fmt.Fprintf(&b, "[%s]No messages yet.[-]\n", th.MutedTag)
		return b.String()
	}

	b.WriteString(loadingBanner(s.Loading, th))
	for _, g := range s.Groups {
		fmt.Fprintf(&b, "[%s::b]%s[-:-:-]\n", th.DayTag, tview.Escape(g.Header))
		for _, m := range g.Messages {
			writeMessage(&b, m, th)
		}
	}
	return b.String()
}

func loadingBanner(ls chat.LoadingState, th *ui.Theme) string {
	switch ls.Kind {
	case chat.LoadingCanLoadMore:
		return fmt.Sprintf("[%s]-- l: load older messages --[-]\n\n", th.MutedTag)
	case chat.LoadingInProgress:
		return fmt.Sprintf("[%s]-- loading --[-]\n\n", th.MutedTag)
	case chat.LoadingError:
		return fmt.Sprintf("[%s]-- %s. l: try again --[-]\n\n", th.ErrTag, tview.Escape(ls.Err))
	case chat.LoadingCompleted:
		return fmt.Sprintf("[%s]-- beginning of conversation --[-]\n\n", th.MutedTag)
	}
	return ""
}

func writeMessage(b *strings.Builder, m chat.Message, th *ui.Theme) {
	name, color := SelfName, th.SelfTag
	if m.Sender.Kind == chat.SenderOther {
		name, color = m.Sender.Name, th.OtherTag
	}
	fmt.Fprintf(b, "[%s::b]%s[-:-:-] %s\n%s\n\n",
		color, tview.Escape(sanitize(name)),
		deliveryLabel(m.Delivery, th),
		tview.Escape(sanitize(m.Text)))
}

func deliveryLabel(d chat.DeliveryState, th *ui.Theme) string {
	switch d.Kind {
	case chat.DeliverySending:
		return fmt.Sprintf("[%s]sending[-]", th.MutedTag)
	case chat.DeliveryFailed:
		return fmt.Sprintf("[%s]not sent. r: retry[-]", th.ErrTag)
	default:
		return fmt.Sprintf("[%s]%s[-]", th.MutedTag, d.Time)
	}
}

// newestFailed returns the most recent own message that failed to send.
func newestFailed(s chat.ViewState) (chat.Message, bool) {
	for gi := len(s.Groups) - 1; gi >= 0; gi-- {
		msgs := s.Groups[gi].Messages
		for mi := len(msgs) - 1; mi >= 0; mi-- {
			m := msgs[mi]
			if m.Sender.Kind == chat.SenderSelf && m.Delivery.Kind == chat.DeliveryFailed {
				return m, true
			}
		}
	}
	return chat.Message{}, false
}

// displayState shows Completed as CanLoadMore while the feed still has older
// pages, which is the case after a send.
func displayState(s chat.ViewState, more bool) chat.ViewState {
	if s.Kind == chat.ViewActive && s.Loading.Kind == chat.LoadingCompleted && more {
		return chat.Active(chat.CanLoadMore(), s.Groups)
	}
	return s
}

// statusLabel summarizes s for the status bar.
func statusLabel(s chat.ViewState) string {
	switch s.Kind {
	case chat.ViewIdle:
		return "starting"
	case chat.ViewNoContent:
		return "empty"
	}
	switch s.Loading.Kind {
	case chat.LoadingInProgress:
		return "loading"
	case chat.LoadingError:
		return "load failed"
	case chat.LoadingCanLoadMore:
		return "more history"
	default:
		return "all loaded"
	}
}
