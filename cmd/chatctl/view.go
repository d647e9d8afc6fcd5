package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/matheus3301/daychat/internal/chat"
	"github.com/prometheus/client_golang/prometheus"
)

// drainHistory loads pages until the history is complete, empty or a load
// fails.
func drainHistory(ctx context.Context, m *chat.Model) (chat.ViewState, error) {
	for {
		m.LoadNext(ctx)
		s := m.State()
		if s.Kind != chat.ViewActive {
			return s, nil
		}
		switch s.Loading.Kind {
		case chat.LoadingCompleted:
			return s, nil
		case chat.LoadingError:
			return s, errors.New(s.Loading.Err)
		}
		if err := ctx.Err(); err != nil {
			return s, err
		}
	}
}

func printState(w io.Writer, s chat.ViewState) {
	if s.Kind == chat.ViewNoContent || len(s.Groups) == 0 {
		fmt.Fprintln(w, "No messages yet.")
		return
	}
	for i, g := range s.Groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "== %s ==\n", g.Header)
		for _, m := range g.Messages {
			name := "You"
			if m.Sender.Kind == chat.SenderOther {
				name = m.Sender.Name
			}
			fmt.Fprintf(w, "  %s  %-12s %s\n", m.Delivery, name, m.Text)
		}
	}
}

type viewMessage struct {
	ID       string `json:"id"`
	Sender   string `json:"sender"`
	Text     string `json:"text"`
	Delivery string `json:"delivery"`
}

type viewGroup struct {
	Header   string        `json:"header"`
	Messages []viewMessage `json:"messages"`
}

func viewGroups(s chat.ViewState) []viewGroup {
	out := make([]viewGroup, 0, len(s.Groups))
	for _, g := range s.Groups {
		vg := viewGroup{Header: g.Header, Messages: make([]viewMessage, 0, len(g.Messages))}
		for _, m := range g.Messages {
			vg.Messages = append(vg.Messages, viewMessage{
				ID:       m.ID,
				Sender:   m.Sender.String(),
				Text:     m.Text,
				Delivery: m.Delivery.String(),
			})
		}
		out = append(out, vg)
	}
	return out
}

// printMetrics writes every counter and histogram count in reg as
// name{labels} value lines, sorted.
func printMetrics(w io.Writer, reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				lines = append(lines, fmt.Sprintf("%s %g", name, m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				lines = append(lines, fmt.Sprintf("%s_count %d", name, m.GetHistogram().GetSampleCount()))
			}
		}
	}
	sort.Strings(lines)
	_, err = fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}
