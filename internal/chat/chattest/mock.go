// Package chattest provides test helpers for the chat package.
package chattest

import (
	"context"
	"errors"
	"sync"

	"github.com/matheus3301/daychat/internal/chat"
)

// ErrNotStubbed is returned by MockFeed methods whose Func field is unset.
var ErrNotStubbed = errors.New("chattest: call was not stubbed")

// MockFeed is a configurable test double for chat.Feed. Set the Func fields
// to control behavior; unset funcs fail with ErrNotStubbed. Calls are
// recorded and all methods are safe for concurrent use.
type MockFeed struct {
	LoadMessagesFunc func(ctx context.Context, pageNumber int) (*chat.Page, error)
	SendMessageFunc  func(ctx context.Context, text string) (string, error)

	mu        sync.Mutex
	pages     []int
	sentTexts []string
}

// LoadMessages records the requested page and delegates to LoadMessagesFunc.
func (m *MockFeed) LoadMessages(ctx context.Context, pageNumber int) (*chat.Page, error) {
	m.mu.Lock()
	m.pages = append(m.pages, pageNumber)
	fn := m.LoadMessagesFunc
	m.mu.Unlock()
	if fn == nil {
		return nil, ErrNotStubbed
	}
	return fn(ctx, pageNumber)
}

// SendMessage records the text and delegates to SendMessageFunc.
func (m *MockFeed) SendMessage(ctx context.Context, text string) (string, error) {
	m.mu.Lock()
	m.sentTexts = append(m.sentTexts, text)
	fn := m.SendMessageFunc
	m.mu.Unlock()
	if fn == nil {
		return "", ErrNotStubbed
	}
	return fn(ctx, text)
}

// RequestedPages returns the page numbers passed to LoadMessages, in call order.
func (m *MockFeed) RequestedPages() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.pages...)
}

// SentTexts returns the texts passed to SendMessage, in call order.
func (m *MockFeed) SentTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sentTexts...)
}

// Pages returns a LoadMessagesFunc serving the given pages by number. The
// last page reports MoreExists=false; unknown page numbers get an empty page.
func Pages(pages ...[]chat.RawMessage) func(context.Context, int) (*chat.Page, error) {
	return func(_ context.Context, n int) (*chat.Page, error) {
		if n < 1 || n > len(pages) {
			return &chat.Page{}, nil
		}
		return &chat.Page{MoreExists: n < len(pages), Messages: pages[n-1]}, nil
	}
}

// Raw builds a feed message. An empty sender means the session owner.
func Raw(id, text, dateTime, sender string) chat.RawMessage {
	r := chat.RawMessage{ID: id, Text: text, DateTime: dateTime}
	if sender != "" {
		r.Sender = &sender
	}
	return r
}

// Recorder collects every state published by a chat.Model.
type Recorder struct {
	mu     sync.Mutex
	states []chat.ViewState
}

// Record subscribes r to m and returns the unsubscribe function.
func (r *Recorder) Record(m *chat.Model) func() {
	return m.Subscribe(func(s chat.ViewState) {
		r.mu.Lock()
		r.states = append(r.states, s)
		r.mu.Unlock()
	})
}

// States returns the recorded states in publication order.
func (r *Recorder) States() []chat.ViewState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]chat.ViewState(nil), r.states...)
}

// Interface guard.
var _ chat.Feed = (*MockFeed)(nil)
