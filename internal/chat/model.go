// Package chat holds the state core of the chat client: it merges paged feed
// history into day groups and runs the optimistic send/retry workflow.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/matheus3301/daychat/internal/bus"
	"github.com/matheus3301/daychat/internal/metrics"
	"go.uber.org/zap"
)

// Options configures a Model. The zero value is usable.
type Options struct {
	Logger  *zap.Logger
	Bus     *bus.Bus
	Metrics *metrics.Client
	// KeepGroupsOnEmptyPage publishes Active(Completed, groups) instead of
	// NoContent when an empty page arrives after history was already shown.
	KeepGroupsOnEmptyPage bool
	// TodayGroupForSends puts outgoing messages in a new Today group when the
	// newest displayed group is an earlier day. By default they join the
	// newest group whatever its header.
	TodayGroupForSends bool
}

// Model owns the ViewState of one chat session. Public operations are
// serialized: each runs to its terminal state transition, including the feed
// call, before the next one starts.
type Model struct {
	feed       Feed
	clf        Classifier
	logger     *zap.Logger
	bus        *bus.Bus
	metrics    *metrics.Client
	keepGroups bool
	todaySends bool

	state *observable

	// more mirrors the feed's MoreExists for the newest loaded page. Sends
	// publish Completed without touching it.
	more atomic.Bool

	// opMu serializes LoadNext, SendMessage and Retry. cursor and pending
	// are only touched while it is held.
	opMu    sync.Mutex
	cursor  int
	pending int

	typingMu sync.Mutex
	typing   string
}

// NewModel creates a model in the Idle state with the cursor on page 1.
func NewModel(feed Feed, clf Classifier, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Model{
		feed:       feed,
		clf:        clf,
		logger:     logger,
		bus:        opts.Bus,
		metrics:    opts.Metrics,
		keepGroups: opts.KeepGroupsOnEmptyPage,
		todaySends: opts.TodayGroupForSends,
		state:      newObservable(Idle()),
		cursor:     1,
	}
	m.more.Store(true)
	return m
}

// HasMore reports whether the feed may hold history older than what was
// loaded: true before the first page, then the last page's MoreExists. A
// failed load leaves it unchanged and an empty page clears it.
func (m *Model) HasMore() bool {
	return m.more.Load()
}

// State returns the current view state.
func (m *Model) State() ViewState {
	return m.state.Get()
}

// Subscribe calls fn with the current state and then with every transition,
// in order, on the goroutine performing the transition. fn must not block
// and must not call Model operations. The returned function unsubscribes.
func (m *Model) Subscribe(fn func(ViewState)) func() {
	return m.state.Subscribe(fn)
}

// SetTyping replaces the typing buffer.
func (m *Model) SetTyping(text string) {
	m.typingMu.Lock()
	m.typing = text
	m.typingMu.Unlock()
}

// Typing returns the typing buffer.
func (m *Model) Typing() string {
	m.typingMu.Lock()
	defer m.typingMu.Unlock()
	return m.typing
}

func (m *Model) takeTyping() string {
	m.typingMu.Lock()
	defer m.typingMu.Unlock()
	text := m.typing
	m.typing = ""
	return text
}

// LoadNext requests the page under the cursor and merges it in front of the
// displayed history. A failure keeps the displayed groups and the cursor, so
// the next call asks for the same page again.
func (m *Model) LoadNext(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	groups := m.state.Get().groups()
	m.state.Set(Active(Loading(), groups))

	page := m.cursor
	m.logger.Debug("loading page", zap.Int("page", page))
	start := time.Now()
	resp, err := m.feed.LoadMessages(ctx, page)
	took := time.Since(start)
	if err != nil {
		m.logger.Warn("page load failed", zap.Int("page", page), zap.Error(err))
		m.metrics.PageLoad(metrics.ResultFailed, took)
		m.bus.Publish(bus.Event{Kind: bus.KindPageFailed, Payload: bus.PageFailed{Page: page, Err: err}})
		m.state.Set(Active(LoadError(LoadFailedMessage), groups))
		return
	}

	if len(resp.Messages) == 0 {
		m.logger.Info("empty page, end of history", zap.Int("page", page))
		m.metrics.PageLoad(metrics.ResultEmpty, took)
		m.bus.Publish(bus.Event{Kind: bus.KindPageLoaded, Payload: bus.PageLoaded{Page: page}})
		m.more.Store(false)
		if m.keepGroups && len(groups) > 0 {
			m.state.Set(Active(Completed(), groups))
			return
		}
		m.state.Set(NoContent())
		return
	}

	m.cursor++
	m.more.Store(resp.MoreExists)
	merged := MergePage(groups, resp.Messages, m.clf)

	ls := Completed()
	if resp.MoreExists {
		ls = CanLoadMore()
	}
	m.logger.Info("page loaded",
		zap.Int("page", page),
		zap.Int("messages", len(resp.Messages)),
		zap.Bool("more_exists", resp.MoreExists),
	)
	m.metrics.PageLoad(metrics.ResultLoaded, took)
	m.bus.Publish(bus.Event{Kind: bus.KindPageLoaded, Payload: bus.PageLoaded{
		Page:       page,
		Messages:   len(resp.Messages),
		MoreExists: resp.MoreExists,
	}})
	m.state.Set(Active(ls, merged))
}

// SendMessage takes the typing buffer, shows it as Sending under a fresh
// pending ID and submits it. On success the message is replaced by one
// carrying the server ID; on failure it stays under the pending ID as
// FailedToSend. A blank buffer returns ErrEmptyMessage and changes nothing.
func (m *Model) SendMessage(ctx context.Context) error {
	text := m.takeTyping()
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.pending++
	id := fmt.Sprintf("sending-%d", m.pending)
	m.deliver(ctx, "", Message{ID: id, Text: text, Sender: Self(), Delivery: Sending()}, false)
	return nil
}

// Retry resubmits a FailedToSend message under its existing ID. msg is
// matched by ID only; its other fields may be stale.
func (m *Model) Retry(ctx context.Context, msg Message) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	current, _, _, ok := m.state.Get().Find(msg.ID)
	if !ok {
		return fmt.Errorf("retry %s: %w", msg.ID, ErrUnknownMessage)
	}
	if current.Sender.Kind != SenderSelf || checkDeliveryTransition(current.Delivery.Kind, DeliverySending) != nil {
		return fmt.Errorf("retry %s (%s): %w", msg.ID, current.Delivery, ErrNotRetryable)
	}

	current.Delivery = Sending()
	m.deliver(ctx, current.ID, current, true)
	return nil
}

// deliver publishes msg as Sending (replacing target, or appending when target
// is empty), submits it and publishes the outcome. Caller holds opMu.
func (m *Model) deliver(ctx context.Context, target string, msg Message, retry bool) {
	m.replace(target, msg)

	serverID, err := m.feed.SendMessage(ctx, msg.Text)
	m.metrics.Send(retry, err == nil)
	if err != nil {
		m.logger.Warn("send failed", zap.String("id", msg.ID), zap.Bool("retry", retry), zap.Error(err))
		m.bus.Publish(bus.Event{Kind: bus.KindSendFailed, Payload: bus.SendFailed{PendingID: msg.ID, Err: err, Retry: retry}})
		failed := msg
		failed.Delivery = FailedToSend()
		m.replace(msg.ID, failed)
		return
	}

	m.logger.Info("message sent", zap.String("pending_id", msg.ID), zap.String("server_id", serverID), zap.Bool("retry", retry))
	m.bus.Publish(bus.Event{Kind: bus.KindSendAck, Payload: bus.SendAck{PendingID: msg.ID, ServerID: serverID, Retry: retry}})
	sent := msg
	sent.ID = serverID
	sent.Delivery = Sent(m.clf.TimeOfDayNow())
	m.replace(msg.ID, sent)
}

// replace swaps the message with ID target for msg, keeping its position. An
// empty or unknown target appends msg to the last group, or to a new Today
// group when there are none (or, with TodayGroupForSends, when the last
// group is an earlier day). Sending never changes pagination progress, so the
// result is always published as Active(Completed, ...).
func (m *Model) replace(target string, msg Message) {
	cur := m.state.Get()
	groups := cur.groups()

	if target != "" {
		if prev, gi, mi, ok := cur.Find(target); ok {
			if err := checkDeliveryTransition(prev.Delivery.Kind, msg.Delivery.Kind); err != nil {
				m.logger.Error("unexpected delivery transition", zap.String("id", target), zap.Error(err))
			}
			next := make([]MessageGroup, len(groups))
			copy(next, groups)
			msgs := make([]Message, len(groups[gi].Messages))
			copy(msgs, groups[gi].Messages)
			msgs[mi] = msg
			next[gi] = MessageGroup{Header: groups[gi].Header, Messages: msgs}
			m.state.Set(Active(Completed(), next))
			return
		}
	}

	today := m.clf.Today()
	n := len(groups)
	if n > 0 && (!m.todaySends || groups[n-1].Header == today) {
		last := groups[n-1]
		next := make([]MessageGroup, n)
		copy(next, groups)
		msgs := make([]Message, 0, len(last.Messages)+1)
		msgs = append(msgs, last.Messages...)
		next[n-1] = MessageGroup{Header: last.Header, Messages: append(msgs, msg)}
		m.state.Set(Active(Completed(), next))
		return
	}

	next := make([]MessageGroup, 0, n+1)
	next = append(next, groups...)
	next = append(next, MessageGroup{Header: today, Messages: []Message{msg}})
	m.state.Set(Active(Completed(), next))
}
