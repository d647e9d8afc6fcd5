package chat_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/daychat/internal/bus"
	"github.com/matheus3301/daychat/internal/chat"
	"github.com/matheus3301/daychat/internal/chat/chattest"
	"github.com/matheus3301/daychat/internal/dayfmt"
	"go.uber.org/zap"
)

var (
	now        = time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC)
	errTimeout = errors.New("request timed out")
)

func newModel(t *testing.T, feed chat.Feed, opts chat.Options) (*chat.Model, *chattest.Recorder) {
	t.Helper()
	clf := dayfmt.New(func() time.Time { return now }, time.UTC)
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	m := chat.NewModel(feed, clf, opts)
	rec := &chattest.Recorder{}
	t.Cleanup(rec.Record(m))
	return m, rec
}

func assertStates(t *testing.T, got, want []chat.ViewState) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d states %v, want %d states %v", len(got), got, len(want), want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("state[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func assertPages(t *testing.T, feed *chattest.MockFeed, want ...int) {
	t.Helper()
	got := feed.RequestedPages()
	if len(got) != len(want) {
		t.Fatalf("requested pages = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("requested pages = %v, want %v", got, want)
		}
	}
}

func sent(id, text string, sender chat.Sender, at string) chat.Message {
	return chat.Message{ID: id, Text: text, Sender: sender, Delivery: chat.Sent(at)}
}

func mine(id, text string, d chat.DeliveryState) chat.Message {
	return chat.Message{ID: id, Text: text, Sender: chat.Self(), Delivery: d}
}

func TestLoadNextEmptyFeedIsNoContent(t *testing.T) {
	feed := &chattest.MockFeed{LoadMessagesFunc: chattest.Pages()}
	m, rec := newModel(t, feed, chat.Options{})

	m.LoadNext(context.Background())

	assertStates(t, rec.States(), []chat.ViewState{
		chat.Idle(),
		chat.Active(chat.Loading(), nil),
		chat.NoContent(),
	})
	assertPages(t, feed, 1)
}

func TestLoadNextSinglePageCompleted(t *testing.T) {
	feed := &chattest.MockFeed{LoadMessagesFunc: chattest.Pages(
		[]chat.RawMessage{
			chattest.Raw("1", "Merry Christmas!", "2024-12-24T14:45:00Z", "Alice"),
			chattest.Raw("2", "And to you as well!", "2024-12-24T14:58:00Z", ""),
			chattest.Raw("3", "Happy new year!", "2024-12-31T23:58:00Z", "Bob"),
		},
	)}
	m, rec := newModel(t, feed, chat.Options{})

	m.LoadNext(context.Background())

	assertStates(t, rec.States(), []chat.ViewState{
		chat.Idle(),
		chat.Active(chat.Loading(), nil),
		chat.Active(chat.Completed(), []chat.MessageGroup{
			{Header: "24 December", Messages: []chat.Message{
				sent("1", "Merry Christmas!", chat.Other("Alice"), "14:45"),
				sent("2", "And to you as well!", chat.Self(), "14:58"),
			}},
			{Header: "31 December", Messages: []chat.Message{
				sent("3", "Happy new year!", chat.Other("Bob"), "23:58"),
			}},
		}),
	})
}

func TestLoadNextGroupsByDayWithToday(t *testing.T) {
	feed := &chattest.MockFeed{LoadMessagesFunc: chattest.Pages(
		[]chat.RawMessage{
			chattest.Raw("1", "Merry Christmas!", "2024-12-24T14:45:00Z", "Alice"),
			chattest.Raw("2", "Happy new year!", "2024-12-31T23:58:00Z", "Bob"),
			chattest.Raw("3", "Owl sanctuary?", "2025-01-10T07:15:00Z", ""),
			chattest.Raw("4", "For sure!", "2025-01-10T07:16:00Z", "Alice"),
		},
	)}
	m, _ := newModel(t, feed, chat.Options{})

	m.LoadNext(context.Background())

	want := chat.Active(chat.Completed(), []chat.MessageGroup{
		{Header: "24 December", Messages: []chat.Message{sent("1", "Merry Christmas!", chat.Other("Alice"), "14:45")}},
		{Header: "31 December", Messages: []chat.Message{sent("2", "Happy new year!", chat.Other("Bob"), "23:58")}},
		{Header: "Today", Messages: []chat.Message{
			sent("3", "Owl sanctuary?", chat.Self(), "07:15"),
			sent("4", "For sure!", chat.Other("Alice"), "07:16"),
		}},
	})
	if got := m.State(); !got.Equal(want) {
		t.Errorf("state = %v, want %v", got, want)
	}
}

func TestLoadNextFailureShowsError(t *testing.T) {
	feed := &chattest.MockFeed{LoadMessagesFunc: func(context.Context, int) (*chat.Page, error) {
		return nil, errTimeout
	}}
	m, rec := newModel(t, feed, chat.Options{})

	m.LoadNext(context.Background())

	assertStates(t, rec.States(), []chat.ViewState{
		chat.Idle(),
		chat.Active(chat.Loading(), nil),
		chat.Active(chat.LoadError("Something went wrong"), nil),
	})
}

func TestFailedLoadsDoNotAdvanceCursor(t *testing.T) {
	failures := 3
	feed := &chattest.MockFeed{}
	feed.LoadMessagesFunc = func(ctx context.Context, n int) (*chat.Page, error) {
		if failures > 0 {
			failures--
			return nil, errTimeout
		}
		return chattest.Pages(
			[]chat.RawMessage{chattest.Raw("b", "newer", "2025-01-10T08:00:00Z", "")},
			[]chat.RawMessage{chattest.Raw("a", "older", "2025-01-10T07:00:00Z", "")},
		)(ctx, n)
	}
	m, _ := newModel(t, feed, chat.Options{})
	ctx := context.Background()

	for range 4 {
		m.LoadNext(ctx)
	}
	assertPages(t, feed, 1, 1, 1, 1)
	if got := m.State(); got.Loading != chat.CanLoadMore() {
		t.Fatalf("loading = %v, want can_load_more", got.Loading)
	}

	m.LoadNext(ctx)
	assertPages(t, feed, 1, 1, 1, 1, 2)

	want := chat.Active(chat.Completed(), []chat.MessageGroup{
		{Header: "Today", Messages: []chat.Message{
			sent("a", "older", chat.Self(), "07:00"),
			sent("b", "newer", chat.Self(), "08:00"),
		}},
	})
	if got := m.State(); !got.Equal(want) {
		t.Errorf("state = %v, want %v", got, want)
	}
}

func TestFailedLoadKeepsGroupsAndRetryConverges(t *testing.T) {
	page1 := []chat.RawMessage{
		chattest.Raw("3", "c", "2024-12-31T10:00:00Z", "Bob"),
		chattest.Raw("4", "d", "2025-01-10T07:00:00Z", ""),
	}
	page2 := []chat.RawMessage{
		chattest.Raw("1", "a", "2024-12-24T10:00:00Z", "Alice"),
		chattest.Raw("2", "b", "2024-12-31T09:00:00Z", ""),
	}
	fail := false
	feed := &chattest.MockFeed{}
	feed.LoadMessagesFunc = func(ctx context.Context, n int) (*chat.Page, error) {
		if fail {
			return nil, errTimeout
		}
		return chattest.Pages(page1, page2)(ctx, n)
	}
	m, rec := newModel(t, feed, chat.Options{})
	ctx := context.Background()

	m.LoadNext(ctx)
	first := m.State()

	fail = true
	m.LoadNext(ctx)
	m.LoadNext(ctx)
	states := rec.States()
	afterFailure := states[len(states)-1]
	if !afterFailure.Equal(chat.Active(chat.LoadError(chat.LoadFailedMessage), first.Groups)) {
		t.Fatalf("state after failure = %v, want error with groups %v", afterFailure, first)
	}
	loadingDuringRetry := states[len(states)-2]
	if !loadingDuringRetry.Equal(chat.Active(chat.Loading(), first.Groups)) {
		t.Errorf("state during retry = %v, want loading with previous groups", loadingDuringRetry)
	}

	fail = false
	m.LoadNext(ctx)
	assertPages(t, feed, 1, 2, 2, 2)

	want := chat.Active(chat.Completed(), []chat.MessageGroup{
		{Header: "24 December", Messages: []chat.Message{sent("1", "a", chat.Other("Alice"), "10:00")}},
		{Header: "31 December", Messages: []chat.Message{
			sent("2", "b", chat.Self(), "09:00"),
			sent("3", "c", chat.Other("Bob"), "10:00"),
		}},
		{Header: "Today", Messages: []chat.Message{sent("4", "d", chat.Self(), "07:00")}},
	})
	if got := m.State(); !got.Equal(want) {
		t.Errorf("state = %v, want %v", got, want)
	}
}

func TestHeaderOrderIsStableAcrossLoads(t *testing.T) {
	feed := &chattest.MockFeed{LoadMessagesFunc: chattest.Pages(
		[]chat.RawMessage{chattest.Raw("5", "e", "2025-01-10T07:00:00Z", "")},
		[]chat.RawMessage{
			chattest.Raw("3", "c", "2025-01-02T07:00:00Z", ""),
			chattest.Raw("4", "d", "2025-01-05T07:00:00Z", ""),
		},
		[]chat.RawMessage{
			chattest.Raw("1", "a", "2024-12-24T07:00:00Z", ""),
			chattest.Raw("2", "b", "2025-01-02T06:00:00Z", ""),
		},
	)}
	m, _ := newModel(t, feed, chat.Options{})

	var seen [][]string
	for range 3 {
		m.LoadNext(context.Background())
		var hs []string
		for _, g := range m.State().Groups {
			hs = append(hs, g.Header)
		}
		seen = append(seen, hs)
	}

	want := [][]string{
		{"Today"},
		{"2 January", "5 January", "Today"},
		{"24 December", "2 January", "5 January", "Today"},
	}
	for i := range want {
		if len(seen[i]) != len(want[i]) {
			t.Fatalf("headers after load %d = %v, want %v", i+1, seen[i], want[i])
		}
		for j := range want[i] {
			if seen[i][j] != want[i][j] {
				t.Errorf("headers after load %d = %v, want %v", i+1, seen[i], want[i])
				break
			}
		}
	}
	if got := m.State().Loading; got != chat.Completed() {
		t.Errorf("loading = %v, want completed", got)
	}
}

func TestEmptyPageAfterHistory(t *testing.T) {
	pages := chattest.Pages(
		[]chat.RawMessage{chattest.Raw("1", "a", "2025-01-10T07:00:00Z", "")},
		nil,
	)
	history := []chat.MessageGroup{{Header: "Today", Messages: []chat.Message{sent("1", "a", chat.Self(), "07:00")}}}

	t.Run("default discards groups", func(t *testing.T) {
		feed := &chattest.MockFeed{LoadMessagesFunc: pages}
		m, rec := newModel(t, feed, chat.Options{})
		m.LoadNext(context.Background())
		m.LoadNext(context.Background())

		states := rec.States()
		assertStates(t, states[len(states)-2:], []chat.ViewState{
			chat.Active(chat.Loading(), history),
			chat.NoContent(),
		})
	})

	t.Run("keep groups", func(t *testing.T) {
		feed := &chattest.MockFeed{LoadMessagesFunc: pages}
		m, _ := newModel(t, feed, chat.Options{KeepGroupsOnEmptyPage: true})
		m.LoadNext(context.Background())
		m.LoadNext(context.Background())

		if got := m.State(); !got.Equal(chat.Active(chat.Completed(), history)) {
			t.Errorf("state = %v, want completed with history", got)
		}
	})

	t.Run("keep groups with no history", func(t *testing.T) {
		feed := &chattest.MockFeed{LoadMessagesFunc: chattest.Pages()}
		m, _ := newModel(t, feed, chat.Options{KeepGroupsOnEmptyPage: true})
		m.LoadNext(context.Background())
		if got := m.State(); !got.Equal(chat.NoContent()) {
			t.Errorf("state = %v, want no_content", got)
		}
	})
}

func TestLoadNextPanicsOnMalformedTimestampAndRecovers(t *testing.T) {
	bad := true
	feed := &chattest.MockFeed{}
	feed.LoadMessagesFunc = func(context.Context, int) (*chat.Page, error) {
		if bad {
			return &chat.Page{Messages: []chat.RawMessage{chattest.Raw("x", "x", "not a date", "")}}, nil
		}
		return &chat.Page{}, nil
	}
	m, _ := newModel(t, feed, chat.Options{})

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("LoadNext did not panic on malformed feed timestamp")
			}
		}()
		m.LoadNext(context.Background())
	}()

	bad = false
	m.LoadNext(context.Background())
	if got := m.State(); !got.Equal(chat.NoContent()) {
		t.Errorf("state = %v, want no_content after recovery", got)
	}
}

func TestSendMessagePublishesSendingThenSent(t *testing.T) {
	feed := &chattest.MockFeed{SendMessageFunc: func(context.Context, string) (string, error) {
		return "srv-1", nil
	}}
	m, rec := newModel(t, feed, chat.Options{})
	m.SetTyping("Hello guys!")

	if err := m.SendMessage(context.Background()); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	assertStates(t, rec.States(), []chat.ViewState{
		chat.Idle(),
		chat.Active(chat.Completed(), []chat.MessageGroup{
			{Header: "Today", Messages: []chat.Message{mine("sending-1", "Hello guys!", chat.Sending())}},
		}),
		chat.Active(chat.Completed(), []chat.MessageGroup{
			{Header: "Today", Messages: []chat.Message{mine("srv-1", "Hello guys!", chat.Sent("09:30"))}},
		}),
	})
	if got := m.Typing(); got != "" {
		t.Errorf("typing buffer = %q, want empty", got)
	}
	if got := feed.SentTexts(); len(got) != 1 || got[0] != "Hello guys!" {
		t.Errorf("sent texts = %v, want [Hello guys!]", got)
	}
}

func TestSendMessageCapturesBufferAtCall(t *testing.T) {
	var m *chat.Model
	feed := &chattest.MockFeed{SendMessageFunc: func(context.Context, string) (string, error) {
		m.SetTyping("edited while sending")
		return "srv-1", nil
	}}
	m, _ = newModel(t, feed, chat.Options{})
	m.SetTyping("first")

	if err := m.SendMessage(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := feed.SentTexts(); len(got) != 1 || got[0] != "first" {
		t.Errorf("sent texts = %v, want [first]", got)
	}
	if got := m.Typing(); got != "edited while sending" {
		t.Errorf("typing buffer = %q, want the later edit to survive", got)
	}
}

func TestSendFailureThenRetry(t *testing.T) {
	fail := true
	feed := &chattest.MockFeed{SendMessageFunc: func(context.Context, string) (string, error) {
		if fail {
			return "", errTimeout
		}
		return "srv-9", nil
	}}
	m, rec := newModel(t, feed, chat.Options{})
	ctx := context.Background()

	m.SetTyping("We can bring snacks")
	if err := m.SendMessage(ctx); err != nil {
		t.Fatal(err)
	}
	failed := mine("sending-1", "We can bring snacks", chat.FailedToSend())
	if got := m.State(); !got.Equal(chat.Active(chat.Completed(), []chat.MessageGroup{{Header: "Today", Messages: []chat.Message{failed}}})) {
		t.Fatalf("state after failed send = %v", got)
	}

	fail = false
	if err := m.Retry(ctx, failed); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}

	states := rec.States()
	assertStates(t, states[len(states)-2:], []chat.ViewState{
		chat.Active(chat.Completed(), []chat.MessageGroup{
			{Header: "Today", Messages: []chat.Message{mine("sending-1", "We can bring snacks", chat.Sending())}},
		}),
		chat.Active(chat.Completed(), []chat.MessageGroup{
			{Header: "Today", Messages: []chat.Message{mine("srv-9", "We can bring snacks", chat.Sent("09:30"))}},
		}),
	})
	if got := feed.SentTexts(); len(got) != 2 || got[1] != "We can bring snacks" {
		t.Errorf("sent texts = %v, want the same text resubmitted", got)
	}
}

func TestPendingIDsAreNeverReused(t *testing.T) {
	calls := 0
	feed := &chattest.MockFeed{SendMessageFunc: func(context.Context, string) (string, error) {
		calls++
		if calls == 1 {
			return "", errTimeout
		}
		return "", errTimeout
	}}
	m, _ := newModel(t, feed, chat.Options{})
	ctx := context.Background()

	m.SetTyping("one")
	_ = m.SendMessage(ctx)
	m.SetTyping("two")
	_ = m.SendMessage(ctx)

	msgs := m.State().Groups[0].Messages
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].ID != "sending-1" || msgs[1].ID != "sending-2" {
		t.Errorf("ids = %s, %s, want sending-1, sending-2", msgs[0].ID, msgs[1].ID)
	}

	// A retry reuses its ID instead of minting one.
	_ = m.Retry(ctx, msgs[0])
	m.SetTyping("three")
	_ = m.SendMessage(ctx)
	msgs = m.State().Groups[0].Messages
	if msgs[2].ID != "sending-3" {
		t.Errorf("third pending id = %s, want sending-3", msgs[2].ID)
	}
}

func TestRetryKeepsPosition(t *testing.T) {
	fail := true
	feed := &chattest.MockFeed{SendMessageFunc: func(context.Context, string) (string, error) {
		if fail {
			return "", errTimeout
		}
		return "srv-1", nil
	}}
	m, _ := newModel(t, feed, chat.Options{})
	ctx := context.Background()

	m.SetTyping("first")
	_ = m.SendMessage(ctx)
	m.SetTyping("second")
	_ = m.SendMessage(ctx)

	fail = false
	stale := chat.Message{ID: "sending-1"}
	if err := m.Retry(ctx, stale); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}

	msgs := m.State().Groups[0].Messages
	if msgs[0] != mine("srv-1", "first", chat.Sent("09:30")) {
		t.Errorf("msgs[0] = %v, want srv-1 sent", msgs[0])
	}
	if msgs[1] != mine("sending-2", "second", chat.FailedToSend()) {
		t.Errorf("msgs[1] = %v, want sending-2 failed", msgs[1])
	}
	if _, _, _, ok := m.State().Find("sending-1"); ok {
		t.Error("sending-1 still present after successful retry")
	}
}

func TestRetryRejectsUnknownAndDelivered(t *testing.T) {
	feed := &chattest.MockFeed{SendMessageFunc: func(context.Context, string) (string, error) {
		return "srv-1", nil
	}}
	m, rec := newModel(t, feed, chat.Options{})
	ctx := context.Background()

	if err := m.Retry(ctx, chat.Message{ID: "nope"}); !errors.Is(err, chat.ErrUnknownMessage) {
		t.Errorf("Retry(unknown) error = %v, want ErrUnknownMessage", err)
	}

	m.SetTyping("hi")
	_ = m.SendMessage(ctx)
	before := len(rec.States())
	if err := m.Retry(ctx, chat.Message{ID: "srv-1"}); !errors.Is(err, chat.ErrNotRetryable) {
		t.Errorf("Retry(sent) error = %v, want ErrNotRetryable", err)
	}
	if len(rec.States()) != before {
		t.Error("rejected retry published a state")
	}
	if got := len(feed.SentTexts()); got != 1 {
		t.Errorf("send calls = %d, want 1", got)
	}
}

func TestRetryRejectsForeignMessages(t *testing.T) {
	feed := &chattest.MockFeed{LoadMessagesFunc: chattest.Pages(
		[]chat.RawMessage{chattest.Raw("1", "hey", "2025-01-10T07:00:00Z", "Alice")},
	)}
	m, _ := newModel(t, feed, chat.Options{})
	m.LoadNext(context.Background())

	if err := m.Retry(context.Background(), chat.Message{ID: "1"}); !errors.Is(err, chat.ErrNotRetryable) {
		t.Errorf("Retry(foreign) error = %v, want ErrNotRetryable", err)
	}
}

func TestSendMessageRejectsBlankBuffer(t *testing.T) {
	feed := &chattest.MockFeed{}
	m, rec := newModel(t, feed, chat.Options{})

	for _, text := range []string{"", "   ", "\n\t"} {
		m.SetTyping(text)
		if err := m.SendMessage(context.Background()); !errors.Is(err, chat.ErrEmptyMessage) {
			t.Errorf("SendMessage(%q) error = %v, want ErrEmptyMessage", text, err)
		}
	}
	assertStates(t, rec.States(), []chat.ViewState{chat.Idle()})
	if got := feed.SentTexts(); len(got) != 0 {
		t.Errorf("sent texts = %v, want none", got)
	}
}

func TestSendAfterHistory(t *testing.T) {
	ok := func(context.Context, string) (string, error) { return "srv-1", nil }

	t.Run("appends to today", func(t *testing.T) {
		feed := &chattest.MockFeed{
			LoadMessagesFunc: chattest.Pages(
				[]chat.RawMessage{chattest.Raw("1", "a", "2025-01-10T07:00:00Z", "Alice")},
				[]chat.RawMessage{chattest.Raw("0", "z", "2024-12-31T07:00:00Z", "Alice")},
			),
			SendMessageFunc: ok,
		}
		m, _ := newModel(t, feed, chat.Options{})
		m.LoadNext(context.Background())
		m.SetTyping("b")
		_ = m.SendMessage(context.Background())

		want := chat.Active(chat.Completed(), []chat.MessageGroup{{Header: "Today", Messages: []chat.Message{
			sent("1", "a", chat.Other("Alice"), "07:00"),
			mine("srv-1", "b", chat.Sent("09:30")),
		}}})
		if got := m.State(); !got.Equal(want) {
			t.Errorf("state = %v, want %v", got, want)
		}
	})

	t.Run("joins newest group of an earlier day", func(t *testing.T) {
		feed := &chattest.MockFeed{
			LoadMessagesFunc: chattest.Pages([]chat.RawMessage{chattest.Raw("1", "a", "2024-12-31T07:00:00Z", "Alice")}),
			SendMessageFunc:  ok,
		}
		m, _ := newModel(t, feed, chat.Options{})
		m.LoadNext(context.Background())
		m.SetTyping("b")
		_ = m.SendMessage(context.Background())

		want := chat.Active(chat.Completed(), []chat.MessageGroup{
			{Header: "31 December", Messages: []chat.Message{
				sent("1", "a", chat.Other("Alice"), "07:00"),
				mine("srv-1", "b", chat.Sent("09:30")),
			}},
		})
		if got := m.State(); !got.Equal(want) {
			t.Errorf("state = %v, want %v", got, want)
		}
	})

	t.Run("opens today group when enabled", func(t *testing.T) {
		feed := &chattest.MockFeed{
			LoadMessagesFunc: chattest.Pages([]chat.RawMessage{chattest.Raw("1", "a", "2024-12-31T07:00:00Z", "Alice")}),
			SendMessageFunc:  ok,
		}
		m, _ := newModel(t, feed, chat.Options{TodayGroupForSends: true})
		m.LoadNext(context.Background())
		m.SetTyping("b")
		_ = m.SendMessage(context.Background())

		want := chat.Active(chat.Completed(), []chat.MessageGroup{
			{Header: "31 December", Messages: []chat.Message{sent("1", "a", chat.Other("Alice"), "07:00")}},
			{Header: "Today", Messages: []chat.Message{mine("srv-1", "b", chat.Sent("09:30"))}},
		})
		if got := m.State(); !got.Equal(want) {
			t.Errorf("state = %v, want %v", got, want)
		}
	})
}

func TestHasMoreSurvivesSend(t *testing.T) {
	feed := &chattest.MockFeed{
		LoadMessagesFunc: chattest.Pages(
			[]chat.RawMessage{chattest.Raw("2", "new", "2025-01-10T07:00:00Z", "Alice")},
			[]chat.RawMessage{chattest.Raw("1", "old", "2025-01-09T07:00:00Z", "Alice")},
		),
		SendMessageFunc: func(context.Context, string) (string, error) { return "srv-1", nil },
	}
	m, _ := newModel(t, feed, chat.Options{})
	if !m.HasMore() {
		t.Fatal("HasMore() = false before any load")
	}

	m.LoadNext(context.Background())
	m.SetTyping("hi")
	_ = m.SendMessage(context.Background())
	if got := m.State().Loading.Kind; got != chat.LoadingCompleted {
		t.Errorf("loading after send = %v, want completed", m.State().Loading)
	}
	if !m.HasMore() {
		t.Error("HasMore() = false after a send, want the feed's moreExists")
	}

	m.LoadNext(context.Background())
	if m.HasMore() {
		t.Error("HasMore() = true after the last page")
	}
	if got := feed.RequestedPages(); len(got) != 2 || got[1] != 2 {
		t.Errorf("requested pages = %v, want [1 2]", got)
	}
}

func TestHasMoreUnchangedByFailure(t *testing.T) {
	feed := &chattest.MockFeed{LoadMessagesFunc: func(context.Context, int) (*chat.Page, error) {
		return nil, errTimeout
	}}
	m, _ := newModel(t, feed, chat.Options{})
	m.LoadNext(context.Background())
	if !m.HasMore() {
		t.Error("HasMore() = false after a failed load")
	}
}

func TestConcurrentOperationsAreSerialized(t *testing.T) {
	feed := &chattest.MockFeed{LoadMessagesFunc: func(context.Context, int) (*chat.Page, error) {
		time.Sleep(time.Millisecond)
		return nil, errTimeout
	}}
	m, rec := newModel(t, feed, chat.Options{})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.LoadNext(context.Background())
		}()
	}
	wg.Wait()

	assertPages(t, feed, 1, 1, 1, 1, 1, 1, 1, 1)
	states := rec.States()[1:]
	if len(states) != 16 {
		t.Fatalf("got %d transitions, want 16", len(states))
	}
	for i, s := range states {
		want := chat.Active(chat.Loading(), nil)
		if i%2 == 1 {
			want = chat.Active(chat.LoadError(chat.LoadFailedMessage), nil)
		}
		if !s.Equal(want) {
			t.Errorf("transition %d = %v, want %v (interleaved operations)", i, s, want)
		}
	}
}

func TestModelPublishesBusEvents(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe(10, "chat.")
	defer unsub()

	feed := &chattest.MockFeed{
		LoadMessagesFunc: func(context.Context, int) (*chat.Page, error) { return nil, errTimeout },
		SendMessageFunc:  func(context.Context, string) (string, error) { return "srv-1", nil },
	}
	m, _ := newModel(t, feed, chat.Options{Bus: b})

	m.LoadNext(context.Background())
	m.SetTyping("hi")
	_ = m.SendMessage(context.Background())

	var kinds []string
	for range 2 {
		select {
		case evt := <-ch:
			kinds = append(kinds, evt.Kind)
			if evt.Kind == bus.KindSendAck {
				ack := evt.Payload.(bus.SendAck)
				if ack.PendingID != "sending-1" || ack.ServerID != "srv-1" {
					t.Errorf("ack = %+v, want sending-1 -> srv-1", ack)
				}
			}
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for bus event")
		}
	}
	if kinds[0] != bus.KindPageFailed || kinds[1] != bus.KindSendAck {
		t.Errorf("event kinds = %v, want [%s %s]", kinds, bus.KindPageFailed, bus.KindSendAck)
	}
}
