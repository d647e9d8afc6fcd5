package chat

import "fmt"

// LoadingKind enumerates pagination progress.
type LoadingKind uint8

const (
	LoadingCanLoadMore LoadingKind = iota + 1
	LoadingInProgress
	LoadingError
	LoadingCompleted
)

// LoadingState is the pagination status carried by an active view. Err is
// only set for LoadingError and is always the fixed user-facing message.
type LoadingState struct {
	Kind LoadingKind
	Err  string
}

func CanLoadMore() LoadingState { return LoadingState{Kind: LoadingCanLoadMore} }

func Loading() LoadingState { return LoadingState{Kind: LoadingInProgress} }

func LoadError(msg string) LoadingState { return LoadingState{Kind: LoadingError, Err: msg} }

func Completed() LoadingState { return LoadingState{Kind: LoadingCompleted} }

func (l LoadingState) String() string {
	switch l.Kind {
	case LoadingCanLoadMore:
		return "can_load_more"
	case LoadingInProgress:
		return "loading"
	case LoadingError:
		return fmt.Sprintf("error(%q)", l.Err)
	case LoadingCompleted:
		return "completed"
	default:
		return fmt.Sprintf("loading_state(%d)", uint8(l.Kind))
	}
}

// ViewKind enumerates the root view states.
type ViewKind uint8

const (
	ViewIdle ViewKind = iota + 1
	ViewNoContent
	ViewActive
)

// ViewState is the single source of truth handed to the rendering layer.
// Loading and Groups are only meaningful for ViewActive. A published
// ViewState is never mutated afterwards.
type ViewState struct {
	Kind    ViewKind
	Loading LoadingState
	Groups  []MessageGroup
}

// Idle is the state before anything was requested.
func Idle() ViewState { return ViewState{Kind: ViewIdle} }

// NoContent is the state after the feed reported an empty history.
func NoContent() ViewState { return ViewState{Kind: ViewNoContent} }

// Active is the normal operating state.
func Active(ls LoadingState, groups []MessageGroup) ViewState {
	return ViewState{Kind: ViewActive, Loading: ls, Groups: groups}
}

// Equal compares two states structurally. Nil and empty group lists are equal.
func (v ViewState) Equal(o ViewState) bool {
	if v.Kind != o.Kind {
		return false
	}
	if v.Kind != ViewActive {
		return true
	}
	if v.Loading != o.Loading || len(v.Groups) != len(o.Groups) {
		return false
	}
	for i := range v.Groups {
		if !v.Groups[i].Equal(o.Groups[i]) {
			return false
		}
	}
	return true
}

func (v ViewState) String() string {
	switch v.Kind {
	case ViewIdle:
		return "idle"
	case ViewNoContent:
		return "no_content"
	case ViewActive:
		headers := make([]string, len(v.Groups))
		for i, g := range v.Groups {
			headers[i] = fmt.Sprintf("%s:%d", g.Header, len(g.Messages))
		}
		return fmt.Sprintf("active(%s, %v)", v.Loading, headers)
	default:
		return fmt.Sprintf("view_state(%d)", uint8(v.Kind))
	}
}

// groups returns the displayed groups, or nil outside ViewActive.
func (v ViewState) groups() []MessageGroup {
	if v.Kind != ViewActive {
		return nil
	}
	return v.Groups
}

// Find returns the message with the given ID and its position.
func (v ViewState) Find(id string) (msg Message, group, index int, ok bool) {
	for gi, g := range v.groups() {
		for mi, m := range g.Messages {
			if m.ID == id {
				return m, gi, mi, true
			}
		}
	}
	return Message{}, -1, -1, false
}
