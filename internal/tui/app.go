// Package tui is the terminal chat client. It renders the observable chat
// state and forwards key presses to chat.Model operations.
package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/daychat/internal/bus"
	"github.com/matheus3301/daychat/internal/chat"
	"github.com/matheus3301/daychat/internal/tui/keys"
	"github.com/matheus3301/daychat/internal/tui/ui"
	"github.com/matheus3301/daychat/internal/tui/views"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

const (
	scopeHistory  = "history"
	scopeComposer = "composer"

	flashDuration = 5 * time.Second
)

// App is the main TUI application shell.
type App struct {
	app       *tview.Application
	model     *chat.Model
	bus       *bus.Bus
	logger    *zap.Logger
	registry  *keys.Registry
	chatView  *views.ChatView
	composer  *views.Composer
	statusBar *views.StatusBar
	flash     flash
	ctx       context.Context
	cancel    context.CancelFunc

	mu     sync.Mutex
	latest chat.ViewState
	dirty  chan struct{}
	unsub  func()
}

// NewApp creates the TUI for model. b may be nil.
func NewApp(model *chat.Model, b *bus.Bus, sessionName string, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:       tview.NewApplication(),
		model:     model,
		bus:       b,
		logger:    logger,
		registry:  keys.NewRegistry(),
		chatView:  views.NewChatView(theme, sessionName),
		composer:  views.NewComposer(theme),
		statusBar: views.NewStatusBar(theme),
		ctx:       ctx,
		cancel:    cancel,
		dirty:     make(chan struct{}, 1),
	}

	a.statusBar.SetSession(sessionName)
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	a.registry.Global(keys.Binding{Key: tcell.KeyTab, Handler: a.toggleFocus})

	a.registry.Scoped(scopeHistory, keys.Binding{
		Key: tcell.KeyRune, Rune: 'i', Hint: "i:compose",
		Handler: func() { a.focus(scopeComposer) },
	})
	a.registry.Scoped(scopeHistory, keys.Binding{
		Key: tcell.KeyRune, Rune: 'l', Hint: "l:older",
		Handler: a.loadOlder,
	})
	a.registry.Scoped(scopeHistory, keys.Binding{
		Key: tcell.KeyRune, Rune: 'r', Hint: "r:retry",
		Handler: a.retryNewestFailed,
	})
	a.registry.Scoped(scopeHistory, keys.Binding{
		Key: tcell.KeyRune, Rune: 'q', Hint: "q:quit",
		Handler: a.Stop,
	})

	a.registry.Scoped(scopeComposer, keys.Binding{
		Key: tcell.KeyEscape, Hint: "esc:history",
		Handler: func() { a.focus(scopeHistory) },
	})
}

func (a *App) setupCallbacks() {
	a.composer.SetOnChange(a.model.SetTyping)
	a.composer.SetOnSend(func() {
		a.composer.Reset()
		go func() {
			err := a.model.SendMessage(a.ctx)
			if err != nil && !errors.Is(err, chat.ErrEmptyMessage) {
				a.setFlash("Send failed: " + err.Error())
			}
		}()
	})
}

func (a *App) setupLayout() {
	chatFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.chatView, 0, 1, true).
		AddItem(a.composer, 3, 0, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(chatFlex, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)
	a.statusBar.SetHints(a.registry.Hints(scopeHistory))

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if a.registry.Handle(a.scope(), event) {
			return nil
		}
		return event
	})
}

func (a *App) scope() string {
	if a.app.GetFocus() == a.composer.InputField {
		return scopeComposer
	}
	return scopeHistory
}

func (a *App) focus(scope string) {
	if scope == scopeComposer {
		a.app.SetFocus(a.composer.InputField)
	} else {
		a.app.SetFocus(a.chatView)
	}
	a.statusBar.SetHints(a.registry.Hints(scope))
}

func (a *App) toggleFocus() {
	if a.scope() == scopeComposer {
		a.focus(scopeHistory)
	} else {
		a.focus(scopeComposer)
	}
}

// loadOlder requests the next page unless a load is already running or the
// feed reported no older history. A send publishes Completed, so the loading
// state alone cannot tell whether older pages exist.
func (a *App) loadOlder() {
	s := a.model.State()
	if s.Kind == chat.ViewActive && s.Loading.Kind == chat.LoadingInProgress {
		return
	}
	if s.Kind != chat.ViewIdle && !a.model.HasMore() {
		return
	}
	go a.model.LoadNext(a.ctx)
}

func (a *App) retryNewestFailed() {
	msg, ok := newestFailed(a.model.State())
	if !ok {
		a.flash.Set("Nothing to retry", flashDuration)
		a.statusBar.SetFlash(a.flash.Get())
		return
	}
	go func() {
		if err := a.model.Retry(a.ctx, msg); err != nil {
			a.setFlash("Retry failed: " + err.Error())
		}
	}()
}

// setFlash shows msg from a background goroutine.
func (a *App) setFlash(msg string) {
	a.flash.Set(msg, flashDuration)
	a.app.QueueUpdateDraw(func() {
		a.statusBar.SetFlash(a.flash.Get())
	})
}

// onState runs on the goroutine publishing the transition, so it only
// records the state and signals the render loop.
func (a *App) onState(s chat.ViewState) {
	a.mu.Lock()
	a.latest = s
	a.mu.Unlock()
	select {
	case a.dirty <- struct{}{}:
	default:
	}
}

func (a *App) renderLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.dirty:
			a.mu.Lock()
			s := displayState(a.latest, a.model.HasMore())
			a.mu.Unlock()
			markup, status := RenderState(s), statusLabel(s)
			a.app.QueueUpdateDraw(func() {
				a.chatView.SetContent(markup)
				a.statusBar.SetStatus(status)
			})
		case <-ticker.C:
			a.app.QueueUpdateDraw(func() {
				a.statusBar.SetFlash(a.flash.Get())
			})
		}
	}
}

func (a *App) watchEvents() {
	if a.bus == nil {
		return
	}
	events, unsub := a.bus.Subscribe(16, bus.KindSendFailed, bus.KindPageFailed)
	defer unsub()
	for {
		select {
		case <-a.ctx.Done():
			return
		case evt := <-events:
			switch p := evt.Payload.(type) {
			case bus.SendFailed:
				a.setFlash("Message not sent. Press r to retry")
			case bus.PageFailed:
				a.setFlash(fmt.Sprintf("Could not load page %d", p.Page))
			}
		}
	}
}

// Run starts the TUI and blocks until the user quits.
func (a *App) Run() error {
	a.unsub = a.model.Subscribe(a.onState)
	defer a.unsub()

	go a.renderLoop()
	go a.watchEvents()
	go a.model.LoadNext(a.ctx)

	a.logger.Info("tui started")
	err := a.app.Run()
	a.cancel()
	return err
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
