package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/matheus3301/daychat/internal/bus"
	"github.com/matheus3301/daychat/internal/chat"
	"github.com/matheus3301/daychat/internal/config"
	"github.com/matheus3301/daychat/internal/dayfmt"
	"github.com/matheus3301/daychat/internal/feed"
	"github.com/matheus3301/daychat/internal/logging"
	"github.com/matheus3301/daychat/internal/session"
	"github.com/matheus3301/daychat/internal/tui"
	"go.uber.org/zap"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	flag.Parse()

	cfg, err := config.LoadOrDefault(session.ConfigPath())
	if err != nil {
		fail("error: %v", err)
	}
	sessionName := session.Resolve(*sessionFlag, cfg)
	if err := session.ValidateName(sessionName); err != nil {
		fail("error: %v", err)
	}

	lvl, _ := cfg.Log.ZapLevel()
	logger, err := logging.New(logging.Options{
		Path:    session.ClientLogPath(sessionName),
		Session: sessionName,
		Level:   lvl,
	})
	if err != nil {
		fail("open log: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	socketPath := session.SocketPath(sessionName)
	c, err := feed.Dial(socketPath, cfg.Feed.RequestTimeout.Duration)
	if err != nil {
		fail("connect to daemon: %v", err)
	}
	defer func() { _ = c.Close() }()

	// Probe daemon health; auto-start if needed.
	if !probe(c) {
		fmt.Fprintf(os.Stderr, "daemon not running for session %q, starting...\n", sessionName)
		if err := startDaemon(sessionName); err != nil {
			fail("failed to start daemon: %v", err)
		}
		if !waitForDaemon(c, 10*time.Second) {
			fail("daemon did not become ready")
		}
	}

	loc, err := cfg.Chat.Location()
	if err != nil {
		fail("error: %v", err)
	}
	b := bus.New()
	model := chat.NewModel(c, dayfmt.New(nil, loc), chat.Options{
		Logger:                logger.Named("chat"),
		Bus:                   b,
		KeepGroupsOnEmptyPage: cfg.Chat.KeepGroupsOnEmptyPage,
		TodayGroupForSends:    cfg.Chat.TodayGroupForSends,
	})

	app := tui.NewApp(model, b, sessionName, logger)
	if err := app.Run(); err != nil {
		logger.Error("tui exited", zap.Error(err))
		fail("error: %v", err)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func probe(c *feed.Client) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.Ping(ctx) == nil
}

func startDaemon(sessionName string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	chatd := filepath.Join(filepath.Dir(executable), "chatd")
	if _, err := os.Stat(chatd); err != nil {
		chatd = "chatd"
	}

	cmd := exec.Command(chatd, "--session", sessionName, "--quiet")
	// Inherit stderr so daemon startup errors are visible.
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

// waitForDaemon polls the daemon's health check until it answers or timeout
// passes.
func waitForDaemon(c *feed.Client, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if probe(c) {
			return true
		}
		time.Sleep(300 * time.Millisecond)
	}
	return false
}
