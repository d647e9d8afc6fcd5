package session

import (
	"os"
	"path/filepath"
)

// HomeEnv overrides the base directory when set.
const HomeEnv = "DAYCHAT_HOME"

// BaseDir returns $DAYCHAT_HOME, or ~/.daychat.
func BaseDir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".daychat")
}

// Dir returns the session-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "sessions", name)
}

// SocketPath returns the feed daemon's Unix socket for a session.
func SocketPath(name string) string {
	return filepath.Join(Dir(name), "chatd.sock")
}

// LockPath returns the daemon lock file for a session.
func LockPath(name string) string {
	return filepath.Join(Dir(name), "chatd.lock")
}

// FeedDBPath returns the session's message store.
func FeedDBPath(name string) string {
	return filepath.Join(Dir(name), "feed.db")
}

// LogDir returns the log directory for a session.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// DaemonLogPath returns the feed daemon log file.
func DaemonLogPath(name string) string {
	return filepath.Join(LogDir(name), "chatd.log")
}

// ClientLogPath returns the terminal client log file.
func ClientLogPath(name string) string {
	return filepath.Join(LogDir(name), "chattui.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the session directory tree with owner-only permissions.
func EnsureDir(name string) error {
	for _, d := range []string{Dir(name), LogDir(name)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
