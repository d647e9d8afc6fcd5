package session

import (
	"os"

	"github.com/matheus3301/daychat/internal/config"
)

const DefaultSessionName = "main"

// SessionEnv names the session when no --session flag is given.
const SessionEnv = "DAYCHAT_SESSION"

// Resolve picks the active session: the --session flag, then $DAYCHAT_SESSION,
// then the config default, then "main". The result is not validated.
func Resolve(flagOverride string, cfg *config.Config) string {
	candidates := []string{flagOverride, os.Getenv(SessionEnv)}
	if cfg != nil {
		candidates = append(candidates, cfg.DefaultSession)
	}
	for _, name := range candidates {
		if name != "" {
			return name
		}
	}
	return DefaultSessionName
}
