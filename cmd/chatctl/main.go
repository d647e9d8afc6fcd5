// Command chatctl inspects and feeds a session's message feed from the shell.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/daychat/internal/config"
	"github.com/matheus3301/daychat/internal/feed"
	"github.com/matheus3301/daychat/internal/session"
	"github.com/spf13/cobra"
)

type globalOpts struct {
	session string
	json    bool
	timeout time.Duration
	cfg     *config.Config
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &globalOpts{}
	root := &cobra.Command{
		Use:           "chatctl",
		Short:         "Read and write a daychat message feed",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.LoadOrDefault(session.ConfigPath())
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.session = session.Resolve(opts.session, cfg)
			if opts.timeout <= 0 {
				opts.timeout = cfg.Feed.RequestTimeout.Duration
			}
			return session.ValidateName(opts.session)
		},
	}
	root.PersistentFlags().StringVar(&opts.session, "session", "", "session name (overrides config default)")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "output in JSON format")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "per-request timeout (default from config)")

	root.AddCommand(
		historyCmd(opts),
		sendCmd(opts),
		postCmd(opts),
		importCmd(opts),
		viewCmd(opts),
	)
	return root
}

// connect dials the session daemon and checks that it answers.
func (o *globalOpts) connect(ctx context.Context) (*feed.Client, error) {
	c, err := feed.Dial(session.SocketPath(o.session), o.timeout)
	if err != nil {
		return nil, err
	}
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("daemon for session %q is not running (start it with chatd --session %s): %w", o.session, o.session, err)
	}
	return c, nil
}
