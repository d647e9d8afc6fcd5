package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/matheus3301/daychat/internal/chat"
	"github.com/matheus3301/daychat/internal/dayfmt"
	"github.com/matheus3301/daychat/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func historyCmd(opts *globalOpts) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print one raw page of the feed (page 1 is the newest)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			p, err := c.LoadMessages(cmd.Context(), page)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(out, p)
			}
			for _, m := range p.Messages {
				sender := "you"
				if m.Sender != nil {
					sender = *m.Sender
				}
				fmt.Fprintf(out, "%s  %-12s %s\n", m.DateTime, sender, m.Text)
			}
			if p.MoreExists {
				fmt.Fprintf(out, "(older messages: chatctl history --page %d)\n", page+1)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number, counting back from the newest")
	return cmd
}

func sendCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "send TEXT",
		Short: "Send a message as the session owner",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			id, err := c.SendMessage(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printID(cmd.OutOrStdout(), opts.json, id)
		},
	}
}

func postCmd(opts *globalOpts) *cobra.Command {
	var (
		as string
		at string
	)
	cmd := &cobra.Command{
		Use:   "post --as NAME TEXT",
		Short: "Store a message from someone else",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var when time.Time
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				when = t
			}

			c, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			id, err := c.Post(cmd.Context(), as, strings.Join(args, " "), when)
			if err != nil {
				return err
			}
			return printID(cmd.OutOrStdout(), opts.json, id)
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "sender name")
	cmd.Flags().StringVar(&at, "at", "", "RFC 3339 timestamp (default now)")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

func importCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import a JSON array of feed messages (\"-\" reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msgs, err := readMessages(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			c, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			n, err := c.Import(cmd.Context(), msgs)
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), map[string]int{"imported": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d messages\n", n, len(msgs))
			return nil
		},
	}
}

func viewCmd(opts *globalOpts) *cobra.Command {
	var showMetrics bool
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Load the whole history and print it grouped by day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			loc, err := opts.cfg.Chat.Location()
			if err != nil {
				return err
			}
			reg := prometheus.NewRegistry()
			m := chat.NewModel(c, dayfmt.New(nil, loc), chat.Options{
				Metrics:               metrics.NewClient(reg),
				KeepGroupsOnEmptyPage: opts.cfg.Chat.KeepGroupsOnEmptyPage,
			})

			state, err := drainHistory(cmd.Context(), m)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.json {
				err = writeJSON(out, viewGroups(state))
			} else {
				printState(out, state)
			}
			if showMetrics {
				_ = printMetrics(cmd.ErrOrStderr(), reg)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print client counters to stderr")
	return cmd
}

func readMessages(stdin io.Reader, path string) ([]chat.RawMessage, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	var msgs []chat.RawMessage
	if err := json.NewDecoder(r).Decode(&msgs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return msgs, nil
}

func printID(w io.Writer, asJSON bool, id string) error {
	if asJSON {
		return writeJSON(w, map[string]string{"messageId": id})
	}
	_, err := fmt.Fprintln(w, id)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
