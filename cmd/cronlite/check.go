package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"cronlite/internal/app"
	"cronlite/internal/config"
	"cronlite/internal/schedule"
)

// Accepted --at layouts, most specific first.
var atLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"}

func newCheckCmd(root *rootOptions) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "check [schedule-file]",
		Short: "Parse a schedule and show which entries are due",
		Long: `check parses the schedule file and prints every entry with whether it is
due at the given time (default: now). No command is executed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := parseAt(at)
			if err != nil {
				return err
			}
			cfg, err := config.NewConfigManager(root.configPath).Parse()
			if err != nil {
				return err
			}
			path, err := app.ResolveSchedulePath(firstArg(args), cfg.Schedule)
			if err != nil {
				return err
			}
			entries, err := schedule.ReadFile(path)
			if err != nil {
				return err
			}
			return printCheck(cmd.OutOrStdout(), entries, when)
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "evaluate at this local time, e.g. 2026-01-05T09:00")
	return cmd
}

func parseAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now(), nil
	}
	for _, layout := range atLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --at %q (use e.g. 2026-01-05T09:00)", raw)
}

func printCheck(w io.Writer, entries []schedule.Entry, at time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "# at %s (weekday %d)\n", at.Format("2006-01-02 15:04 Mon"), schedule.WeekdayOf(at))
	fmt.Fprintln(tw, "LINE\tSTATUS\tENTRY")
	for _, e := range entries {
		status := "-"
		due, err := e.IsDue(at)
		switch {
		case err != nil:
			status = "invalid: " + err.Error()
		case due:
			status = "due"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", e.Line, status, e.String())
	}
	return tw.Flush()
}
