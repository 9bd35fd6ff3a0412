package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cronlite/internal/app"
	logx "cronlite/pkg/logx"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "cronlite [schedule-file]",
		Short: "Run commands from a crontab-style schedule file",
		Long: `cronlite re-reads a crontab-style schedule file every poll interval and
launches the commands whose five time fields match the current minute.

Each line is: <minute> <hour> <day> <month> <weekday> <command...>
Weekdays are numbered 0=Monday .. 6=Sunday. Lines with fewer than six
fields are ignored.

Without an argument the schedule is read from crontab.txt next to the
executable. Only one cronlite may run per host.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScheduler(cmd.Context(), opts, firstArg(args))
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "optional settings file (json or yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level (trace, debug, info, warn, error)")
	cmd.AddCommand(newCheckCmd(opts))
	return cmd
}

func runScheduler(parent context.Context, opts *rootOptions, schedulePath string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(app.Options{
		SchedulePath: schedulePath,
		ConfigPath:   opts.configPath,
		LogLevel:     opts.logLevel,
	})
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.Logger()

	if err := a.CheckInstance(ctx); err != nil {
		log.Error("Another Process Running", logx.Err(err))
		return err
	}

	log.Info("cronlite starting", logx.String("schedule", a.SchedulePath()), logx.Int("pid", os.Getpid()))
	return a.Run(ctx)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
