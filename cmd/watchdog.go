package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"chitui/internal/config"
	"chitui/internal/watchdog"
	"chitui/pkg/logging"
)

var errWatchdogFailed = errors.New("watchdog finished with failed sections")

type watchdogFlags struct {
	commands       []string
	sequential     bool
	autoRestart    bool
	maxRetries     int
	restartDelayMs int
	stopOnFailure  bool
	allowedCodes   []int
	onPanic        string
	stats          []string
	externalCheck  string
	externalKill   string
}

func newWatchdogCmd() *cobra.Command {
	var f watchdogFlags
	c := &cobra.Command{
		Use:   "watchdog --cmd COMMAND [--cmd COMMAND ...]",
		Short: "Supervise commands without the terminal UI",
		Long: `Runs the watchdog supervisor on the given commands and prints their output
prefixed with the section number, until every section has finished or the
process is interrupted. Retry, sequential and stop-on-failure behave as in a
watchdog screen.

Example:
  chi-tui watchdog --cmd "make build" --cmd "make test" --sequential --stop-on-failure
  chi-tui watchdog --cmd ./server --auto-restart --max-retries 5 --stats errors=ERROR`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			logging.InitForCLI(logLevel(settings), cmd.ErrOrStderr())

			item, err := f.item(cmd)
			if err != nil {
				return err
			}
			if err := config.Validate(config.AppConfig{Menu: []config.MenuItem{item}}); err != nil {
				return err
			}
			expand := settings.Expander().Expand
			return runWatchdog(cmd, item, expand, settings.TickInterval())
		},
	}

	flags := c.Flags()
	flags.StringArrayVar(&f.commands, "cmd", nil, "Command to supervise; repeat for more sections")
	flags.BoolVar(&f.sequential, "sequential", false, "Run sections one after another")
	flags.BoolVar(&f.autoRestart, "auto-restart", false, "Restart a section after a failed exit")
	flags.IntVar(&f.maxRetries, "max-retries", 0, "Restarts before a section panics")
	flags.IntVar(&f.restartDelayMs, "restart-delay-ms", 0, "Delay before each restart")
	flags.BoolVar(&f.stopOnFailure, "stop-on-failure", false, "In sequential mode, abort the remaining sections after a panic")
	flags.IntSliceVar(&f.allowedCodes, "allowed-exit-code", nil, "Exit code treated as success; repeatable (default 0)")
	flags.StringVar(&f.onPanic, "on-panic", "", "Command run once when a section panics")
	flags.StringArrayVar(&f.stats, "stats", nil, "LABEL=REGEX counted across all output; repeatable")
	flags.StringVar(&f.externalCheck, "external-check", "", "Observe an external process with this check command instead of spawning")
	flags.StringVar(&f.externalKill, "external-kill", "", "Command that stops the external process")
	return c
}

// item expresses the flags as a watchdog menu item so the CLI shares
// validation and policy with screen configs.
func (f watchdogFlags) item(cmd *cobra.Command) (config.MenuItem, error) {
	item := config.MenuItem{
		ID:               "watchdog",
		Title:            "watchdog",
		Widget:           config.WidgetWatchdog,
		Commands:         f.commands,
		Sequential:       f.sequential,
		AutoRestart:      f.autoRestart,
		MaxRetries:       f.maxRetries,
		RestartDelayMs:   f.restartDelayMs,
		StopOnFailure:    f.stopOnFailure,
		OnPanicExitCmd:   f.onPanic,
		ExternalCheckCmd: f.externalCheck,
		ExternalKillCmd:  f.externalKill,
	}
	if cmd.Flags().Changed("allowed-exit-code") {
		item.AllowedExitCodes = f.allowedCodes
	}
	for _, s := range f.stats {
		label, re, ok := strings.Cut(s, "=")
		if !ok || label == "" || re == "" {
			return config.MenuItem{}, fmt.Errorf("invalid --stats %q, want LABEL=REGEX", s)
		}
		item.Stats = append(item.Stats, config.StatSpec{Label: label, Regexp: re})
	}
	if len(item.Commands) == 0 && item.ExternalCheckCmd == "" {
		return config.MenuItem{}, errors.New("at least one --cmd is required")
	}
	return item, nil
}

func runWatchdog(cmd *cobra.Command, item config.MenuItem, expand func(string) string, tick time.Duration) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	sup, err := watchdog.FromItem(ctx, item, nil, expand, watchdog.WithLineHook(func(section int, line string) {
		fmt.Fprintf(out, "[%d] %s\n", section+1, line)
	}))
	if err != nil {
		return err
	}
	defer sup.Close()

	sup.Start(time.Now())
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for !sup.Settled() {
		select {
		case <-ctx.Done():
			// An observed external process is left running.
			if !sup.External() {
				logging.Info(cliSubsystem, "interrupted, stopping %d section(s)", len(sup.Sections()))
				sup.Stop(time.Now())
				drainAfterStop(sup, tick)
			}
			printSummary(out, sup)
			return nil
		case now := <-ticker.C:
			sup.Poll(now)
		}
	}
	printSummary(out, sup)

	for _, sec := range sup.Sections() {
		switch sec.State() {
		case watchdog.StatePanicked, watchdog.StateAborted, watchdog.StateFailed:
			return errWatchdogFailed
		}
	}
	return nil
}

// drainAfterStop polls until stopped processes have reported their exit,
// or a second has passed.
func drainAfterStop(sup *watchdog.Supervisor, tick time.Duration) {
	deadline := time.Now().Add(time.Second)
	for sup.Running() && time.Now().Before(deadline) {
		time.Sleep(tick)
		sup.Poll(time.Now())
	}
}

func printSummary(out io.Writer, sup *watchdog.Supervisor) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "STATE", "RUNS", "RETRIES", "LAST EXIT", "COMMAND"})
	for _, sec := range sup.Sections() {
		t.AppendRow(table.Row{sec.Index() + 1, formatState(sec.State()), sec.Runs(), sec.Retries(), sec.LastExit(), sec.Command()})
	}
	t.Render()

	if sup.Stats().Len() == 0 {
		return
	}
	parts := make([]string, 0, sup.Stats().Len())
	for _, c := range sup.Stats().Counts() {
		parts = append(parts, fmt.Sprintf("%s=%d", c.Label, c.Count))
	}
	fmt.Fprintf(out, "%s %s\n", text.FgHiBlue.Sprint("stats:"), strings.Join(parts, " "))
}

func formatState(s watchdog.State) string {
	switch s {
	case watchdog.StateSucceeded, watchdog.StateRunning, watchdog.StateExternalRunning:
		return text.FgGreen.Sprint(s.String())
	case watchdog.StateFailed, watchdog.StatePanicked, watchdog.StateAborted:
		return text.FgRed.Sprint(s.String())
	case watchdog.StateRetrying:
		return text.FgYellow.Sprint(s.String())
	default:
		return text.FgHiBlack.Sprint(s.String())
	}
}
