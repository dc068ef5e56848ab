package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"chitui/internal/config"
	"chitui/internal/engine"
	"chitui/internal/tui"
	"chitui/internal/tui/design"
	"chitui/pkg/logging"
)

const cliSubsystem = "CLI"

// Size of the frame rendered in headless mode when stdout has no terminal.
const (
	headlessWidth  = 80
	headlessHeight = 24
)

func addRunFlags(c *cobra.Command) {
	d := config.DefaultSettings()
	c.PersistentFlags().String("config-dir", "", "Directory containing chi-index.yaml (env CHI_TUI_CONFIG_DIR)")
	c.Flags().Bool("headless", false, "Run without a terminal UI (env CHI_TUI_HEADLESS)")
	c.Flags().Int("ticks", d.Ticks, "Ticks to run in headless mode (env CHI_TUI_TICKS)")
	c.Flags().String("headless-enter-id", "", "Menu item opened at the start of a headless run (env CHI_TUI_HEADLESS_ENTER_ID)")
	c.Flags().Bool("smoke-summary", false, "Print a JSON summary after a headless run (env CHI_TUI_SMOKE_SUMMARY)")
	c.Flags().Int("options-ttl-sec", d.OptionsTTLSec, "Seconds command output used as options stays cached, 0 disables (env CHI_TUI_OPTIONS_TTL_SEC)")
	c.Flags().Int("tick-ms", d.TickMs, "Main loop tick in milliseconds (env CHI_TUI_TICK_MS)")
}

// loadSettings resolves runtime settings from defaults, CHI_TUI_* variables
// and the flags of c, in that order of precedence.
func loadSettings(c *cobra.Command) (config.Settings, error) {
	loader := config.NewSettingsLoader()
	if err := loader.BindFlags(c.Flags()); err != nil {
		return config.Settings{}, err
	}
	return loader.Load()
}

func logLevel(s config.Settings) logging.LogLevel {
	if s.Debug {
		return logging.LevelDebug
	}
	return logging.LevelInfo
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func runRoot(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	headless := settings.Headless || !stdoutIsTerminal()

	var logs <-chan logging.LogEntry
	if headless {
		logging.InitForCLI(logLevel(settings), cmd.ErrOrStderr())
	} else {
		logs = logging.InitForTUI(logLevel(settings))
		defer logging.CloseTUIChannel()
	}

	cfg, err := config.Load(settings.ConfigDir)
	if err != nil {
		return err
	}
	logging.Info(cliSubsystem, "loaded %s (%d menu items)", cfg.Source, len(cfg.Menu))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := engine.New(ctx, engine.Options{Config: cfg, Settings: settings})
	defer e.Close()

	if headless {
		return runHeadless(ctx, cmd.OutOrStdout(), e, settings)
	}
	return runTUI(e, settings, logs, cfg.Source)
}

func runHeadless(ctx context.Context, out io.Writer, e *engine.Engine, settings config.Settings) error {
	width, height := headlessWidth, headlessHeight
	if stdoutIsTerminal() {
		if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width, height = w, h
		}
	}
	e.Tick([]engine.Input{engine.ResizeInput{Width: width, Height: height}})

	summary := engine.RunHeadless(ctx, e, engine.HeadlessOptions{
		Ticks:    settings.Ticks,
		Interval: settings.TickInterval(),
		EnterID:  settings.HeadlessEnterID,
	})
	if !summary.OK {
		logging.Warn(cliSubsystem, "headless run finished with errors (view %s)", summary.View)
	}

	fmt.Fprintln(out, e.View())
	if settings.SmokeSummary {
		if err := json.NewEncoder(out).Encode(summary); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}
	return nil
}

func runTUI(e *engine.Engine, settings config.Settings, logs <-chan logging.LogEntry, source string) error {
	design.Initialize(lipgloss.HasDarkBackground())

	opts := tui.Options{Interval: settings.TickInterval(), Logs: logs}
	if source != "" {
		watcher, err := config.Watch(source)
		if err != nil {
			logging.Warn(cliSubsystem, "config hot reload disabled: %v", err)
		} else {
			defer watcher.Close()
			opts.Changes = watcher.Changes()
		}
	}

	if _, err := tui.NewProgram(e, opts).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
