package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"chitui/internal/config"
	"chitui/pkg/logging"
)

// errInvalidConfig is returned after the problems have been printed, so
// cobra only sets the exit code.
var errInvalidConfig = errors.New("config is invalid")

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a chi-index.yaml screen config",
		Long: `Discovers chi-index.yaml the same way the UI does, parses it and checks
it: duplicate ids, widgets missing their sources, retry limits, stats
patterns and panel sizes. Every problem is printed; the exit code is 1
when any is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			logging.InitForCLI(logLevel(settings), cmd.ErrOrStderr())

			path, err := config.Discover(settings.ConfigDir)
			if err != nil {
				return err
			}
			cfg, err := config.LoadFile(path)
			out := cmd.OutOrStdout()
			if err != nil {
				var problems config.ValidationErrors
				if !errors.As(err, &problems) {
					return err
				}
				fmt.Fprintf(out, "%s: %d problem(s)\n", path, len(problems))
				for _, p := range problems {
					fmt.Fprintf(out, "  - %s\n", p)
				}
				cmd.SilenceErrors = true
				return errInvalidConfig
			}
			fmt.Fprintf(out, "%s: ok (%d menu items, %d tabs)\n", path, countItems(cfg.Menu), len(cfg.HorizontalMenu))
			return nil
		},
	}
}

func countItems(items []config.MenuItem) int {
	n := len(items)
	for _, item := range items {
		n += countItems(item.Children)
	}
	return n
}
