package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chi-tui",
	Short: "Config-driven terminal UI for command-line backends",
	Long: `chi-tui renders menus, viewers, forms and process watchdogs described by a
chi-index.yaml screen config. Every action runs a backend command and shows
its JSON or text output in a pane.

The config is discovered in $CHI_TUI_CONFIG_DIR, the working directory, its
.tui folder, any ancestor's .tui folder and finally ~/.tui.

Without a terminal on stdout (or with --headless) it runs a fixed number of
ticks, prints the final frame and optionally a JSON smoke summary.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. invalid config, failed commands)
	SilenceUsage: true,
	RunE:         runRoot,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "chi-tui version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	addRunFlags(rootCmd)
	rootCmd.PersistentFlags().Bool("debug", false, "Log at debug level")

	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newWatchdogCmd())
	rootCmd.AddCommand(newVersionCmd())
}
