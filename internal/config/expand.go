package config

import (
	"os"
	"regexp"
	"strings"
)

const (
	// EnvAppBin names the backend binary substituted for ${APP_BIN}.
	EnvAppBin     = "CHI_APP_BIN"
	defaultAppBin = "example-app"
)

var varPattern = regexp.MustCompile(`\$\{([A-Z0-9_]+)\}`)

// Expander substitutes ${VAR} references in command lines.
type Expander struct {
	// ConfigDir is substituted for ${CHI_TUI_CONFIG_DIR} when set.
	ConfigDir string
	// AppBin overrides CHI_APP_BIN from the environment.
	AppBin string
	// Lookup resolves everything else; defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

// Expand replaces every ${VAR}. Unknown variables expand to the empty string.
func (e Expander) Expand(cmdline string) string {
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return varPattern.ReplaceAllStringFunc(cmdline, func(match string) string {
		name := varPattern.FindStringSubmatch(match)[1]
		switch name {
		case "APP_BIN":
			bin := e.AppBin
			if bin == "" {
				bin, _ = lookup(EnvAppBin)
			}
			if bin == "" {
				return defaultAppBin
			}
			if strings.ContainsAny(bin, " \t\n") {
				return `"` + strings.ReplaceAll(bin, `"`, `\"`) + `"`
			}
			return bin
		case EnvConfigDir:
			if e.ConfigDir != "" {
				return e.ConfigDir
			}
		}
		v, _ := lookup(name)
		return v
	})
}

// Expand substitutes variables using only the process environment.
func Expand(cmdline string) string {
	return Expander{}.Expand(cmdline)
}
