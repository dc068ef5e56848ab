package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	// IndexFileName is the screen config looked up during discovery.
	IndexFileName = "chi-index.yaml"
	tuiDirName    = ".tui"

	// EnvConfigDir overrides discovery with an explicit directory.
	EnvConfigDir = "CHI_TUI_CONFIG_DIR"
)

// ErrNotFound is returned when no chi-index.yaml exists in any search location.
var ErrNotFound = errors.New("no " + IndexFileName + " found")

// Candidates lists the paths searched for chi-index.yaml, highest priority first:
// the explicit config dir, the working directory, its .tui folder, every
// ancestor's .tui folder and finally ~/.tui.
func Candidates(configDir string) []string {
	var paths []string
	if configDir != "" {
		paths = append(paths, filepath.Join(configDir, IndexFileName))
	}

	if wd, err := osGetwd(); err == nil {
		paths = append(paths,
			filepath.Join(wd, IndexFileName),
			filepath.Join(wd, tuiDirName, IndexFileName),
		)
		dir := filepath.Dir(wd)
		for {
			paths = append(paths, filepath.Join(dir, tuiDirName, IndexFileName))
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	if home, err := osUserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, tuiDirName, IndexFileName))
	}
	return dedupe(paths)
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// Discover returns the first existing chi-index.yaml.
func Discover(configDir string) (string, error) {
	for _, path := range Candidates(configDir) {
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", ErrNotFound
}

// Load discovers, parses and validates the screen config.
func Load(configDir string) (AppConfig, error) {
	path, err := Discover(configDir)
	if err != nil {
		return AppConfig{}, err
	}
	return LoadFile(path)
}

// LoadFile parses and validates a single screen config file.
func LoadFile(path string) (AppConfig, error) {
	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return AppConfig{}, fmt.Errorf("error loading config from %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return AppConfig{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a screen config from raw YAML without validating it.
func Parse(data []byte) (AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, err
	}
	if cfg.Header == "" {
		cfg.Header = "CHI TUI"
	}
	return cfg, nil
}

func loadConfigFromFile(filePath string) (AppConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return AppConfig{}, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return AppConfig{}, err
	}
	cfg.Source = filePath
	return cfg, nil
}

// ResolvePath resolves a config-relative path: absolute paths are kept,
// relative ones are joined to configDir, or to the working directory when
// configDir is empty.
func ResolvePath(configDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if configDir != "" {
		return filepath.Join(configDir, path)
	}
	if wd, err := osGetwd(); err == nil {
		return filepath.Join(wd, path)
	}
	return path
}
