// Package config loads and validates chi-tui screen configuration.
//
// A screen is described by a chi-index.yaml file. Discovery checks, in order:
//
//  1. $CHI_TUI_CONFIG_DIR/chi-index.yaml
//  2. ./chi-index.yaml
//  3. ./.tui/chi-index.yaml
//  4. <ancestor>/.tui/chi-index.yaml for every parent of the working directory
//  5. ~/.tui/chi-index.yaml
//
// # Screen file
//
//	header: "Demo"
//	auto_enter: logs
//	horizontal_menu:
//	  - id: ops
//	    title: Ops
//	    config: ops.yaml
//	menu:
//	  - id: status
//	    title: Status
//	    command: ${APP_BIN} status --json
//	  - id: logs
//	    title: Services
//	    widget: watchdog
//	    commands: ["${APP_BIN} api", "${APP_BIN} worker"]
//	    auto_restart: true
//	    max_retries: 3
//	    restart_delay_ms: 500
//	    stats:
//	      - label: Errors
//	        regexp: ERROR
//
// Commands are expanded with Expander before they run: ${APP_BIN} resolves to
// CHI_APP_BIN or "example-app", ${CHI_TUI_CONFIG_DIR} to the config directory
// and any other ${NAME} to the environment.
//
// Runtime settings (headless mode, tick rate, options cache TTL) are separate
// from the screen file and come from CHI_TUI_* variables and flags; see
// SettingsLoader. Watcher reloads the screen file when it changes on disk.
package config
