// Package tui drives the engine from a Bubble Tea program.
//
// The program owns no screen state of its own. Every terminal message is
// turned into an engine input and handed to Engine.Tick, which applies it
// before any background outcome of the same pass. Rendering is Engine.View.
//
// # Message Flow
//
//  1. Key presses and resizes become KeyInput and ResizeInput.
//  2. A repeating tick message (200ms by default) runs a pass with no input
//     so watchdog output, restart timers and toasts advance.
//  3. A wake message fires when the effect scheduler queues an outcome, so
//     finished commands show up without waiting for the next tick.
//  4. Log entries from pkg/logging feed the debug pane (ctrl+d).
//  5. Changes reported by the config watcher become ReloadInput.
//
// # Usage Example
//
//	e := engine.New(ctx, engine.Options{Config: cfg, Settings: settings})
//	defer e.Close()
//	p := tui.NewProgram(e, tui.Options{Interval: settings.TickInterval(), Logs: logs})
//	if _, err := p.Run(); err != nil {
//	    return err
//	}
package tui
