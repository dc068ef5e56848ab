package watchdog

import (
	"context"

	"chitui/internal/process"
)

// Proc is the part of a process handle the supervisor relies on.
type Proc interface {
	Events() <-chan process.Event
	Terminate()
	Detach()
}

// Spawner starts commands for a supervisor.
type Spawner interface {
	Spawn(ctx context.Context, command string) Proc
}

// ProcessSpawner spawns real processes through the process channel.
type ProcessSpawner struct {
	Opts process.Options
}

func (s ProcessSpawner) Spawn(ctx context.Context, command string) Proc {
	return process.Spawn(ctx, command, s.Opts)
}
