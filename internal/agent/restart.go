package agent

import (
	"log/slog"
	"os"
)

// Restarter is the platform's system-reset capability.
type Restarter interface {
	Restart(reason string)
}

// ExitRestarter terminates the process and leaves the restart to the
// supervisor (systemd Restart=always, a container runtime).
type ExitRestarter struct {
	Log    *slog.Logger
	Code   int
	Before func()
}

func (r *ExitRestarter) Restart(reason string) {
	if r.Before != nil {
		r.Before()
	}
	r.Log.Info("exiting for restart", slog.String("reason", reason), slog.Int("code", r.Code))
	os.Exit(r.Code)
}

// ExecRestarter replaces the running process image with a fresh copy of the
// same binary and arguments. If exec fails it exits with status 1.
type ExecRestarter struct {
	Log    *slog.Logger
	Before func()
}

func (r *ExecRestarter) Restart(reason string) {
	if r.Before != nil {
		r.Before()
	}
	r.Log.Info("re-executing for restart", slog.String("reason", reason))
	r.exec()
	os.Exit(1)
}
