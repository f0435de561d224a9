//go:build unix

package agent

import (
	"os"
	"syscall"

	"github.com/speedwagon-io/trafo-telemetry/internal/lib/logger/sl"
)

func (r *ExecRestarter) exec() {
	path, err := os.Executable()
	if err != nil {
		r.Log.Error("failed to resolve executable", sl.Err(err))
		return
	}
	if err := syscall.Exec(path, os.Args, os.Environ()); err != nil {
		r.Log.Error("failed to exec", sl.Err(err))
	}
}
