//go:build !unix

package agent

func (r *ExecRestarter) exec() {
	r.Log.Warn("exec restart unsupported on this platform, exiting")
}
