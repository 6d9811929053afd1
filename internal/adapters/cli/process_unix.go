//go:build !windows

package cli

import (
	"os/exec"
	"syscall"
)

// configureProcAttr sets up process group isolation so a killed parent
// doesn't leave orphaned grandchildren behind when ctx is cancelled.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
