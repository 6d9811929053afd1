//go:build !windows

package jobstore

import (
	"errors"
	"os"
	"syscall"
)

// signalProcess sends SIGTERM to pid, tolerating a process that has
// already exited.
func signalProcess(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return err
	}
	return nil
}
