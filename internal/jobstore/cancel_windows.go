//go:build windows

package jobstore

import "os"

// signalProcess terminates pid. Windows has no SIGTERM equivalent exposed
// through os.Process, so cancellation there is a hard kill.
func signalProcess(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	if err := process.Kill(); err != nil {
		return nil
	}
	return nil
}
