//go:build !windows

package fsutil

import (
	"os"

	"github.com/google/renameio/v2"
)

// AtomicWriteFile writes data to path atomically: job.json, run manifests,
// and artifact markers are all full-file rewrites (spec.md §5, "every
// mutation to a job record is a full file rewrite"), so a crash mid-write
// can never leave a torn file behind.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(path, data, perm)
}
