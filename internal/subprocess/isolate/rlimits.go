//go:build linux

package isolate

import (
	"golang.org/x/sys/unix"

	"github.com/cordio/taskd/internal/model"
)

// ApplyRlimits sets RLIMIT_NOFILE/RLIMIT_FSIZE/RLIMIT_CORE on the calling
// process. It must be called after the re-exec init has taken over the
// child's process image and before it hands off to the target binary (see
// reexec.go); by that point it is a plain process-wide syscall, no
// different from any other process adjusting its own limits.
func ApplyRlimits(cfg *model.RlimitConfig) error {
	if cfg.IsEmpty() {
		return nil
	}
	if cfg.MaxOpenFiles != nil {
		if err := setRlimit(unix.RLIMIT_NOFILE, *cfg.MaxOpenFiles); err != nil {
			return err
		}
	}
	if cfg.MaxFileSizeBytes != nil {
		if err := setRlimit(unix.RLIMIT_FSIZE, *cfg.MaxFileSizeBytes); err != nil {
			return err
		}
	}
	if cfg.DisableCoreDumps {
		if err := setRlimit(unix.RLIMIT_CORE, 0); err != nil {
			return err
		}
	}
	return nil
}

// setRlimit sets the soft limit to want. The hard limit follows the
// min-preserving-infinity rule: an infinite current hard limit stays
// infinite, otherwise it becomes max(current hard, want). Raising a finite
// hard limit needs CAP_SYS_RESOURCE; without it Setrlimit fails.
func setRlimit(resource int, want uint64) error {
	var cur unix.Rlimit
	if err := unix.Getrlimit(resource, &cur); err != nil {
		return err
	}
	hard := cur.Max
	if hard != unix.RLIM_INFINITY && want > hard {
		hard = want
	}
	return unix.Setrlimit(resource, &unix.Rlimit{Cur: want, Max: hard})
}
