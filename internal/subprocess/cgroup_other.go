//go:build !linux

package subprocess

import "github.com/cordio/taskd/internal/model"

// cgroupHandle is a no-op placeholder on non-Linux platforms: cgroup v2 is a
// Linux-only kernel facility, matching spec.md's note that the cgroup and
// security hooks are Linux-only.
type cgroupHandle struct{}

func createCgroup(name string, cfg *model.CgroupConfig) (*cgroupHandle, error) {
	return nil, nil
}

func (h *cgroupHandle) addProc(pid int) error { return nil }

func (h *cgroupHandle) cleanup() {}
