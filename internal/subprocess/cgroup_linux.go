//go:build linux

package subprocess

import (
	"fmt"

	cgroup2 "github.com/containerd/cgroups/v2/cgroup2"

	"github.com/cordio/taskd/internal/model"
)

const cgroupMountpoint = "/sys/fs/cgroup"

// cgroupHandle wraps the live manager for one attempt's cgroup, so unit.go
// can add the child's pid to it and delete it on cleanup without re-deriving
// the group path.
type cgroupHandle struct {
	mgr  *cgroup2.Manager
	path string
}

func createCgroup(name string, cfg *model.CgroupConfig) (*cgroupHandle, error) {
	if cfg.IsEmpty() {
		return nil, nil
	}
	res := &cgroup2.Resources{}
	if cfg.CPU != nil {
		res.CPU = &cgroup2.CPU{Max: cgroup2.NewCPUMax(quotaPtr(cfg.CPU.Quota), &cfg.CPU.Period)}
	}
	if cfg.Memory != nil {
		max := int64(*cfg.Memory)
		res.Memory = &cgroup2.Memory{Max: &max}
	}
	if cfg.Pids != nil {
		max := int64(*cfg.Pids)
		res.Pids = &cgroup2.Pids{Max: max}
	}

	group := "/taskd/" + name
	mgr, err := cgroup2.NewManager(cgroupMountpoint, group, res)
	if err != nil {
		return nil, model.Supervisor(fmt.Sprintf("create cgroup %s: %v", group, err))
	}
	return &cgroupHandle{mgr: mgr, path: group}, nil
}

func quotaPtr(q *uint64) *int64 {
	if q == nil {
		return nil
	}
	v := int64(*q)
	return &v
}

func (h *cgroupHandle) addProc(pid int) error {
	if h == nil {
		return nil
	}
	return h.mgr.AddProc(uint64(pid))
}

func (h *cgroupHandle) cleanup() {
	if h == nil {
		return
	}
	// Best effort: the kernel refuses to rmdir a non-empty cgroup, so a
	// straggler process (one that ignored SIGKILL's delivery window) just
	// leaves the group around for the next GC pass rather than failing the
	// attempt.
	_ = h.mgr.Delete()
}
