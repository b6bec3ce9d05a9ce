// Package isolate implements the pre-exec isolation primitives of
// spec.md §4.3 (rlimits, capabilities, no_new_privs). Go's standard library
// has no equivalent of a fork-child pre_exec closure (the mechanism the
// original Rust implementation uses via tokio::process::Command::pre_exec);
// see internal/subprocess/reexec.go for how taskd replaces it with a
// self-reexec "init" step, the same architecture runc/libcontainer use.
package isolate

import (
	"github.com/syndtr/gocapability/capability"

	"github.com/cordio/taskd/internal/model"
)

var capMap = map[model.LinuxCapability]capability.Cap{
	model.CapChown:          capability.CAP_CHOWN,
	model.CapDacOverride:    capability.CAP_DAC_OVERRIDE,
	model.CapDacReadSearch:  capability.CAP_DAC_READ_SEARCH,
	model.CapFowner:         capability.CAP_FOWNER,
	model.CapFsetid:         capability.CAP_FSETID,
	model.CapKill:           capability.CAP_KILL,
	model.CapSetgid:         capability.CAP_SETGID,
	model.CapSetuid:         capability.CAP_SETUID,
	model.CapSetpcap:        capability.CAP_SETPCAP,
	model.CapNetBindService: capability.CAP_NET_BIND_SERVICE,
	model.CapNetRaw:         capability.CAP_NET_RAW,
	model.CapNetAdmin:       capability.CAP_NET_ADMIN,
	model.CapSysChroot:      capability.CAP_SYS_CHROOT,
	model.CapSysPtrace:      capability.CAP_SYS_PTRACE,
	model.CapSysAdmin:       capability.CAP_SYS_ADMIN,
	model.CapSysBoot:        capability.CAP_SYS_BOOT,
	model.CapSysNice:        capability.CAP_SYS_NICE,
	model.CapSysResource:    capability.CAP_SYS_RESOURCE,
	model.CapSysTime:        capability.CAP_SYS_TIME,
	model.CapMknod:          capability.CAP_MKNOD,
	model.CapAuditWrite:     capability.CAP_AUDIT_WRITE,
	model.CapAuditControl:   capability.CAP_AUDIT_CONTROL,
	model.CapSetfcap:        capability.CAP_SETFCAP,
}

// allCaps enumerates every capability value the kernel knows about (0..=63)
// as far as gocapability's own table reaches, per spec.md's "walk
// capability values 0..=63" instruction.
func allCaps() []capability.Cap {
	out := make([]capability.Cap, 0, 64)
	for c := capability.Cap(0); c <= capability.CAP_LAST_CAP; c++ {
		out = append(out, c)
	}
	return out
}
