package model

// LinuxCapability is a closed enumeration of the Linux capabilities taskd
// knows how to allowlist in the security hook. Lifted from original_source's
// tno-exec/src/utils/security.rs LinuxCapability enum.
type LinuxCapability int

const (
	CapChown LinuxCapability = iota
	CapDacOverride
	CapDacReadSearch
	CapFowner
	CapFsetid
	CapKill
	CapSetgid
	CapSetuid
	CapSetpcap
	CapNetBindService
	CapNetRaw
	CapNetAdmin
	CapSysChroot
	CapSysPtrace
	CapSysAdmin
	CapSysBoot
	CapSysNice
	CapSysResource
	CapSysTime
	CapMknod
	CapAuditWrite
	CapAuditControl
	CapSetfcap
)

var capNames = map[LinuxCapability]string{
	CapChown:          "CAP_CHOWN",
	CapDacOverride:    "CAP_DAC_OVERRIDE",
	CapDacReadSearch:  "CAP_DAC_READ_SEARCH",
	CapFowner:         "CAP_FOWNER",
	CapFsetid:         "CAP_FSETID",
	CapKill:           "CAP_KILL",
	CapSetgid:         "CAP_SETGID",
	CapSetuid:         "CAP_SETUID",
	CapSetpcap:        "CAP_SETPCAP",
	CapNetBindService: "CAP_NET_BIND_SERVICE",
	CapNetRaw:         "CAP_NET_RAW",
	CapNetAdmin:       "CAP_NET_ADMIN",
	CapSysChroot:      "CAP_SYS_CHROOT",
	CapSysPtrace:      "CAP_SYS_PTRACE",
	CapSysAdmin:       "CAP_SYS_ADMIN",
	CapSysBoot:        "CAP_SYS_BOOT",
	CapSysNice:        "CAP_SYS_NICE",
	CapSysResource:    "CAP_SYS_RESOURCE",
	CapSysTime:        "CAP_SYS_TIME",
	CapMknod:          "CAP_MKNOD",
	CapAuditWrite:     "CAP_AUDIT_WRITE",
	CapAuditControl:   "CAP_AUDIT_CONTROL",
	CapSetfcap:        "CAP_SETFCAP",
}

func (c LinuxCapability) String() string {
	if n, ok := capNames[c]; ok {
		return n
	}
	return "CAP_UNKNOWN"
}

// RlimitConfig is the POSIX rlimit portion of the isolation config.
type RlimitConfig struct {
	MaxOpenFiles      *uint64
	MaxFileSizeBytes  *uint64
	DisableCoreDumps  bool
}

func (r *RlimitConfig) IsEmpty() bool {
	return r == nil || (r.MaxOpenFiles == nil && r.MaxFileSizeBytes == nil && !r.DisableCoreDumps)
}

// Validate rejects zero-valued limits.
func (r *RlimitConfig) Validate() error {
	if r == nil {
		return nil
	}
	if r.MaxOpenFiles != nil && *r.MaxOpenFiles == 0 {
		return InvalidRunnerConfig("rlimits.max_open_files must be non-zero")
	}
	if r.MaxFileSizeBytes != nil && *r.MaxFileSizeBytes == 0 {
		return InvalidRunnerConfig("rlimits.max_file_size_bytes must be non-zero")
	}
	return nil
}

// CPUMax is the cgroup v2 cpu.max configuration.
type CPUMax struct {
	// Quota is microseconds per period; nil means "max" (unlimited).
	Quota  *uint64
	Period uint64
}

// CgroupConfig is the cgroup v2 portion of the isolation config (Linux
// only).
type CgroupConfig struct {
	CPU    *CPUMax
	Memory *uint64
	Pids   *uint64
}

func (c *CgroupConfig) IsEmpty() bool {
	return c == nil || (c.CPU == nil && c.Memory == nil && c.Pids == nil)
}

func (c *CgroupConfig) Validate() error {
	if c == nil {
		return nil
	}
	if c.Memory != nil && *c.Memory == 0 {
		return InvalidRunnerConfig("cgroups.memory must be non-zero")
	}
	if c.Pids != nil && *c.Pids == 0 {
		return InvalidRunnerConfig("cgroups.pids must be non-zero")
	}
	return nil
}

// SecurityConfig is the capability / no_new_privs portion (Linux only).
type SecurityConfig struct {
	DropAllCaps bool
	KeepCaps    []LinuxCapability
	NoNewPrivs  bool
}

func (s *SecurityConfig) IsEmpty() bool {
	return s == nil || (!s.DropAllCaps && len(s.KeepCaps) == 0 && !s.NoNewPrivs)
}

// LogConfig controls output capture behavior.
type LogConfig struct {
	MaxLineLength uint64
	StdoutInfo    bool
	StderrWarn    bool
}

func (l *LogConfig) IsEmpty() bool { return l == nil }

func (l *LogConfig) Validate() error {
	if l == nil {
		return nil
	}
	if l.MaxLineLength == 0 {
		return InvalidRunnerConfig("log.max_line_length must be non-zero")
	}
	return nil
}

// IsolationConfig is the full backend isolation config built incrementally
// and frozen into each spawned execution unit.
type IsolationConfig struct {
	Rlimits  *RlimitConfig
	Cgroups  *CgroupConfig
	Security *SecurityConfig
	Log      *LogConfig
}

// Validate rejects zero-valued limits per component; conflicting
// co-configuration (e.g. both rlimits.max_file_size_bytes and
// cgroups.memory) is allowed, the cgroup limit dominates on Linux.
func (c *IsolationConfig) Validate() error {
	if c == nil {
		return nil
	}
	if err := c.Rlimits.Validate(); err != nil {
		return err
	}
	if err := c.Cgroups.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return nil
}

// Clone returns a copy whose sections, CPU setting and KeepCaps slice are
// independent of c, per the builder-pattern note in spec.md §9. The *uint64
// limit fields (MaxOpenFiles, MaxFileSizeBytes, CPU.Quota, Memory, Pids) are
// not duplicated: the copy points at the same values as c.
func (c *IsolationConfig) Clone() *IsolationConfig {
	if c == nil {
		return nil
	}
	out := *c
	if c.Rlimits != nil {
		r := *c.Rlimits
		out.Rlimits = &r
	}
	if c.Cgroups != nil {
		cg := *c.Cgroups
		if c.Cgroups.CPU != nil {
			cpu := *c.Cgroups.CPU
			cg.CPU = &cpu
		}
		out.Cgroups = &cg
	}
	if c.Security != nil {
		s := *c.Security
		s.KeepCaps = append([]LinuxCapability(nil), c.Security.KeepCaps...)
		out.Security = &s
	}
	if c.Log != nil {
		l := *c.Log
		out.Log = &l
	}
	return &out
}
