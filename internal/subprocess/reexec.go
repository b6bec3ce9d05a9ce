// Package subprocess implements the Subprocess runner and backend of
// spec.md §4.2/§4.3: it maps a CreateSpec's Subprocess kind to an
// ExecutionUnit that forks, applies rlimit/cgroup/capability isolation, and
// execs the target command.
//
// Go's os/exec has no equivalent of the original Rust implementation's
// pre_exec fork-child closure (tokio::process::Command::pre_exec, which
// runs arbitrary code between fork() and execve() inside the child's
// still-forked, not-yet-exec'd memory image). The Go runtime explicitly
// forbids running Go code in that window: a forked child shares the
// parent's threads and allocator state until it execs, and the garbage
// collector or scheduler waking up in the child is a deadlock waiting to
// happen. Every real Go process-isolation tool that needs pre-exec setup
// (runc's libcontainer/init_linux.go chief among them) works around this by
// re-execing itself as a tiny "init" process: the parent execs a *new* copy
// of its own binary with a sentinel argv[0] marker, that new process applies
// the isolation hooks to itself (a normal process, not a fork-child —
// ordinary Go code is safe here), and then syscall.Exec replaces its image
// with the real target. taskd follows the same shape.
package subprocess

import (
	"encoding/json"
	"fmt"
	"os"
	"syscall"

	"github.com/cordio/taskd/internal/model"
	"github.com/cordio/taskd/internal/subprocess/isolate"
)

// reexecArg is the sentinel argv[1] that tells main() to take the init path
// instead of taskd's normal CLI dispatch.
const reexecArg = "__taskd_isolate_init__"

// initFD is the file descriptor the parent hands the re-exec'd child the
// isolation payload on, inherited via exec.Cmd.ExtraFiles[0].
const initFD = 3

// initPayload is the JSON message the parent writes to initFD describing
// what the child should apply to itself before exec'ing the real target.
type initPayload struct {
	Isolation *model.IsolationConfig `json:"isolation"`
	Dir       string                 `json:"dir"`
	Argv      []string               `json:"argv"`
	Env       []string               `json:"env"`
}

// IsReexecInit reports whether this process invocation is the isolation
// init step rather than taskd's normal entrypoint. cmd/taskd must check this
// first, before any flag parsing.
func IsReexecInit() bool {
	return len(os.Args) > 1 && os.Args[1] == reexecArg
}

// reexecSelfArgv builds the argv for the parent to exec: a copy of the
// running binary with the sentinel as argv[1]. The actual command and its
// isolation config travel out of band over initFD, not argv, so arbitrary
// target arguments never need shell-safe escaping.
func reexecSelfArgv() ([]string, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve self executable for reexec init: %w", err)
	}
	return []string{self, reexecArg}, nil
}

// RunReexecInit is the entrypoint cmd/taskd calls when IsReexecInit is true.
// It never returns on success: it becomes the target process via
// syscall.Exec. On failure it writes a diagnostic to stderr and exits
// non-zero, since by this point there is no supervisor left to report an
// error back to other than the attempt's own stderr capture.
func RunReexecInit() {
	if err := runReexecInit(); err != nil {
		fmt.Fprintf(os.Stderr, "taskd isolate init: %v\n", err)
		os.Exit(127)
	}
}

func runReexecInit() error {
	f := os.NewFile(initFD, "taskd-init-payload")
	if f == nil {
		return fmt.Errorf("init payload fd %d not inherited", initFD)
	}
	defer f.Close()

	var p initPayload
	if err := json.NewDecoder(f).Decode(&p); err != nil {
		return fmt.Errorf("decode init payload: %w", err)
	}
	if len(p.Argv) == 0 {
		return fmt.Errorf("empty target argv")
	}

	if p.Isolation != nil {
		if err := isolate.ApplyRlimits(p.Isolation.Rlimits); err != nil {
			return fmt.Errorf("apply rlimits: %w", err)
		}
		if err := isolate.ApplySecurity(p.Isolation.Security); err != nil {
			return fmt.Errorf("apply security: %w", err)
		}
	}

	if p.Dir != "" {
		if err := os.Chdir(p.Dir); err != nil {
			return fmt.Errorf("chdir %s: %w", p.Dir, err)
		}
	}

	target, err := lookPath(p.Argv[0])
	if err != nil {
		return fmt.Errorf("resolve target command %s: %w", p.Argv[0], err)
	}
	return syscall.Exec(target, p.Argv, p.Env)
}
