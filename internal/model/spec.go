package model

// CreateSpec is the declarative task specification submitted by a caller.
type CreateSpec struct {
	Slot        string
	Kind        TaskKind
	TimeoutMS   uint64
	Restart     RestartStrategy
	Backoff     BackoffStrategy
	Admission   Admission
	Labels      Labels
	// DryRun, supplemented from original_source's domain/flag.rs, is
	// decoded from the HTTP façade's dry_run field. Nothing in this module
	// acts on it: the CLI has no dry-run option and Controller.Submit
	// ignores it, so a spec with DryRun set is submitted and run like any
	// other.
	DryRun bool
}

// RunnerTag returns the value of the recognized "runner-tag" label, if any.
func (s CreateSpec) RunnerTag() (string, bool) {
	return s.Labels.Get(RunnerTagLabel)
}

// Validate enforces the wire-boundary InvalidSpec rules of spec.md §7/§8:
// non-empty slot, non-zero timeout, valid backoff fields when restart is not
// Never, and (for the Subprocess kind) a non-empty command.
func (s CreateSpec) Validate() error {
	if trimEmpty(s.Slot) {
		return InvalidSpec("slot must be non-empty")
	}
	if s.TimeoutMS == 0 {
		return InvalidSpec("timeout_ms must be non-zero")
	}
	if s.Restart.Kind != RestartNever {
		if err := s.Backoff.Validate(); err != nil {
			return err
		}
	}
	switch s.Kind.Tag {
	case KindSubprocess:
		if trimEmpty(s.Kind.Subprocess.Command) {
			return InvalidSpec("subprocess command must be non-empty")
		}
	case KindWasm:
		if trimEmpty(s.Kind.Wasm.Module) {
			return InvalidSpec("wasm module must be non-empty")
		}
	case KindContainer:
		if trimEmpty(s.Kind.Container.Image) {
			return InvalidSpec("container image must be non-empty")
		}
	}
	return nil
}

func trimEmpty(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
