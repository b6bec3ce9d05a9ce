package model

// KindTag discriminates the TaskKind sum type.
type KindTag int

const (
	KindSubprocess KindTag = iota
	KindWasm
	KindContainer
	KindNone
)

func (k KindTag) String() string {
	switch k {
	case KindSubprocess:
		return "subprocess"
	case KindWasm:
		return "wasm"
	case KindContainer:
		return "container"
	case KindNone:
		return "none"
	default:
		return "unknown"
	}
}

// SubprocessKind is the Subprocess variant payload.
type SubprocessKind struct {
	Command       string
	Args          []string
	Env           Env
	Cwd           string
	FailOnNonZero bool
}

// WasmKind is the Wasm variant payload (runner abstraction only; the
// runner itself is an out-of-core stub per spec.md §1).
type WasmKind struct {
	Module string
	Args   []string
	Env    Env
}

// ContainerKind is the Container variant payload. Command is optional: when
// empty the image's own entrypoint is used, matching the OCI runtime-spec
// convention (opencontainers/runtime-spec) for process configuration.
type ContainerKind struct {
	Image   string
	Command string
	Args    []string
	Env     Env
}

// TaskKind is a closed sum type over {Subprocess, Wasm, Container, None}.
// None means "no kind": callers must use submit_with_task with a pre-built
// execution unit.
type TaskKind struct {
	Tag        KindTag
	Subprocess SubprocessKind
	Wasm       WasmKind
	Container  ContainerKind
}

func SubprocessTaskKind(k SubprocessKind) TaskKind {
	return TaskKind{Tag: KindSubprocess, Subprocess: k}
}

func WasmTaskKind(k WasmKind) TaskKind {
	return TaskKind{Tag: KindWasm, Wasm: k}
}

func ContainerTaskKind(k ContainerKind) TaskKind {
	return TaskKind{Tag: KindContainer, Container: k}
}

func NoneTaskKind() TaskKind {
	return TaskKind{Tag: KindNone}
}
