//go:build !linux

package isolate

import "github.com/cordio/taskd/internal/model"

// ApplyRlimits, ApplySecurity and ApplyNoNewPrivs are Linux-only hooks
// (setrlimit's hard-limit semantics and PR_SET_NO_NEW_PRIVS are kernel
// facilities without a portable equivalent); on other platforms they are
// no-ops so the module builds for local development off the target OS.
func ApplyRlimits(cfg *model.RlimitConfig) error { return nil }

func ApplySecurity(cfg *model.SecurityConfig) error { return nil }

func ApplyNoNewPrivs() error { return nil }
