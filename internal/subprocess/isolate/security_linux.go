//go:build linux

package isolate

import (
	"github.com/syndtr/gocapability/capability"
	"golang.org/x/sys/unix"

	"github.com/cordio/taskd/internal/model"
)

// ApplySecurity drops capabilities to the configured keep-set and/or sets
// PR_SET_NO_NEW_PRIVS, per spec.md §4.3. It is a no-op for each field left
// unconfigured, so a caller may apply DropAllCaps without NoNewPrivs or vice
// versa.
func ApplySecurity(cfg *model.SecurityConfig) error {
	if cfg.IsEmpty() {
		return nil
	}
	if cfg.DropAllCaps {
		if err := dropAllCapsExcept(cfg.KeepCaps); err != nil {
			return err
		}
	}
	if cfg.NoNewPrivs {
		if err := ApplyNoNewPrivs(); err != nil {
			return err
		}
	}
	return nil
}

func dropAllCapsExcept(keep []model.LinuxCapability) error {
	caps, err := capability.NewPid2(0)
	if err != nil {
		return err
	}
	if err := caps.Load(); err != nil {
		return err
	}

	keepSet := make([]capability.Cap, 0, len(keep))
	for _, k := range keep {
		c, ok := capMap[k]
		if !ok {
			return model.InvalidRunnerConfig("unknown capability in keep_caps: " + k.String())
		}
		keepSet = append(keepSet, c)
	}

	caps.Clear(capability.CAPS | capability.BOUNDS | capability.AMBS)
	caps.Set(capability.CAPS|capability.BOUNDS, keepSet...)
	caps.Set(capability.AMBS, keepSet...)
	return caps.Apply(capability.CAPS | capability.BOUNDS | capability.AMBS)
}

// ApplyNoNewPrivs sets PR_SET_NO_NEW_PRIVS on the calling process, preventing
// it (and anything it execs) from gaining privileges via setuid/setgid bits
// or file capabilities.
func ApplyNoNewPrivs() error {
	return unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0)
}
