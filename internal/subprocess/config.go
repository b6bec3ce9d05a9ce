package subprocess

import (
	"github.com/mohae/deepcopy"

	"github.com/cordio/taskd/internal/model"
)

// freezeIsolation returns an independent copy of cfg safe to embed in a
// built ExecutionUnit: later mutation of the runner's own base config (e.g.
// a config reload) must never retroactively change an attempt already in
// flight. model.IsolationConfig.Clone covers the common case; deepcopy is
// used here instead so that any backend-private fields layered onto the
// config in the future are copied too without the clone logic having to be
// kept in sync by hand.
func freezeIsolation(cfg *model.IsolationConfig) *model.IsolationConfig {
	if cfg == nil {
		return nil
	}
	return deepcopy.Copy(cfg).(*model.IsolationConfig)
}
