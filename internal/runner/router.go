package runner

import (
	"fmt"
	"sync"

	"github.com/cordio/taskd/internal/model"
)

type entry struct {
	runner Runner
	labels model.Labels
	tag    string
	tagged bool
}

// Router holds an ordered list of (runner, labels) entries and one shared
// BuildContext. It is read-mostly after construction: registration happens
// at startup, Pick is called concurrently from many submitters.
type Router struct {
	mu      sync.RWMutex
	entries []entry
	tags    map[string]struct{}
	bc      BuildContext
}

// NewRouter creates a Router sharing the given BuildContext across all
// runners it builds units for.
func NewRouter(bc BuildContext) *Router {
	return &Router{tags: make(map[string]struct{}), bc: bc}
}

// Register adds an untagged runner entry.
func (r *Router) Register(rn Runner, labels model.Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry{runner: rn, labels: labels})
}

// RegisterTagged adds a runner entry under tag. Registering two entries with
// the same tag is rejected as DuplicateRunnerTag. tag is only used for that
// uniqueness check: Pick routes a spec's runner-tag by the entry's labels,
// so the entry is selected for runner-tag=t only when labels map runner-tag
// to t.
func (r *Router) RegisterTagged(rn Runner, labels model.Labels, tag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tags[tag]; exists {
		return model.DuplicateRunnerTag(tag)
	}
	r.tags[tag] = struct{}{}
	r.entries = append(r.entries, entry{runner: rn, labels: labels, tag: tag, tagged: true})
	return nil
}

// Pick selects the first runner entry that supports spec and whose labels
// (if spec names a runner-tag label) map runner-tag to the same value.
//
// Selection algorithm (spec.md §4.1):
//  1. Reject kind == None.
//  2. Filter entries whose runner.Supports(spec) is true.
//  3. If spec carries a runner-tag label, keep only entries whose labels
//     map runner-tag to that value.
//  4. Return the first survivor, else NoRunner.
func (r *Router) Pick(spec model.CreateSpec) (Runner, error) {
	if spec.Kind.Tag == model.KindNone {
		return nil, model.NoRunner("TaskKind::None requires submit_with_task()")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	tag, wantTag := spec.RunnerTag()

	for _, e := range r.entries {
		if !e.runner.Supports(spec) {
			continue
		}
		if wantTag {
			v, ok := e.labels.Get(model.RunnerTagLabel)
			if !ok || v != tag {
				continue
			}
		}
		return e.runner, nil
	}
	return nil, model.NoRunner(fmt.Sprintf("no runner registered for kind %s", spec.Kind.Tag))
}

// Build picks a runner for spec and builds the execution unit in one call.
func (r *Router) Build(spec model.CreateSpec) (ExecutionUnit, error) {
	rn, err := r.Pick(spec)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	bc := r.bc
	r.mu.RUnlock()
	return rn.Build(spec, bc)
}

// BuildContext returns the router's shared build context.
func (r *Router) BuildContext() BuildContext {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bc
}
