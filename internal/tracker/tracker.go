// Package tracker implements the in-memory task-state directory of
// spec.md §4.6: an event subscriber that indexes TaskInfo by id, slot, and
// status.
package tracker

import (
	"sync"

	"github.com/google/btree"

	"github.com/cordio/taskd/internal/model"
)

// indexKey orders entries first by the secondary dimension (slot or status
// rendered as a string) and then by task id, giving list_by_slot/
// list_by_status a deterministic order.
type indexKey struct {
	bucket string
	id     model.TaskID
}

func lessIndexKey(a, b indexKey) bool {
	if a.bucket != b.bucket {
		return a.bucket < b.bucket
	}
	return a.id < b.id
}

// Tracker is a Subscriber (see internal/events) that applies the transitions
// of spec.md §4.6 and serves consistent snapshot queries.
type Tracker struct {
	name string
	cap  int

	mu       sync.RWMutex
	byID     map[model.TaskID]*model.TaskInfo
	bySlot   *btree.BTreeG[indexKey]
	byStatus *btree.BTreeG[indexKey]
}

// New creates an empty Tracker registered under the given subscriber name.
func New(name string, queueCapacity int) *Tracker {
	return &Tracker{
		name:     name,
		cap:      queueCapacity,
		byID:     make(map[model.TaskID]*model.TaskInfo),
		bySlot:   btree.NewG(32, lessIndexKey),
		byStatus: btree.NewG(32, lessIndexKey),
	}
}

func (t *Tracker) Name() string       { return t.name }
func (t *Tracker) QueueCapacity() int { return t.cap }

// OnEvent applies one event's transition. Writers serialize per-id via the
// tracker's single mutex; all accessor methods below return consistent
// snapshots.
func (t *Tracker) OnEvent(e model.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e.Kind {
	case model.EventTaskAdded:
		info := &model.TaskInfo{
			ID:        e.TaskID,
			Slot:      e.Slot,
			Status:    model.StatusPending,
			CreatedAt: e.Time,
			UpdatedAt: e.Time,
		}
		t.byID[e.TaskID] = info
		t.indexInsert(info)
	case model.EventTaskStarting:
		t.transition(e, func(info *model.TaskInfo) {
			info.Status = model.StatusRunning
			info.Attempt = e.Attempt
		})
	case model.EventTaskStopped:
		t.transition(e, func(info *model.TaskInfo) {
			info.Status = model.StatusSucceeded
			info.Error = ""
		})
	case model.EventTaskFailed:
		t.transition(e, func(info *model.TaskInfo) {
			info.Status = model.StatusFailed
			if e.Reason != "" {
				info.Error = e.Reason
			} else {
				info.Error = "unknown"
			}
		})
	case model.EventTimeoutHit:
		t.transition(e, func(info *model.TaskInfo) {
			info.Status = model.StatusTimeout
			info.Error = "timeout"
		})
	case model.EventActorExhausted:
		t.transition(e, func(info *model.TaskInfo) {
			info.Status = model.StatusExhausted
			if e.Reason != "" {
				info.Error = e.Reason
			}
		})
	case model.EventTaskRemoved:
		t.remove(e.TaskID)
	}
}

func (t *Tracker) transition(e model.Event, mutate func(*model.TaskInfo)) {
	info, ok := t.byID[e.TaskID]
	if !ok {
		return
	}
	t.indexRemove(info)
	mutate(info)
	info.UpdatedAt = e.Time
	t.indexInsert(info)
}

func (t *Tracker) indexInsert(info *model.TaskInfo) {
	t.bySlot.ReplaceOrInsert(indexKey{bucket: info.Slot, id: info.ID})
	t.byStatus.ReplaceOrInsert(indexKey{bucket: info.Status.String(), id: info.ID})
}

func (t *Tracker) indexRemove(info *model.TaskInfo) {
	t.bySlot.Delete(indexKey{bucket: info.Slot, id: info.ID})
	t.byStatus.Delete(indexKey{bucket: info.Status.String(), id: info.ID})
}

func (t *Tracker) remove(id model.TaskID) {
	info, ok := t.byID[id]
	if !ok {
		return
	}
	t.indexRemove(info)
	delete(t.byID, id)
}

// Get returns a snapshot of the task's info, or (zero, false) if it is not
// tracked (never submitted, or already removed).
func (t *Tracker) Get(id model.TaskID) (model.TaskInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	info, ok := t.byID[id]
	if !ok {
		return model.TaskInfo{}, false
	}
	return info.Clone(), true
}

// ListAll returns a snapshot of every tracked task, ordered by slot and then
// by id.
func (t *Tracker) ListAll() []model.TaskInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]model.TaskInfo, 0, len(t.byID))
	t.bySlot.Ascend(func(k indexKey) bool {
		if info, ok := t.byID[k.id]; ok {
			out = append(out, info.Clone())
		}
		return true
	})
	return out
}

// ListBySlot returns every tracked task whose Slot equals slot, in id order.
func (t *Tracker) ListBySlot(slot string) []model.TaskInfo {
	return t.listByIndex(t.bySlot, slot)
}

// ListByStatus returns every tracked task whose last status update was to
// st, in id order.
func (t *Tracker) ListByStatus(st model.Status) []model.TaskInfo {
	return t.listByIndex(t.byStatus, st.String())
}

func (t *Tracker) listByIndex(idx *btree.BTreeG[indexKey], bucket string) []model.TaskInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []model.TaskInfo
	idx.AscendRange(
		indexKey{bucket: bucket, id: ""},
		indexKey{bucket: bucket + "\xff", id: ""},
		func(k indexKey) bool {
			if k.bucket != bucket {
				return true
			}
			if info, ok := t.byID[k.id]; ok {
				out = append(out, info.Clone())
			}
			return true
		},
	)
	return out
}
