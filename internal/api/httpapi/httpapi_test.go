package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cordio/taskd/internal/model"
)

type fakeCtrl struct {
	submitted []model.CreateSpec
	submitErr error
	canceled  []string
	cancelErr error
}

func (f *fakeCtrl) Submit(spec model.CreateSpec) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, spec)
	return nil
}

func (f *fakeCtrl) Cancel(slot string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.canceled = append(f.canceled, slot)
	return nil
}

type fakeTracker struct {
	byID map[model.TaskID]model.TaskInfo
	all  []model.TaskInfo
}

func (f *fakeTracker) Get(id model.TaskID) (model.TaskInfo, bool) {
	info, ok := f.byID[id]
	return info, ok
}
func (f *fakeTracker) ListAll() []model.TaskInfo { return f.all }
func (f *fakeTracker) ListBySlot(slot string) []model.TaskInfo {
	var out []model.TaskInfo
	for _, i := range f.all {
		if i.Slot == slot {
			out = append(out, i)
		}
	}
	return out
}
func (f *fakeTracker) ListByStatus(st model.Status) []model.TaskInfo {
	var out []model.TaskInfo
	for _, i := range f.all {
		if i.Status == st {
			out = append(out, i)
		}
	}
	return out
}

func TestSubmitAcceptsValidSpec(t *testing.T) {
	ctrl := &fakeCtrl{}
	srv := New(ctrl, &fakeTracker{}, nil)

	body := `{"slot":"a","command":"/bin/true","timeout_ms":1000,"restart_kind":"never","admission":"drop_if_running"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, ctrl.submitted, 1)
	assert.Equal(t, "a", ctrl.submitted[0].Slot)
}

func TestSubmitRejectsInvalidSpec(t *testing.T) {
	ctrl := &fakeCtrl{}
	srv := New(ctrl, &fakeTracker{}, nil)

	body := `{"slot":"a","command":"/bin/true","timeout_ms":0}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, ctrl.submitted)
}

func TestListFiltersBySlotAndStatusAreMutuallyExclusive(t *testing.T) {
	srv := New(&fakeCtrl{}, &fakeTracker{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks?slot=a&status=running", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetByIDReturns404WhenUntracked(t *testing.T) {
	srv := New(&fakeCtrl{}, &fakeTracker{byID: map[model.TaskID]model.TaskInfo{}}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/missing", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetByIDReturnsTaskInfo(t *testing.T) {
	info := model.TaskInfo{ID: "subprocess-a-1", Slot: "a", Status: model.StatusRunning, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	tr := &fakeTracker{byID: map[model.TaskID]model.TaskInfo{info.ID: info}}
	srv := New(&fakeCtrl{}, tr, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/subprocess-a-1", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out wireTaskInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "running", out.Status)
}

func TestCancelLooksUpSlotAndCallsController(t *testing.T) {
	info := model.TaskInfo{ID: "subprocess-a-1", Slot: "a", Status: model.StatusRunning}
	tr := &fakeTracker{byID: map[model.TaskID]model.TaskInfo{info.ID: info}}
	ctrl := &fakeCtrl{}
	srv := New(ctrl, tr, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/subprocess-a-1/cancel", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, ctrl.canceled, 1)
	assert.Equal(t, "a", ctrl.canceled[0])
}
