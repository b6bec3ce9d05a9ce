// Package httpapi implements the thin HTTP façade spec.md §191 describes as
// out of core scope: it translates JSON requests into CreateSpec
// submissions and TaskInfo queries against the core supervisor/tracker, and
// performs no policy of its own. Plain net/http and encoding/json are
// enough for four routes with no path-parameter matching beyond a single
// trailing id segment, so no router library is pulled in for it.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cordio/taskd/internal/model"
)

// Submitter is the subset of *supervisor.Controller the façade needs.
type Submitter interface {
	Submit(spec model.CreateSpec) error
	Cancel(slot string) error
}

// Querier is the subset of *tracker.Tracker the façade needs.
type Querier interface {
	Get(id model.TaskID) (model.TaskInfo, bool)
	ListAll() []model.TaskInfo
	ListBySlot(slot string) []model.TaskInfo
	ListByStatus(status model.Status) []model.TaskInfo
}

// Server implements http.Handler for the /api/v1/tasks surface.
type Server struct {
	ctrl    Submitter
	tracker Querier
	log     *logrus.Entry
	mux     *http.ServeMux
}

// New builds a Server wired to ctrl for mutation and tracker for queries.
func New(ctrl Submitter, tracker Querier, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Server{ctrl: ctrl, tracker: tracker, log: log, mux: http.NewServeMux()}
	s.mux.HandleFunc("/api/v1/tasks", s.handleTasks)
	s.mux.HandleFunc("/api/v1/tasks/", s.handleTaskByID)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSubmit(w, r)
	case http.MethodGet:
		s.handleList(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var body wireSpec
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	spec, err := toCreateSpec(body)
	if err != nil {
		writeError(w, statusForKind(model.KindOf(err)), err.Error())
		return
	}
	if err := s.ctrl.Submit(spec); err != nil {
		writeError(w, statusForKind(model.KindOf(err)), err.Error())
		return
	}
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"slot": spec.Slot, "status": "accepted"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	slot := q.Get("slot")
	status := q.Get("status")
	if slot != "" && status != "" {
		writeError(w, http.StatusBadRequest, "slot and status filters are mutually exclusive")
		return
	}

	var infos []model.TaskInfo
	switch {
	case slot != "":
		infos = s.tracker.ListBySlot(slot)
	case status != "":
		st, err := parseStatus(status)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		infos = s.tracker.ListByStatus(st)
	default:
		infos = s.tracker.ListAll()
	}

	out := make([]wireTaskInfo, len(infos))
	for i, info := range infos {
		out[i] = fromTaskInfo(info)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/tasks/")
	if rest == "" {
		http.NotFound(w, r)
		return
	}

	if id, ok := strings.CutSuffix(rest, "/cancel"); ok {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleCancel(w, model.TaskID(id))
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	info, ok := s.tracker.Get(model.TaskID(rest))
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, fromTaskInfo(info))
}

func (s *Server) handleCancel(w http.ResponseWriter, id model.TaskID) {
	info, ok := s.tracker.Get(id)
	if !ok {
		http.NotFound(w, nil)
		return
	}
	if err := s.ctrl.Cancel(info.Slot); err != nil {
		writeError(w, statusForKind(model.KindOf(err)), err.Error())
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func parseStatus(s string) (model.Status, error) {
	switch s {
	case "pending":
		return model.StatusPending, nil
	case "running":
		return model.StatusRunning, nil
	case "succeeded":
		return model.StatusSucceeded, nil
	case "failed":
		return model.StatusFailed, nil
	case "timeout":
		return model.StatusTimeout, nil
	case "canceled":
		return model.StatusCanceled, nil
	case "exhausted":
		return model.StatusExhausted, nil
	default:
		return 0, model.InvalidSpec("unknown status " + s)
	}
}

func statusForKind(k model.Kind) int {
	switch k {
	case model.KindInvalidSpec, model.KindInvalidRunnerConfig, model.KindDuplicateRunnerTag:
		return http.StatusBadRequest
	case model.KindNoRunner:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
