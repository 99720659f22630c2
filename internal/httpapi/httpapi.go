// Package httpapi exposes the defect service as a thin JSON API.
//
// Authentication is out of scope: callers supply their identity through
// the X-User-ID and X-Superuser headers, matching the identity context
// an upstream gateway would inject after verifying credentials.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/sitedesk/punchlist/internal/audit"
	"github.com/sitedesk/punchlist/internal/debug"
	"github.com/sitedesk/punchlist/internal/lifecycle"
	"github.com/sitedesk/punchlist/internal/service"
	"github.com/sitedesk/punchlist/internal/types"
)

// Server handles HTTP requests against a DefectService.
type Server struct {
	svc *service.DefectService
	mux *http.ServeMux
}

// NewServer builds the HTTP handler around svc.
func NewServer(svc *service.DefectService) *Server {
	s := &Server{svc: svc, mux: http.NewServeMux()}

	s.mux.HandleFunc("POST /api/defects", s.handleCreateDefect)
	s.mux.HandleFunc("GET /api/defects", s.handleListDefects)
	s.mux.HandleFunc("GET /api/defects/{id}", s.handleGetDefect)
	s.mux.HandleFunc("PATCH /api/defects/{id}", s.handleUpdateDefect)
	s.mux.HandleFunc("DELETE /api/defects/{id}", s.handleDeleteDefect)
	s.mux.HandleFunc("POST /api/defects/{id}/status", s.handleChangeStatus)
	s.mux.HandleFunc("GET /api/defects/{id}/comments", s.handleListComments)
	s.mux.HandleFunc("POST /api/defects/{id}/comments", s.handleAddComment)
	s.mux.HandleFunc("DELETE /api/defects/{id}/comments/{commentID}", s.handleDeleteComment)
	s.mux.HandleFunc("GET /api/defects/{id}/history", s.handleHistory)
	s.mux.HandleFunc("GET /api/projects/{id}/audit", s.handleProjectAudit)
	s.mux.HandleFunc("GET /api/projects/{id}/metrics", s.handleProjectMetrics)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// actor extracts the caller identity from the request headers.
func actor(r *http.Request) (types.Actor, bool) {
	userID, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil || userID <= 0 {
		return types.Actor{}, false
	}
	return types.Actor{
		UserID:      userID,
		IsSuperuser: r.Header.Get("X-Superuser") == "true",
	}, true
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the service's typed errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := err.Error()
	switch {
	case types.IsNotFound(err):
		status = http.StatusNotFound
	case types.IsForbidden(err):
		status = http.StatusForbidden
	case types.IsConflict(err):
		status = http.StatusConflict
	case types.IsValidation(err):
		status = http.StatusBadRequest
	default:
		// Persistence details stay server-side.
		debug.Logf("internal error: %v\n", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing or invalid X-User-ID header"})
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

type createDefectRequest struct {
	ProjectID      int64    `json:"project_id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Location       string   `json:"location,omitempty"`
	Priority       string   `json:"priority,omitempty"`
	AssigneeID     *int64   `json:"assignee_id,omitempty"`
	DueDate        *string  `json:"due_date,omitempty"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
}

func (s *Server) handleCreateDefect(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		unauthorized(w)
		return
	}
	var req createDefectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &types.ValidationError{Field: "body", Reason: "invalid JSON"})
		return
	}
	var dueDate *time.Time
	if req.DueDate != nil {
		t, err := time.Parse(time.RFC3339, *req.DueDate)
		if err != nil {
			writeError(w, &types.ValidationError{Field: "due_date", Reason: "must be RFC3339"})
			return
		}
		dueDate = &t
	}
	defect, err := s.svc.CreateDefect(r.Context(), act, service.CreateDefectRequest{
		ProjectID:      req.ProjectID,
		Title:          req.Title,
		Description:    req.Description,
		Location:       req.Location,
		PriorityName:   req.Priority,
		AssigneeID:     req.AssigneeID,
		DueDate:        dueDate,
		EstimatedHours: req.EstimatedHours,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, defect)
}

func (s *Server) handleListDefects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := types.DefectFilter{
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
		Search:   q.Get("q"),
	}
	if v := q.Get("project"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, &types.ValidationError{Field: "project", Reason: "must be an integer"})
			return
		}
		filter.ProjectID = &id
	}
	if v := q.Get("assignee"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, &types.ValidationError{Field: "assignee", Reason: "must be an integer"})
			return
		}
		filter.Assignee = &id
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, &types.ValidationError{Field: "limit", Reason: "must be an integer"})
			return
		}
		filter.Limit = n
	}
	defects, err := s.svc.ListDefects(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if defects == nil {
		defects = []*types.Defect{}
	}
	writeJSON(w, http.StatusOK, defects)
}

func (s *Server) handleGetDefect(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, &types.ValidationError{Field: "id", Reason: "must be a positive integer"})
		return
	}
	defect, err := s.svc.GetDefect(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, defect)
}

type updateDefectRequest struct {
	Title          *string  `json:"title,omitempty"`
	Description    *string  `json:"description,omitempty"`
	Location       *string  `json:"location,omitempty"`
	Priority       *string  `json:"priority,omitempty"`
	AssigneeID     *int64   `json:"assignee_id,omitempty"`
	ClearAssignee  bool     `json:"clear_assignee,omitempty"`
	DueDate        *string  `json:"due_date,omitempty"`
	ClearDueDate   bool     `json:"clear_due_date,omitempty"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	ActualHours    *float64 `json:"actual_hours,omitempty"`
}

func (s *Server) handleUpdateDefect(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		unauthorized(w)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, &types.ValidationError{Field: "id", Reason: "must be a positive integer"})
		return
	}
	var req updateDefectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &types.ValidationError{Field: "body", Reason: "invalid JSON"})
		return
	}
	changes := lifecycle.FieldChanges{
		Title:          req.Title,
		Description:    req.Description,
		Location:       req.Location,
		AssigneeID:     req.AssigneeID,
		ClearAssignee:  req.ClearAssignee,
		ClearDueDate:   req.ClearDueDate,
		EstimatedHours: req.EstimatedHours,
		ActualHours:    req.ActualHours,
	}
	if req.Priority != nil {
		p, err := s.svc.Store().GetPriorityByName(r.Context(), *req.Priority)
		if err != nil {
			writeError(w, &types.ValidationError{Field: "priority", Reason: "unknown priority: " + *req.Priority})
			return
		}
		changes.PriorityID = &p.ID
	}
	if req.DueDate != nil {
		t, err := time.Parse(time.RFC3339, *req.DueDate)
		if err != nil {
			writeError(w, &types.ValidationError{Field: "due_date", Reason: "must be RFC3339"})
			return
		}
		changes.DueDate = &t
	}
	defect, err := s.svc.UpdateDefect(r.Context(), act, id, changes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, defect)
}

func (s *Server) handleDeleteDefect(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		unauthorized(w)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, &types.ValidationError{Field: "id", Reason: "must be a positive integer"})
		return
	}
	if err := s.svc.DeleteDefect(r.Context(), act, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		unauthorized(w)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, &types.ValidationError{Field: "id", Reason: "must be a positive integer"})
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		writeError(w, &types.ValidationError{Field: "status", Reason: "status is required"})
		return
	}
	defect, err := s.svc.ChangeStatus(r.Context(), act, id, types.StatusName(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, defect)
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		unauthorized(w)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, &types.ValidationError{Field: "id", Reason: "must be a positive integer"})
		return
	}
	comments, err := s.svc.GetComments(r.Context(), act, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if comments == nil {
		comments = []*types.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		unauthorized(w)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, &types.ValidationError{Field: "id", Reason: "must be a positive integer"})
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &types.ValidationError{Field: "body", Reason: "invalid JSON"})
		return
	}
	comment, err := s.svc.AddComment(r.Context(), act, id, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		unauthorized(w)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, &types.ValidationError{Field: "id", Reason: "must be a positive integer"})
		return
	}
	commentID, ok := pathID(r, "commentID")
	if !ok {
		writeError(w, &types.ValidationError{Field: "commentID", Reason: "must be a positive integer"})
		return
	}
	if err := s.svc.DeleteComment(r.Context(), act, id, commentID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type renderedEntry struct {
	ID        int64     `json:"id"`
	DefectID  int64     `json:"defect_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		unauthorized(w)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, &types.ValidationError{Field: "id", Reason: "must be a positive integer"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.svc.History(r.Context(), act, id, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderEntries(entries))
}

func (s *Server) handleProjectAudit(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		unauthorized(w)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, &types.ValidationError{Field: "id", Reason: "must be a positive integer"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.svc.ListAudit(r.Context(), act, id, r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderEntries(entries))
}

func (s *Server) handleProjectMetrics(w http.ResponseWriter, r *http.Request) {
	act, ok := actor(r)
	if !ok {
		unauthorized(w)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, &types.ValidationError{Field: "id", Reason: "must be a positive integer"})
		return
	}
	metrics, err := s.svc.Metrics(r.Context(), act, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func renderEntries(entries []audit.Rendered) []renderedEntry {
	out := make([]renderedEntry, len(entries))
	for i, e := range entries {
		out[i] = renderedEntry{
			ID:        e.Entry.ID,
			DefectID:  e.Entry.DefectID,
			Text:      e.Text,
			CreatedAt: e.Entry.CreatedAt,
		}
	}
	return out
}
