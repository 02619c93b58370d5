// internal/handler/task_handler.go
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gurkanbulca/barakaflow/internal/agenda"
	"github.com/gurkanbulca/barakaflow/internal/middleware"
	"github.com/gurkanbulca/barakaflow/internal/models"
	"github.com/gurkanbulca/barakaflow/internal/service"
)

type contentRequest struct {
	Content string `json:"content"`
}

// author returns the signed-in user. RequireAuth guarantees it is present.
func author(r *http.Request) service.Author {
	id, _ := middleware.GetUserIDFromContext(r.Context())
	name, _ := middleware.GetUserNameFromContext(r.Context())
	return service.Author{UserID: id, Name: name}
}

// ListTasks returns the caller's tasks, newest first. Optional query
// parameters q and filter narrow the result.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := agenda.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		h.writeError(w, r, models.NewValidationError("filter", err.Error()))
		return
	}
	tasks, err := h.tasks.List(r.Context(), author(r).UserID, r.URL.Query().Get("q"), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Get(r.Context(), author(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var in models.TaskInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	v := &models.ValidationError{}
	h.checkTaskText(v, in.Title, in.Description, in.Owner)
	if v.HasErrors() {
		h.writeError(w, r, v)
		return
	}

	task, err := h.tasks.Create(r.Context(), author(r).UserID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// UpdateTask applies a partial update. Absent fields are kept; null clears
// the optional ones.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var patch models.TaskPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}

	v := &models.ValidationError{}
	h.checkTaskText(v, patch.Title.Value, patch.Description.Value, patch.Owner.Value)
	if v.HasErrors() {
		h.writeError(w, r, v)
		return
	}

	task, err := h.tasks.Update(r.Context(), author(r).UserID, chi.URLParam(r, "id"), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.tasks.Delete(r.Context(), author(r).UserID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Task deleted successfully"})
}

// Day returns the to-do and completed tasks of ?date=YYYY-MM-DD, today by default.
func (h *Handler) Day(w http.ResponseWriter, r *http.Request) {
	date, err := h.dateParam(r.URL.Query().Get("date"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	view, err := h.tasks.Day(r.Context(), author(r).UserID, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) AddUpdate(w http.ResponseWriter, r *http.Request) {
	content, ok := h.readContent(w, r)
	if !ok {
		return
	}
	task, err := h.tasks.AddUpdate(r.Context(), author(r), chi.URLParam(r, "id"), content)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *Handler) Reply(w http.ResponseWriter, r *http.Request) {
	content, ok := h.readContent(w, r)
	if !ok {
		return
	}
	task, err := h.tasks.Reply(r.Context(), author(r), chi.URLParam(r, "id"), chi.URLParam(r, "updateId"), content)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.ToggleLike(r.Context(), author(r), chi.URLParam(r, "id"), chi.URLParam(r, "updateId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handler) readContent(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return "", false
	}
	v := &models.ValidationError{}
	middleware.CheckLength(v, "content", req.Content, h.limits.MaxContentLength)
	if v.HasErrors() {
		h.writeError(w, r, v)
		return "", false
	}
	return req.Content, true
}

func (h *Handler) checkTaskText(v *models.ValidationError, title, description, owner string) {
	middleware.CheckLength(v, "title", title, h.limits.MaxTitleLength)
	middleware.CheckLength(v, "description", description, h.limits.MaxDescriptionLength)
	middleware.CheckLength(v, "owner", owner, h.limits.MaxOwnerLength)
}

func (h *Handler) dateParam(s string) (agenda.Date, error) {
	if s == "" {
		return h.tasks.Today(), nil
	}
	d, err := agenda.ParseDate(s)
	if err != nil {
		return agenda.Date{}, models.NewValidationError("date", "date must be formatted as YYYY-MM-DD")
	}
	return d, nil
}
