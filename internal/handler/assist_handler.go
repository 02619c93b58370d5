// internal/handler/assist_handler.go
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gurkanbulca/barakaflow/internal/middleware"
	"github.com/gurkanbulca/barakaflow/internal/models"
	"github.com/gurkanbulca/barakaflow/internal/service"
)

type suggestRequest struct {
	TaskID string `json:"taskId"`
}

type dayRequest struct {
	Date string `json:"date"`
}

func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.TaskID == "" {
		h.writeError(w, r, models.NewValidationError("taskId", "taskId is required"))
		return
	}
	res, err := h.assist.Suggest(r.Context(), author(r).UserID, req.TaskID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// OptimizeDay plans the tasks of the requested date. An empty body means today.
func (h *Handler) OptimizeDay(w http.ResponseWriter, r *http.Request) {
	var req dayRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	date, err := h.dateParam(req.Date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.assist.OptimizeDay(r.Context(), author(r).UserID, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var in service.ChatInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	v := &models.ValidationError{}
	middleware.CheckLength(v, "message", in.Message, h.limits.MaxMessageLength)
	if v.HasErrors() {
		h.writeError(w, r, v)
		return
	}
	res, err := h.assist.Chat(r.Context(), author(r).UserID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationId")
	history, err := h.assist.History(r.Context(), author(r).UserID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversationId": id, "turns": history})
}

func (h *Handler) ClearChat(w http.ResponseWriter, r *http.Request) {
	if err := h.assist.ClearChat(r.Context(), author(r).UserID, chi.URLParam(r, "conversationId")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Conversation cleared"})
}
