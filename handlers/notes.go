package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"notejournal/journal"
	"notejournal/middleware"
)

// categoryField accepts either "name" or {"name": "..."}.
type categoryField string

func (c *categoryField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*c = categoryField(obj.Name)
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*c = categoryField(name)
	return nil
}

type noteRequest struct {
	Title    string        `json:"title"`
	Content  string        `json:"content"`
	Category categoryField `json:"category"`
}

func getUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "unauthorized")
	}
	return userID, ok
}

func noteID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// GetNotes returns the weekly view; ?week=N shifts it by whole weeks.
func (h *Handler) GetNotes(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(w, r)
	if !ok {
		return
	}
	offset := journal.ParseOffset(r.URL.Query().Get("week"))
	view, err := h.journal.Week(r.Context(), userID, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(w, r)
	if !ok {
		return
	}
	id, ok := noteID(r)
	if !ok {
		writeMessage(w, http.StatusNotFound, "not found")
		return
	}
	note, err := h.journal.Note(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(w, r)
	if !ok {
		return
	}
	var req noteRequest
	if !decode(w, r, &req) {
		return
	}
	note, err := h.journal.AddNote(r.Context(), userID, req.Title, req.Content, string(req.Category))
	if err != nil {
		writeError(w, r, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().Int64("user_id", userID).Int64("note_id", note.ID).Msg("note created")
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote serves PUT and PATCH; both replace title and content.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(w, r)
	if !ok {
		return
	}
	id, ok := noteID(r)
	if !ok {
		writeMessage(w, http.StatusNotFound, "not found")
		return
	}
	var req noteRequest
	if !decode(w, r, &req) {
		return
	}
	note, err := h.journal.EditNote(r.Context(), userID, id, req.Title, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(w, r)
	if !ok {
		return
	}
	id, ok := noteID(r)
	if !ok {
		writeMessage(w, http.StatusNotFound, "not found")
		return
	}
	if err := h.journal.DeleteNote(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().Int64("user_id", userID).Int64("note_id", id).Msg("note deleted")
	writeJSON(w, http.StatusOK, map[string]any{"deleted": 1})
}

func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	if _, ok := getUserID(w, r); !ok {
		return
	}
	categories, err := h.journal.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}
