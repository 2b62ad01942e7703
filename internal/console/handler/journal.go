package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/xela07ax/ran-copilot/internal/audit"
)

// JournalReader - чтение операционного журнала.
type JournalReader interface {
	Recent(ctx context.Context, subject string, limit int) ([]audit.Event, error)
}

type JournalHandler struct {
	repo JournalReader
}

func NewJournalHandler(repo JournalReader) *JournalHandler {
	return &JournalHandler{repo: repo}
}

// Recent возвращает последние записи журнала
// GET /api/v1/journal?view=...&limit=...
func (h *JournalHandler) Recent(w http.ResponseWriter, r *http.Request) {
	view := r.URL.Query().Get("view")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.repo.Recent(r.Context(), view, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch journal")
		return
	}
	writeJSON(w, http.StatusOK, events)
}
