package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/apperr"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/state"
	"github.com/lighthousedino/obsidian-front-matter-timestamps/internal/tracker"
)

// Handler holds API route handlers.
type Handler struct {
	tracker *tracker.Tracker
	stamper tracker.Stamper
	db      state.Store

	// postStampCommand is surfaced on /status so editor plugins can run
	// it client-side; the daemon never executes it.
	postStampCommand string

	clientCount func() int
}

// NewHandler creates a new Handler.
func NewHandler(tr *tracker.Tracker, st tracker.Stamper, db state.Store, postStampCommand string, clientCount func() int) *Handler {
	return &Handler{
		tracker:          tr,
		stamper:          st,
		db:               db,
		postStampCommand: postStampCommand,
		clientCount:      clientCount,
	}
}

// SetActive handles POST /api/active.
//
// The editor plugin reports the newly focused document; the tracker
// flushes the previous slot and begins tracking the new one.
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	h.tracker.OnActiveChange(r.Context(), req.Path)
	writeJSON(w, http.StatusOK, map[string]string{"active": h.tracker.Active()})
}

// Stamp handles POST /api/stamp.
//
// Forces a modified stamp on the given document (or the active one when
// the body omits a path), regardless of whether its content changed.
func (h *Handler) Stamp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	path := req.Path
	if path == "" {
		path = h.tracker.Active()
	}
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required and no document is active"))
		return
	}

	if err := h.stamper.StampModified(r.Context(), path); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		slog.Error("stamp failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

// Sync handles POST /api/sync.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	stamped, err := h.tracker.Sync(r.Context())
	if err != nil {
		slog.Error("sync failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"stamped": stamped})
}

// Status handles GET /api/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"active":             h.tracker.Active(),
		"post_stamp_command": h.postStampCommand,
	}
	if h.clientCount != nil {
		resp["sse_clients"] = h.clientCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

// History handles GET /api/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	stamps, err := h.db.RecentStamps(limit)
	if err != nil {
		slog.Error("history failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stamps": stamps,
		"count":  len(stamps),
	})
}
