package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/handplay/internal/command"
	"github.com/ayusman/handplay/internal/dispatch"
	"github.com/ayusman/handplay/internal/playback"
)

// StateReader exposes the current playback state.
type StateReader interface {
	Snapshot() playback.State
}

// MediaController loads and unloads the video source.
type MediaController interface {
	Open(path string) error
	Release()
}

// CommandSubmitter queues commands for the dispatcher.
type CommandSubmitter interface {
	Submit(cmd command.Command, source dispatch.Source) bool
}

// PlaybackHandler serves playback state, source management and the command
// buttons. Button commands go through the dispatcher like gestures do.
type PlaybackHandler struct {
	state    StateReader
	media    MediaController
	commands CommandSubmitter
}

// NewPlaybackHandler creates a PlaybackHandler. media may be nil, in which
// case the source endpoints are not registered.
func NewPlaybackHandler(state StateReader, media MediaController, commands CommandSubmitter) *PlaybackHandler {
	return &PlaybackHandler{state: state, media: media, commands: commands}
}

// RegisterRoutes mounts the handler on r.
func (h *PlaybackHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/state", h.getState)
	r.Post("/api/commands/{token}", h.postCommand)
	if h.media != nil {
		r.Post("/api/source", h.openSource)
		r.Delete("/api/source", h.releaseSource)
	}
}

func (h *PlaybackHandler) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Snapshot())
}

type commandResponse struct {
	Command string `json:"command"`
	Token   string `json:"token"`
	Queued  bool   `json:"queued"`
}

func (h *PlaybackHandler) postCommand(w http.ResponseWriter, r *http.Request) {
	token := strings.ToUpper(chi.URLParam(r, "token"))

	cmd, err := command.Parse(token)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := commandResponse{Command: cmd.String(), Token: cmd.Token()}
	if !h.commands.Submit(cmd, dispatch.SourceButton) {
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.Queued = true
	writeJSON(w, http.StatusAccepted, resp)
}

type openSourceRequest struct {
	Path string `json:"path"`
}

func (h *PlaybackHandler) openSource(w http.ResponseWriter, r *http.Request) {
	var req openSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	if err := h.media.Open(req.Path); err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, playback.ErrInvalidMedia) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.state.Snapshot())
}

func (h *PlaybackHandler) releaseSource(w http.ResponseWriter, r *http.Request) {
	h.media.Release()
	w.WriteHeader(http.StatusNoContent)
}
