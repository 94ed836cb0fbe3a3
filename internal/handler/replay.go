package handler

import (
	"net/http"

	"github.com/efreitasn/replaytrader/internal/service"
)

// ReplayHandler handles HTTP requests for series loading and replay
// controls.
type ReplayHandler struct {
	replaySvc *service.ReplayService
}

// NewReplayHandler creates a new ReplayHandler.
func NewReplayHandler(replaySvc *service.ReplayService) *ReplayHandler {
	return &ReplayHandler{replaySvc: replaySvc}
}

// loadSeriesRequest is the JSON request body for POST /series.
type loadSeriesRequest struct {
	Symbol  string `json:"symbol"`
	Date    string `json:"date"`
	Session string `json:"session"`
}

// speedRequest is the JSON request body for POST /replay/speed.
type speedRequest struct {
	Multiplier int `json:"multiplier"`
}

// seekRequest is the JSON request body for POST /replay/seek.
type seekRequest struct {
	Fraction *float64 `json:"fraction"`
}

// stepRequest is the JSON request body for POST /replay/step.
type stepRequest struct {
	Direction string `json:"direction"`
	Count     int    `json:"count"`
}

// LoadSeries handles POST /series.
func (h *ReplayHandler) LoadSeries(w http.ResponseWriter, r *http.Request) {
	var req loadSeriesRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	st, err := h.replaySvc.LoadSeries(r.Context(), service.LoadSeriesRequest{
		Symbol:  req.Symbol,
		Date:    req.Date,
		Session: req.Session,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, NewReplayStateResponse(st))
}

// State handles GET /replay.
func (h *ReplayHandler) State(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, NewReplayStateResponse(h.replaySvc.State()))
}

// Start handles POST /replay/start.
func (h *ReplayHandler) Start(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, NewReplayStateResponse(h.replaySvc.Start()))
}

// Pause handles POST /replay/pause.
func (h *ReplayHandler) Pause(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, NewReplayStateResponse(h.replaySvc.Pause()))
}

// Resume handles POST /replay/resume.
func (h *ReplayHandler) Resume(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, NewReplayStateResponse(h.replaySvc.Resume()))
}

// Stop handles POST /replay/stop.
func (h *ReplayHandler) Stop(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, NewReplayStateResponse(h.replaySvc.Stop()))
}

// SetSpeed handles POST /replay/speed.
func (h *ReplayHandler) SetSpeed(w http.ResponseWriter, r *http.Request) {
	var req speedRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	st, err := h.replaySvc.SetSpeed(req.Multiplier)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, NewReplayStateResponse(st))
}

// Seek handles POST /replay/seek.
func (h *ReplayHandler) Seek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Fraction == nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "fraction is required")
		return
	}

	st, err := h.replaySvc.Seek(*req.Fraction)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, NewReplayStateResponse(st))
}

// Step handles POST /replay/step.
func (h *ReplayHandler) Step(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	st, err := h.replaySvc.Step(req.Direction, req.Count)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, NewReplayStateResponse(st))
}
