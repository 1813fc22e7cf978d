package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wrenfold/bulbsync/internal/bulb"
)

// powerRequest is the body for POST /bulbs/{name}/power.
type powerRequest struct {
	On bool `json:"on"`
}

// colorRequest is the body for POST /bulbs/{name}/color.
// Channel values are 0-255.
type colorRequest struct {
	Red   int `json:"red"`
	Green int `json:"green"`
	Blue  int `json:"blue"`
}

// hsvRequest is the body for POST /bulbs/{name}/hsv.
// Hue is 0-360 degrees; saturation and value are 0-100 percent.
type hsvRequest struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Value      float64 `json:"value"`
}

// warmWhiteRequest is the body for POST /bulbs/{name}/warmwhite.
// Brightness is 0-100 percent.
type warmWhiteRequest struct {
	Brightness float64 `json:"brightness"`
}

// commandResponse is the result of a single-bulb command.
type commandResponse struct {
	Bulb  string      `json:"bulb"`
	OK    bool        `json:"ok"`
	State *bulb.State `json:"state,omitempty"`
}

// handleListBulbs returns the cached state of every known bulb.
func (s *Server) handleListBulbs(w http.ResponseWriter, _ *http.Request) {
	states := s.engine.ListStates()
	writeJSON(w, http.StatusOK, map[string]any{"bulbs": states, "count": len(states)})
}

// handleGetBulb returns the cached state of a single bulb.
func (s *Server) handleGetBulb(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	state, err := s.engine.GetState(name)
	if err != nil {
		if errors.Is(err, bulb.ErrBulbNotFound) {
			writeNotFound(w, "bulb not found")
			return
		}
		writeInternalError(w, "failed to get bulb state")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// handleSetPower switches a bulb on or off.
func (s *Server) handleSetPower(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.knownBulb(w, name) {
		return
	}

	var req powerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	ok := s.engine.SetPower(r.Context(), name, req.On)
	s.writeCommandResult(w, name, ok)
}

// handleSetColor sets a bulb's RGB colour. Channel values must be 0-255.
func (s *Server) handleSetColor(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.knownBulb(w, name) {
		return
	}

	req, valid := decodeColor(w, r)
	if !valid {
		return
	}

	ok := s.engine.SetColor(r.Context(), name, uint8(req.Red), uint8(req.Green), uint8(req.Blue))
	s.writeCommandResult(w, name, ok)
}

// handleSetHSV sets a bulb's colour from hue/saturation/value coordinates.
func (s *Server) handleSetHSV(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.knownBulb(w, name) {
		return
	}

	req, valid := decodeHSV(w, r)
	if !valid {
		return
	}

	ok := s.engine.SetHSV(r.Context(), name, req.Hue, req.Saturation, req.Value)
	s.writeCommandResult(w, name, ok)
}

// handleSetWarmWhite switches a bulb to warm white mode at the given brightness.
func (s *Server) handleSetWarmWhite(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.knownBulb(w, name) {
		return
	}

	req, valid := decodeWarmWhite(w, r)
	if !valid {
		return
	}

	ok := s.engine.SetWarmWhite(r.Context(), name, req.Brightness)
	s.writeCommandResult(w, name, ok)
}

// handleRefreshBulb queries the bulb's live status and reconciles the cache.
func (s *Server) handleRefreshBulb(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.knownBulb(w, name) {
		return
	}

	ok := s.engine.Refresh(r.Context(), name)
	s.writeCommandResult(w, name, ok)
}

// handleRefreshAll forces a status refresh of every known bulb.
func (s *Server) handleRefreshAll(w http.ResponseWriter, r *http.Request) {
	results := s.engine.ForceRefreshAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// handleBulbHistory returns recent state changes for a bulb, newest first.
//
// Query parameters:
//   - limit: maximum entries to return (default 50, capped at 200)
func (s *Server) handleBulbHistory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.knownBulb(w, name) {
		return
	}

	if s.history == nil {
		writeNotFound(w, "state history not enabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeValidationError(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	entries, err := s.history.GetHistory(r.Context(), name, limit)
	if err != nil {
		s.logger.Error("history query failed", "bulb", name, "error", err)
		writeInternalError(w, "failed to query history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"history": entries, "count": len(entries)})
}

// knownBulb writes a 404 and returns false when the bulb is not configured.
func (s *Server) knownBulb(w http.ResponseWriter, name string) bool {
	if !s.engine.Store().Has(name) {
		writeNotFound(w, "bulb not found")
		return false
	}
	return true
}

// writeCommandResult writes the post-command state snapshot for a bulb.
// A failed command reports ok=false with the untouched cached state.
func (s *Server) writeCommandResult(w http.ResponseWriter, name string, ok bool) {
	state, err := s.engine.GetState(name)
	if err != nil {
		writeInternalError(w, "failed to read bulb state")
		return
	}

	writeJSON(w, http.StatusOK, commandResponse{Bulb: name, OK: ok, State: state})
}

// decodeColor parses and validates a colour command body.
func decodeColor(w http.ResponseWriter, r *http.Request) (colorRequest, bool) {
	var req colorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return req, false
	}
	return req, validColorRange(w, req)
}

// validColorRange writes a validation error and returns false when any
// channel is outside 0-255.
func validColorRange(w http.ResponseWriter, req colorRequest) bool {
	if !inRange(req.Red, 0, 255) || !inRange(req.Green, 0, 255) || !inRange(req.Blue, 0, 255) {
		writeValidationError(w, "red, green and blue must be between 0 and 255")
		return false
	}
	return true
}

// decodeHSV parses and validates an HSV command body.
func decodeHSV(w http.ResponseWriter, r *http.Request) (hsvRequest, bool) {
	var req hsvRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return req, false
	}
	return req, validHSVRange(w, req)
}

// validHSVRange writes a validation error and returns false when
// saturation or value falls outside 0-100.
func validHSVRange(w http.ResponseWriter, req hsvRequest) bool {
	if req.Saturation < 0 || req.Saturation > 100 || req.Value < 0 || req.Value > 100 {
		writeValidationError(w, "saturation and value must be between 0 and 100")
		return false
	}
	return true
}

// decodeWarmWhite parses and validates a warm white command body.
func decodeWarmWhite(w http.ResponseWriter, r *http.Request) (warmWhiteRequest, bool) {
	var req warmWhiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return req, false
	}
	return req, validWarmWhiteRange(w, req)
}

// validWarmWhiteRange writes a validation error and returns false when
// brightness falls outside 0-100.
func validWarmWhiteRange(w http.ResponseWriter, req warmWhiteRequest) bool {
	if req.Brightness < 0 || req.Brightness > 100 {
		writeValidationError(w, "brightness must be between 0 and 100")
		return false
	}
	return true
}

// inRange reports whether v lies within [lo, hi].
func inRange(v, lo, hi int) bool {
	return v >= lo && v <= hi
}
