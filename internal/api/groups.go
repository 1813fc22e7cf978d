package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// groupResponse is the result of a group fan-out command.
// Results map each resolved bulb to its command outcome.
type groupResponse struct {
	Group   string          `json:"group"`
	Results map[string]bool `json:"results"`
}

// targetsPowerRequest is the body for POST /groups/power. Targets may
// mix bulb and group names; unknown names are dropped during
// resolution rather than rejected.
type targetsPowerRequest struct {
	Targets []string `json:"targets"`
	powerRequest
}

// targetsColorRequest is the body for POST /groups/color.
type targetsColorRequest struct {
	Targets []string `json:"targets"`
	colorRequest
}

// targetsHSVRequest is the body for POST /groups/hsv.
type targetsHSVRequest struct {
	Targets []string `json:"targets"`
	hsvRequest
}

// targetsWarmWhiteRequest is the body for POST /groups/warmwhite.
type targetsWarmWhiteRequest struct {
	Targets []string `json:"targets"`
	warmWhiteRequest
}

// handleListGroups returns the configured group names and their members.
func (s *Server) handleListGroups(w http.ResponseWriter, _ *http.Request) {
	resolver := s.engine.Resolver()

	groups := make(map[string][]string)
	for _, name := range resolver.Groups() {
		groups[name] = resolver.GroupMembers(name)
	}

	writeJSON(w, http.StatusOK, map[string]any{"groups": groups, "count": len(groups)})
}

// handleGetGroup returns the member bulbs of a single group.
func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	members := s.engine.Resolver().GroupMembers(name)
	if members == nil {
		writeNotFound(w, "group not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"group": name, "members": members})
}

// handleGroupPower switches every bulb in a group on or off.
func (s *Server) handleGroupPower(w http.ResponseWriter, r *http.Request) {
	name, valid := s.knownGroup(w, r)
	if !valid {
		return
	}

	var req powerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	results := s.engine.SetPowerGroup(r.Context(), []string{name}, req.On)
	writeJSON(w, http.StatusOK, groupResponse{Group: name, Results: results})
}

// handleGroupColor sets the RGB colour of every bulb in a group.
func (s *Server) handleGroupColor(w http.ResponseWriter, r *http.Request) {
	name, valid := s.knownGroup(w, r)
	if !valid {
		return
	}

	req, ok := decodeColor(w, r)
	if !ok {
		return
	}

	results := s.engine.SetColorGroup(r.Context(), []string{name}, uint8(req.Red), uint8(req.Green), uint8(req.Blue))
	writeJSON(w, http.StatusOK, groupResponse{Group: name, Results: results})
}

// handleGroupHSV sets the colour of every bulb in a group from HSV coordinates.
func (s *Server) handleGroupHSV(w http.ResponseWriter, r *http.Request) {
	name, valid := s.knownGroup(w, r)
	if !valid {
		return
	}

	req, ok := decodeHSV(w, r)
	if !ok {
		return
	}

	results := s.engine.SetHSVGroup(r.Context(), []string{name}, req.Hue, req.Saturation, req.Value)
	writeJSON(w, http.StatusOK, groupResponse{Group: name, Results: results})
}

// handleGroupWarmWhite switches every bulb in a group to warm white mode.
func (s *Server) handleGroupWarmWhite(w http.ResponseWriter, r *http.Request) {
	name, valid := s.knownGroup(w, r)
	if !valid {
		return
	}

	req, ok := decodeWarmWhite(w, r)
	if !ok {
		return
	}

	results := s.engine.SetWarmWhiteGroup(r.Context(), []string{name}, req.Brightness)
	writeJSON(w, http.StatusOK, groupResponse{Group: name, Results: results})
}

// handleTargetsPower switches every bulb resolved from the targets list
// on or off. A list that resolves to nothing succeeds with an empty
// result map.
func (s *Server) handleTargetsPower(w http.ResponseWriter, r *http.Request) {
	var req targetsPowerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	results := s.engine.SetPowerGroup(r.Context(), req.Targets, req.On)
	s.writeTargetsResult(w, results)
}

// handleTargetsColor sets the RGB colour of every bulb resolved from the
// targets list.
func (s *Server) handleTargetsColor(w http.ResponseWriter, r *http.Request) {
	var req targetsColorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if !validColorRange(w, req.colorRequest) {
		return
	}

	results := s.engine.SetColorGroup(r.Context(), req.Targets, uint8(req.Red), uint8(req.Green), uint8(req.Blue))
	s.writeTargetsResult(w, results)
}

// handleTargetsHSV sets the colour of every bulb resolved from the
// targets list from HSV coordinates.
func (s *Server) handleTargetsHSV(w http.ResponseWriter, r *http.Request) {
	var req targetsHSVRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if !validHSVRange(w, req.hsvRequest) {
		return
	}

	results := s.engine.SetHSVGroup(r.Context(), req.Targets, req.Hue, req.Saturation, req.Value)
	s.writeTargetsResult(w, results)
}

// handleTargetsWarmWhite switches every bulb resolved from the targets
// list to warm white mode.
func (s *Server) handleTargetsWarmWhite(w http.ResponseWriter, r *http.Request) {
	var req targetsWarmWhiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if !validWarmWhiteRange(w, req.warmWhiteRequest) {
		return
	}

	results := s.engine.SetWarmWhiteGroup(r.Context(), req.Targets, req.Brightness)
	s.writeTargetsResult(w, results)
}

// writeTargetsResult writes the per-bulb outcome map of a targets
// fan-out. An empty map is a valid outcome, not an error.
func (s *Server) writeTargetsResult(w http.ResponseWriter, results map[string]bool) {
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

// knownGroup extracts the group name and writes a 404 when it is not configured.
func (s *Server) knownGroup(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "name")
	if s.engine.Resolver().GroupMembers(name) == nil {
		writeNotFound(w, "group not found")
		return name, false
	}
	return name, true
}
