package web

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/salimbeni/soundtouch-hassistant/internal/domain"
)

// handleScan kicks off discovery in the background; probing a full
// registry takes seconds and the UI polls /api/devices anyway.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	go s.manager.Discover(context.Background())
	s.okMessage(w, "scan started")
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.manager.Statuses(r.Context()))
}

func (s *Server) handleDeviceAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IP string `json:"ip"`
	}
	if err := decodeBody(r, &req); err != nil || req.IP == "" {
		s.badRequest(w, "ip is required")
		return
	}
	status, err := s.manager.AddDevice(r.Context(), req.IP)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, struct {
		Success bool                 `json:"success"`
		Device  *domain.DeviceStatus `json:"device"`
	}{true, status})
}

func (s *Server) handleDeviceForget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IP string `json:"ip"`
	}
	if err := decodeBody(r, &req); err != nil || req.IP == "" {
		s.badRequest(w, "ip is required")
		return
	}
	if err := s.manager.RemoveKnownDevice(req.IP); err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w)
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceID string `json:"deviceId"`
		URL      string `json:"url"`
		Title    string `json:"title"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	if err := s.manager.PlayURL(r.Context(), req.DeviceID, req.URL, req.Title); err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w)
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceID string `json:"deviceId"`
		Action   string `json:"action"`
		Value    string `json:"value"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}

	ctx := r.Context()
	var err error
	switch req.Action {
	case "play_pause":
		err = s.manager.PlayPause(ctx, req.DeviceID)
	case "next":
		err = s.manager.NextTrack(ctx, req.DeviceID)
	case "prev":
		err = s.manager.PreviousTrack(ctx, req.DeviceID)
	case "volume":
		level, convErr := strconv.Atoi(req.Value)
		if convErr != nil {
			s.badRequest(w, "volume value must be a number")
			return
		}
		err = s.manager.SetVolume(ctx, req.DeviceID, level)
	case "source":
		err = s.manager.SelectSource(ctx, req.DeviceID, req.Value)
	default:
		s.badRequest(w, "unknown action: "+req.Action)
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w)
}

func (s *Server) handlePreset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceID string `json:"deviceId"`
		Preset   int    `json:"preset"`
		Action   string `json:"action"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	switch req.Action {
	case "play", "store":
	default:
		s.badRequest(w, "action must be play or store")
		return
	}
	if err := s.manager.SelectPreset(r.Context(), req.DeviceID, req.Preset, req.Action == "store"); err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w)
}

func (s *Server) handleZone(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MasterID  string   `json:"masterId"`
		MemberIDs []string `json:"memberIds"`
		Action    string   `json:"action"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}

	var err error
	if req.Action == "remove" {
		err = s.manager.RemoveZone(r.Context(), req.MasterID)
	} else {
		err = s.manager.CreateZone(r.Context(), req.MasterID, req.MemberIDs)
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w)
}

func (s *Server) handleZoneRemoveMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MasterID string `json:"masterId"`
		SlaveID  string `json:"slaveId"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	if req.MasterID == "" || req.SlaveID == "" {
		s.badRequest(w, "masterId and slaveId are required")
		return
	}
	if err := s.manager.RemoveZoneMember(r.Context(), req.MasterID, req.SlaveID); err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w)
}

func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	settings, err := s.manager.Settings(r.Context(), chi.URLParam(r, "deviceID"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, settings)
}

// handleSettingsPost applies the fields present in the body; absent
// fields are left alone.
func (s *Server) handleSettingsPost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   *string `json:"name"`
		Bass   *int    `json:"bass"`
		Treble *int    `json:"treble"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}

	deviceID := chi.URLParam(r, "deviceID")
	ctx := r.Context()
	if req.Name != nil {
		if err := s.manager.SetName(ctx, deviceID, *req.Name); err != nil {
			s.fail(w, err)
			return
		}
	}
	if req.Bass != nil {
		if err := s.manager.SetBass(ctx, deviceID, *req.Bass); err != nil {
			s.fail(w, err)
			return
		}
	}
	if req.Treble != nil {
		if err := s.manager.SetTreble(ctx, deviceID, *req.Treble); err != nil {
			s.fail(w, err)
			return
		}
	}
	s.ok(w)
}

func (s *Server) handleReboot(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.RebootDevice(r.Context(), chi.URLParam(r, "deviceID")); err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w)
}

func (s *Server) handlePower(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.TogglePower(r.Context(), chi.URLParam(r, "deviceID")); err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w)
}

func (s *Server) handleMute(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.ToggleMute(r.Context(), chi.URLParam(r, "deviceID")); err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w)
}

func (s *Server) handleFavoritesList(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.favorites.List())
}

func (s *Server) handleFavoritesAdd(w http.ResponseWriter, r *http.Request) {
	var fav domain.Favorite
	if err := decodeBody(r, &fav); err != nil || fav.Name == "" {
		s.badRequest(w, "name is required")
		return
	}
	items, err := s.favorites.Add(fav)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeFavorites(w, items)
}

func (s *Server) handleFavoritesRemove(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.badRequest(w, "index must be a number")
		return
	}
	items, err := s.favorites.Remove(index)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeFavorites(w, items)
}

// Mutating favorite calls return the updated list inside the command
// envelope; the plain GET returns the bare array.
func (s *Server) writeFavorites(w http.ResponseWriter, items []domain.Favorite) {
	s.writeJSON(w, http.StatusOK, struct {
		Success   bool              `json:"success"`
		Favorites []domain.Favorite `json:"favorites"`
	}{Success: true, Favorites: items})
}

// handleRadioSearch queries the radio directory. An empty query falls
// back to the most clicked stations, optionally narrowed by country.
func (s *Server) handleRadioSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	country := r.URL.Query().Get("country")

	var (
		stations []domain.Station
		err      error
	)
	if query == "" {
		stations, err = s.radio.Top(r.Context(), country, catalogPageSize)
	} else {
		stations, err = s.radio.Search(r.Context(), query, catalogPageSize)
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stations)
}

func (s *Server) handleTuneInSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	var (
		stations []domain.Station
		err      error
	)
	if query == "" {
		stations, err = s.tunein.Popular(r.Context(), catalogPageSize)
	} else {
		stations, err = s.tunein.Search(r.Context(), query, catalogPageSize)
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stations)
}

func (s *Server) handleTuneInBrowse(w http.ResponseWriter, r *http.Request) {
	stations, err := s.tunein.Browse(r.Context(), r.URL.Query().Get("category"), catalogPageSize)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stations)
}

func (s *Server) handleTuneInCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.tunein.Categories(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleTuneInPlay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceID  string `json:"deviceId"`
		StationID string `json:"stationId"`
		Name      string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	if err := s.manager.PlayTuneIn(r.Context(), req.DeviceID, req.StationID, req.Name); err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w)
}
