package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/salimbeni/soundtouch-hassistant/internal/domain"
	"github.com/salimbeni/soundtouch-hassistant/internal/registry"
)

type fakeManager struct {
	calls    []string
	statuses []domain.DeviceStatus
	settings *domain.DeviceSettings
	err      error
}

func (f *fakeManager) record(format string, args ...any) error {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return f.err
}

func (f *fakeManager) Discover(ctx context.Context) []domain.DeviceStatus {
	f.record("discover")
	return f.statuses
}

func (f *fakeManager) Statuses(ctx context.Context) []domain.DeviceStatus {
	f.record("statuses")
	return f.statuses
}

func (f *fakeManager) AddDevice(ctx context.Context, ip string) (*domain.DeviceStatus, error) {
	if err := f.record("add %s", ip); err != nil {
		return nil, err
	}
	return &domain.DeviceStatus{ID: "DEV1", IP: ip}, nil
}

func (f *fakeManager) RemoveKnownDevice(ip string) error { return f.record("forget %s", ip) }

func (f *fakeManager) SetVolume(ctx context.Context, id string, level int) error {
	return f.record("volume %s %d", id, level)
}
func (f *fakeManager) PlayPause(ctx context.Context, id string) error {
	return f.record("play_pause %s", id)
}
func (f *fakeManager) NextTrack(ctx context.Context, id string) error { return f.record("next %s", id) }
func (f *fakeManager) PreviousTrack(ctx context.Context, id string) error {
	return f.record("prev %s", id)
}
func (f *fakeManager) ToggleMute(ctx context.Context, id string) error {
	return f.record("mute %s", id)
}
func (f *fakeManager) TogglePower(ctx context.Context, id string) error {
	return f.record("power %s", id)
}
func (f *fakeManager) RebootDevice(ctx context.Context, id string) error {
	return f.record("reboot %s", id)
}
func (f *fakeManager) SelectSource(ctx context.Context, id, source string) error {
	return f.record("source %s %s", id, source)
}
func (f *fakeManager) SetBass(ctx context.Context, id string, level int) error {
	return f.record("bass %s %d", id, level)
}
func (f *fakeManager) SetTreble(ctx context.Context, id string, level int) error {
	return f.record("treble %s %d", id, level)
}
func (f *fakeManager) SetName(ctx context.Context, id, name string) error {
	return f.record("name %s %s", id, name)
}

func (f *fakeManager) Settings(ctx context.Context, id string) (*domain.DeviceSettings, error) {
	if err := f.record("settings %s", id); err != nil {
		return nil, err
	}
	return f.settings, nil
}

func (f *fakeManager) SelectPreset(ctx context.Context, id string, slot int, store bool) error {
	return f.record("preset %s %d store=%t", id, slot, store)
}

func (f *fakeManager) PlayURL(ctx context.Context, id, rawURL, title string) error {
	return f.record("play %s %s", id, rawURL)
}

func (f *fakeManager) PlayTuneIn(ctx context.Context, id, guideID, name string) error {
	return f.record("tunein %s %s", id, guideID)
}

func (f *fakeManager) CreateZone(ctx context.Context, masterID string, memberIDs []string) error {
	return f.record("zone_create %s %s", masterID, strings.Join(memberIDs, ","))
}
func (f *fakeManager) RemoveZone(ctx context.Context, masterID string) error {
	return f.record("zone_remove %s", masterID)
}
func (f *fakeManager) RemoveZoneMember(ctx context.Context, masterID, slaveID string) error {
	return f.record("zone_remove_member %s %s", masterID, slaveID)
}

type fakeRadio struct {
	searches []string
	tops     []string
}

func (f *fakeRadio) Search(ctx context.Context, query string, limit int) ([]domain.Station, error) {
	f.searches = append(f.searches, query)
	return []domain.Station{{ID: "r1", Name: "Result"}}, nil
}

func (f *fakeRadio) Top(ctx context.Context, country string, limit int) ([]domain.Station, error) {
	f.tops = append(f.tops, country)
	return []domain.Station{{ID: "t1", Name: "Top"}}, nil
}

type fakeTuneIn struct {
	searches, browses []string
	populars          int
}

func (f *fakeTuneIn) Search(ctx context.Context, query string, limit int) ([]domain.Station, error) {
	f.searches = append(f.searches, query)
	return nil, nil
}

func (f *fakeTuneIn) Popular(ctx context.Context, limit int) ([]domain.Station, error) {
	f.populars++
	return nil, nil
}

func (f *fakeTuneIn) Browse(ctx context.Context, category string, limit int) ([]domain.Station, error) {
	f.browses = append(f.browses, category)
	return nil, nil
}

func (f *fakeTuneIn) Categories(ctx context.Context) ([]domain.Category, error) {
	return []domain.Category{{Key: "music", Name: "Music"}}, nil
}

var (
	_ DeviceManager = (*fakeManager)(nil)
	_ RadioCatalog  = (*fakeRadio)(nil)
	_ TuneInCatalog = (*fakeTuneIn)(nil)
)

type webRig struct {
	server  *httptest.Server
	manager *fakeManager
	radio   *fakeRadio
	tunein  *fakeTuneIn
}

func newWebRig(t *testing.T) *webRig {
	t.Helper()
	rig := &webRig{
		manager: &fakeManager{},
		radio:   &fakeRadio{},
		tunein:  &fakeTuneIn{},
	}
	srv := NewServer(Config{
		Manager:   rig.manager,
		Favorites: registry.LoadFavorites(filepath.Join(t.TempDir(), "favorites.json")),
		Radio:     rig.radio,
		TuneIn:    rig.tunein,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	rig.server = httptest.NewServer(srv.Handler())
	t.Cleanup(rig.server.Close)
	return rig
}

func (r *webRig) post(t *testing.T, path, body string) (*http.Response, commandResult) {
	t.Helper()
	resp, err := http.Post(r.server.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	var result commandResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, result
}

func (r *webRig) lastCall(t *testing.T) string {
	t.Helper()
	if len(r.manager.calls) == 0 {
		t.Fatal("no manager call recorded")
	}
	return r.manager.calls[len(r.manager.calls)-1]
}

func TestDevicesEndpoint(t *testing.T) {
	rig := newWebRig(t)
	rig.manager.statuses = []domain.DeviceStatus{{ID: "DEV1", Name: "Living Room"}}

	resp, err := http.Get(rig.server.URL + "/api/devices")
	if err != nil {
		t.Fatalf("GET /api/devices: %v", err)
	}
	defer resp.Body.Close()

	var devices []domain.DeviceStatus
	if err := json.NewDecoder(resp.Body).Decode(&devices); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(devices) != 1 || devices[0].ID != "DEV1" {
		t.Fatalf("devices = %+v", devices)
	}
}

func TestControlDispatch(t *testing.T) {
	rig := newWebRig(t)

	cases := []struct {
		body string
		want string
	}{
		{`{"deviceId":"D1","action":"play_pause"}`, "play_pause D1"},
		{`{"deviceId":"D1","action":"next"}`, "next D1"},
		{`{"deviceId":"D1","action":"prev"}`, "prev D1"},
		{`{"deviceId":"D1","action":"volume","value":"42"}`, "volume D1 42"},
		{`{"deviceId":"D1","action":"source","value":"AUX"}`, "source D1 AUX"},
	}
	for _, tc := range cases {
		resp, result := rig.post(t, "/api/control", tc.body)
		if resp.StatusCode != http.StatusOK || !result.Success {
			t.Fatalf("%s: status=%d result=%+v", tc.body, resp.StatusCode, result)
		}
		if got := rig.lastCall(t); got != tc.want {
			t.Fatalf("call = %q, want %q", got, tc.want)
		}
	}

	resp, _ := rig.post(t, "/api/control", `{"deviceId":"D1","action":"explode"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown action: status = %d, want 400", resp.StatusCode)
	}
	resp, _ = rig.post(t, "/api/control", `{"deviceId":"D1","action":"volume","value":"loud"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad volume: status = %d, want 400", resp.StatusCode)
	}
}

func TestCommandErrorsKeepStatus200(t *testing.T) {
	rig := newWebRig(t)
	rig.manager.err = &domain.CommandError{Kind: domain.ErrNotFound, Message: "device not found"}

	resp, result := rig.post(t, "/api/control", `{"deviceId":"GHOST","action":"play_pause"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 with failure envelope", resp.StatusCode)
	}
	if result.Success || result.Message != "device not found" {
		t.Fatalf("result = %+v", result)
	}
}

func TestZoneRemoveMemberValidatesParams(t *testing.T) {
	rig := newWebRig(t)

	resp, _ := rig.post(t, "/api/zone/remove_member", `{"masterId":"M1"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing slaveId", resp.StatusCode)
	}

	resp, result := rig.post(t, "/api/zone/remove_member", `{"masterId":"M1","slaveId":"S1"}`)
	if resp.StatusCode != http.StatusOK || !result.Success {
		t.Fatalf("status=%d result=%+v", resp.StatusCode, result)
	}
	if got := rig.lastCall(t); got != "zone_remove_member M1 S1" {
		t.Fatalf("call = %q", got)
	}
}

func TestZoneActionRouting(t *testing.T) {
	rig := newWebRig(t)

	rig.post(t, "/api/zone", `{"masterId":"M1","memberIds":["S1","S2"],"action":"create"}`)
	if got := rig.lastCall(t); got != "zone_create M1 S1,S2" {
		t.Fatalf("call = %q", got)
	}

	rig.post(t, "/api/zone", `{"masterId":"M1","action":"remove"}`)
	if got := rig.lastCall(t); got != "zone_remove M1" {
		t.Fatalf("call = %q", got)
	}
}

func TestPresetActionValidation(t *testing.T) {
	rig := newWebRig(t)

	resp, _ := rig.post(t, "/api/preset", `{"deviceId":"D1","preset":2,"action":"wipe"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unknown action", resp.StatusCode)
	}

	rig.post(t, "/api/preset", `{"deviceId":"D1","preset":2,"action":"store"}`)
	if got := rig.lastCall(t); got != "preset D1 2 store=true" {
		t.Fatalf("call = %q", got)
	}
}

func TestFavoritesRoundTrip(t *testing.T) {
	rig := newWebRig(t)

	resp, err := http.Post(rig.server.URL+"/api/favorites", "application/json",
		strings.NewReader(`{"name":"Radio Swiss Jazz","url":"http://stream.example/jazz","type":"url"}`))
	if err != nil {
		t.Fatalf("POST /api/favorites: %v", err)
	}
	var added struct {
		Success   bool              `json:"success"`
		Favorites []domain.Favorite `json:"favorites"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&added); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if !added.Success || len(added.Favorites) != 1 || added.Favorites[0].Name != "Radio Swiss Jazz" {
		t.Fatalf("add response = %+v", added)
	}

	// GET stays a bare array.
	listResp, err := http.Get(rig.server.URL + "/api/favorites")
	if err != nil {
		t.Fatalf("GET /api/favorites: %v", err)
	}
	var items []domain.Favorite
	if err := json.NewDecoder(listResp.Body).Decode(&items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	listResp.Body.Close()
	if len(items) != 1 {
		t.Fatalf("favorites = %+v", items)
	}

	req, _ := http.NewRequest(http.MethodDelete, rig.server.URL+"/api/favorites/0", nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE favorite: %v", err)
	}
	defer delResp.Body.Close()
	var removed struct {
		Success   bool              `json:"success"`
		Favorites []domain.Favorite `json:"favorites"`
	}
	if err := json.NewDecoder(delResp.Body).Decode(&removed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !removed.Success || len(removed.Favorites) != 0 {
		t.Fatalf("remove response = %+v", removed)
	}
}

func TestRadioSearchFallsBackToTop(t *testing.T) {
	rig := newWebRig(t)

	if _, err := http.Get(rig.server.URL + "/api/radio/search?country=CH"); err != nil {
		t.Fatalf("GET radio search: %v", err)
	}
	if len(rig.radio.tops) != 1 || rig.radio.tops[0] != "CH" {
		t.Fatalf("tops = %v, want country fallback", rig.radio.tops)
	}

	if _, err := http.Get(rig.server.URL + "/api/radio/search?q=jazz"); err != nil {
		t.Fatalf("GET radio search: %v", err)
	}
	if len(rig.radio.searches) != 1 || rig.radio.searches[0] != "jazz" {
		t.Fatalf("searches = %v", rig.radio.searches)
	}
}

func TestTuneInSearchFallsBackToPopular(t *testing.T) {
	rig := newWebRig(t)

	if _, err := http.Get(rig.server.URL + "/api/tunein/search"); err != nil {
		t.Fatalf("GET tunein search: %v", err)
	}
	if rig.tunein.populars != 1 {
		t.Fatalf("populars = %d, want 1", rig.tunein.populars)
	}

	if _, err := http.Get(rig.server.URL + "/api/tunein/search?q=news"); err != nil {
		t.Fatalf("GET tunein search: %v", err)
	}
	if len(rig.tunein.searches) != 1 || rig.tunein.searches[0] != "news" {
		t.Fatalf("searches = %v", rig.tunein.searches)
	}
}

func TestTuneInPlay(t *testing.T) {
	rig := newWebRig(t)

	_, result := rig.post(t, "/api/tunein/play", `{"deviceId":"D1","stationId":"s24861","name":"Radio Swiss Jazz"}`)
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if got := rig.lastCall(t); got != "tunein D1 s24861" {
		t.Fatalf("call = %q", got)
	}
}

func TestSettingsUpdateAppliesPresentFields(t *testing.T) {
	rig := newWebRig(t)

	rig.post(t, "/api/device/D1/settings", `{"bass":-3}`)
	if got := rig.lastCall(t); got != "bass D1 -3" {
		t.Fatalf("call = %q", got)
	}
	if len(rig.manager.calls) != 1 {
		t.Fatalf("calls = %v, want bass only", rig.manager.calls)
	}

	rig.post(t, "/api/device/D1/settings", `{"name":"Lounge","treble":2}`)
	calls := rig.manager.calls
	if len(calls) != 3 || calls[1] != "name D1 Lounge" || calls[2] != "treble D1 2" {
		t.Fatalf("calls = %v", calls)
	}
}
