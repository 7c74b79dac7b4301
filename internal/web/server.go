package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/salimbeni/soundtouch-hassistant/internal/domain"
	"github.com/salimbeni/soundtouch-hassistant/internal/registry"
)

// DeviceManager is the slice of the session manager the HTTP surface
// drives.
type DeviceManager interface {
	Discover(ctx context.Context) []domain.DeviceStatus
	Statuses(ctx context.Context) []domain.DeviceStatus
	AddDevice(ctx context.Context, ip string) (*domain.DeviceStatus, error)
	RemoveKnownDevice(ip string) error

	SetVolume(ctx context.Context, deviceID string, level int) error
	PlayPause(ctx context.Context, deviceID string) error
	NextTrack(ctx context.Context, deviceID string) error
	PreviousTrack(ctx context.Context, deviceID string) error
	ToggleMute(ctx context.Context, deviceID string) error
	TogglePower(ctx context.Context, deviceID string) error
	RebootDevice(ctx context.Context, deviceID string) error
	SelectSource(ctx context.Context, deviceID, source string) error
	SetBass(ctx context.Context, deviceID string, level int) error
	SetTreble(ctx context.Context, deviceID string, level int) error
	SetName(ctx context.Context, deviceID, name string) error
	Settings(ctx context.Context, deviceID string) (*domain.DeviceSettings, error)
	SelectPreset(ctx context.Context, deviceID string, slot int, store bool) error

	PlayURL(ctx context.Context, deviceID, rawURL, title string) error
	PlayTuneIn(ctx context.Context, deviceID, guideID, name string) error

	CreateZone(ctx context.Context, masterID string, memberIDs []string) error
	RemoveZone(ctx context.Context, masterID string) error
	RemoveZoneMember(ctx context.Context, masterID, slaveID string) error
}

type RadioCatalog interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Station, error)
	Top(ctx context.Context, countryCode string, limit int) ([]domain.Station, error)
}

type TuneInCatalog interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Station, error)
	Popular(ctx context.Context, limit int) ([]domain.Station, error)
	Browse(ctx context.Context, category string, limit int) ([]domain.Station, error)
	Categories(ctx context.Context) ([]domain.Category, error)
}

const catalogPageSize = 30

type Server struct {
	manager   DeviceManager
	favorites *registry.Favorites
	radio     RadioCatalog
	tunein    TuneInCatalog
	logger    *slog.Logger
	router    chi.Router
}

type Config struct {
	Manager   DeviceManager
	Favorites *registry.Favorites
	Radio     RadioCatalog
	TuneIn    TuneInCatalog
	Logger    *slog.Logger
}

func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		manager:   cfg.Manager,
		favorites: cfg.Favorites,
		radio:     cfg.Radio,
		tunein:    cfg.TuneIn,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Post("/scan", s.handleScan)
		r.Get("/devices", s.handleDevices)
		r.Post("/play", s.handlePlay)
		r.Post("/control", s.handleControl)
		r.Post("/preset", s.handlePreset)

		r.Post("/zone", s.handleZone)
		r.Post("/zone/remove_member", s.handleZoneRemoveMember)

		r.Route("/device", func(r chi.Router) {
			r.Post("/add", s.handleDeviceAdd)
			r.Post("/forget", s.handleDeviceForget)
			r.Get("/{deviceID}/settings", s.handleSettingsGet)
			r.Post("/{deviceID}/settings", s.handleSettingsPost)
			r.Post("/{deviceID}/reboot", s.handleReboot)
			r.Post("/{deviceID}/power", s.handlePower)
			r.Post("/{deviceID}/mute", s.handleMute)
		})

		r.Get("/favorites", s.handleFavoritesList)
		r.Post("/favorites", s.handleFavoritesAdd)
		r.Delete("/favorites/{index}", s.handleFavoritesRemove)

		r.Get("/radio/search", s.handleRadioSearch)

		r.Route("/tunein", func(r chi.Router) {
			r.Get("/search", s.handleTuneInSearch)
			r.Get("/browse", s.handleTuneInBrowse)
			r.Get("/categories", s.handleTuneInCategories)
			r.Post("/play", s.handleTuneInPlay)
		})
	})

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)))
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("could not write response", slog.String("error", err.Error()))
	}
}

type commandResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (s *Server) ok(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusOK, commandResult{Success: true})
}

func (s *Server) okMessage(w http.ResponseWriter, message string) {
	s.writeJSON(w, http.StatusOK, commandResult{Success: true, Message: message})
}

// fail reports a command failure. Device errors deliberately ride on a
// 200: the UI treats the envelope, not the HTTP status, as the outcome.
func (s *Server) fail(w http.ResponseWriter, err error) {
	s.writeJSON(w, http.StatusOK, commandResult{Success: false, Message: errorMessage(err)})
}

func (s *Server) badRequest(w http.ResponseWriter, message string) {
	s.writeJSON(w, http.StatusBadRequest, commandResult{Success: false, Message: message})
}

func errorMessage(err error) string {
	var cmdErr *domain.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Message
	}
	return err.Error()
}

func decodeBody(r *http.Request, into any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(into)
}
