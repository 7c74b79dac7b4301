package manager

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/salimbeni/soundtouch-hassistant/internal/adapters"
	"github.com/salimbeni/soundtouch-hassistant/internal/domain"
	"github.com/salimbeni/soundtouch-hassistant/internal/registry"
)

const (
	discoveryWorkers       = 5
	defaultDiscoveryWindow = 3 * time.Second

	redirectTimeout = 5 * time.Second
	volumeSettle    = 1 * time.Second
	zoneSettle      = 2 * time.Second

	tuneinWakeDelay      = 3 * time.Second
	tuneinSelectAttempts = 3
	tuneinVerifyDelay    = 1500 * time.Millisecond
	tuneinRetryGap       = 1 * time.Second

	presetSlotMin = 1
	presetSlotMax = 6

	sourceStandby = "STANDBY"
	sourceInvalid = "INVALID_SOURCE"
	sourceTuneIn  = "TUNEIN"

	// artSentinel is what some firmwares report instead of an artwork
	// URL; it means "art exists but was not included".
	artSentinel = "IMAGE_PRESENT"

	offlineIDPrefix = "offline-"
)

// session is one live device connection. Sessions are created by a
// successful probe or discovery event and destroyed only by explicit
// removal from the known list; an unresponsive session is reported as
// offline on each status request rather than evicted.
type session struct {
	client      adapters.DeviceClient
	deviceID    string
	ip          string
	displayName string
	deviceType  string
	mac         string

	notifyCancel context.CancelFunc
}

// Manager owns the live device-id to session mapping and fans control
// commands out to device clients. One coarse lock serializes map access
// and all device-mutating sequences; a slow operation on one device
// blocks all others, which keeps same-device mutations strictly ordered
// and the registry file single-writer.
type Manager struct {
	factory  adapters.ClientFactory
	known    *registry.KnownDevices
	browser  adapters.Browser
	notifier adapters.Notifier
	logger   *slog.Logger

	discoveryWindow time.Duration
	resolveRedirect func(ctx context.Context, rawURL string) string
	sleep           func(ctx context.Context, d time.Duration) error

	runCtx    context.Context
	runCancel context.CancelFunc

	mu           sync.Mutex
	sessions     map[string]*session
	streamTitles map[string]string
}

type Config struct {
	Factory  adapters.ClientFactory
	Known    *registry.KnownDevices
	Browser  adapters.Browser  // optional passive discovery
	Notifier adapters.Notifier // optional push notification feed
	Logger   *slog.Logger
}

func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	return &Manager{
		factory:         cfg.Factory,
		known:           cfg.Known,
		browser:         cfg.Browser,
		notifier:        cfg.Notifier,
		logger:          logger,
		discoveryWindow: defaultDiscoveryWindow,
		resolveRedirect: resolveRedirect,
		sleep:           sleepCtx,
		runCtx:          runCtx,
		runCancel:       runCancel,
		sessions:        map[string]*session{},
		streamTitles:    map[string]string{},
	}
}

// Close stops the notification listeners. Live sessions hold no other
// resources.
func (m *Manager) Close() {
	m.runCancel()
}

// AddDevice probes an IP and, on success, registers a live session,
// upserts the registry entry, and returns the device's current status.
func (m *Manager) AddDevice(ctx context.Context, ip string) (*domain.DeviceStatus, error) {
	client, err := m.factory.Probe(ctx, ip)
	if err != nil {
		return nil, transportErr("could not add device %s: %v", ip, err)
	}
	sess := m.registerSession(client)

	m.mu.Lock()
	defer m.mu.Unlock()
	status, err := m.statusForSessionLocked(ctx, sess)
	if err != nil {
		return nil, transportErr("added %s but could not read status: %v", sess.displayName, err)
	}
	return status, nil
}

// RemoveKnownDevice forgets a device: the registry entry is removed and
// any live session for that IP is dropped.
func (m *Manager) RemoveKnownDevice(ip string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed, err := m.known.Remove(ip)
	if err != nil {
		return transportErr("could not update known device list: %v", err)
	}
	if !removed {
		return notFoundErr("device not found in known list")
	}

	for id, sess := range m.sessions {
		if sess.ip != ip {
			continue
		}
		if sess.notifyCancel != nil {
			sess.notifyCancel()
		}
		delete(m.sessions, id)
		delete(m.streamTitles, id)
	}
	return nil
}

// probeAndRegister is the discovery-path probe: it registers a session
// but skips the status read AddDevice performs.
func (m *Manager) probeAndRegister(ctx context.Context, ip string) error {
	client, err := m.factory.Probe(ctx, ip)
	if err != nil {
		return err
	}
	m.registerSession(client)
	return nil
}

func (m *Manager) registerSession(client adapters.DeviceClient) *session {
	info := client.Info()
	sess := &session{
		client:      client,
		deviceID:    info.DeviceID,
		ip:          info.IP,
		displayName: info.Name,
		deviceType:  info.Type,
		mac:         info.MAC,
	}

	m.mu.Lock()
	old := m.sessions[info.DeviceID]
	m.sessions[info.DeviceID] = sess
	m.mu.Unlock()

	if old != nil && old.notifyCancel != nil {
		old.notifyCancel()
	}
	m.startNotifyLoop(sess)
	m.upsertKnown(info.IP, info.Name)
	return sess
}

// startNotifyLoop subscribes to the device's push feed so renames done
// on the device itself show up without a re-probe. Best effort: if the
// feed is unavailable the manager simply stays poll-only.
func (m *Manager) startNotifyLoop(sess *session) {
	if m.notifier == nil {
		return
	}

	ctx, cancel := context.WithCancel(m.runCtx)
	sess.notifyCancel = cancel

	go func() {
		events, err := m.notifier.Notifications(ctx, sess.ip)
		if err != nil {
			m.logger.Debug("notification feed unavailable",
				slog.String("ip", sess.ip), slog.String("error", err.Error()))
			return
		}
		for event := range events {
			if event.NewName == "" {
				continue
			}
			m.mu.Lock()
			sess.displayName = event.NewName
			m.mu.Unlock()
			m.upsertKnown(sess.ip, event.NewName)
		}
	}()
}

func (m *Manager) upsertKnown(ip, name string) {
	if m.known == nil || ip == "" {
		return
	}
	if _, err := m.known.Upsert(ip, name); err != nil {
		m.logger.Warn("could not persist known device",
			slog.String("ip", ip), slog.String("error", err.Error()))
	}
}

// resolveLocked maps a device id to its live session. Callers hold the
// manager lock.
func (m *Manager) resolveLocked(deviceID string) (*session, error) {
	sess, ok := m.sessions[deviceID]
	if !ok {
		return nil, notFoundErr("device not found")
	}
	return sess, nil
}

// sessionsInOrder returns live sessions sorted by display name for
// deterministic status listings. Callers hold the manager lock.
func (m *Manager) sessionsInOrder() []*session {
	out := make([]*session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].displayName != out[j].displayName {
			return out[i].displayName < out[j].displayName
		}
		return out[i].deviceID < out[j].deviceID
	})
	return out
}

func (m *Manager) hasSessionForIP(ip string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sess := range m.sessions {
		if sess.ip == ip {
			return true
		}
	}
	return false
}

func notFoundErr(format string, args ...any) *domain.CommandError {
	return &domain.CommandError{Kind: domain.ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func validationErr(format string, args ...any) *domain.CommandError {
	return &domain.CommandError{Kind: domain.ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func transportErr(format string, args ...any) *domain.CommandError {
	return &domain.CommandError{Kind: domain.ErrTransport, Message: fmt.Sprintf(format, args...)}
}

func rejectedErr(format string, args ...any) *domain.CommandError {
	return &domain.CommandError{Kind: domain.ErrProtocolRejected, Message: fmt.Sprintf(format, args...)}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// resolveRedirect follows redirects on a stream URL and returns the
// final location. Best effort: any failure keeps the original URL.
func resolveRedirect(ctx context.Context, rawURL string) string {
	reqCtx, cancel := context.WithTimeout(ctx, redirectTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return rawURL
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return rawURL
	}
	defer resp.Body.Close()

	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String()
	}
	return rawURL
}
