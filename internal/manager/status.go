package manager

import (
	"context"
	"log/slog"
	"sync"

	"github.com/salimbeni/soundtouch-hassistant/internal/adapters"
	"github.com/salimbeni/soundtouch-hassistant/internal/domain"
)

// Discover re-probes every known device through a bounded worker pool,
// runs one passive network listen window for devices nobody added yet,
// and returns the merged status list. Per-entry probe failures are
// swallowed; unreachable known devices still show up as offline entries
// in the result.
func (m *Manager) Discover(ctx context.Context) []domain.DeviceStatus {
	var wg sync.WaitGroup
	sem := make(chan struct{}, discoveryWorkers)
	for _, entry := range m.known.Snapshot() {
		if entry.IP == "" {
			continue
		}
		wg.Add(1)
		go func(ip string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if err := m.probeAndRegister(ctx, ip); err != nil {
				m.logger.Debug("known device did not answer probe",
					slog.String("ip", ip), slog.String("error", err.Error()))
			}
		}(entry.IP)
	}
	wg.Wait()

	if m.browser != nil {
		found, err := m.browser.Listen(ctx, m.discoveryWindow)
		if err != nil {
			m.logger.Warn("passive discovery failed", slog.String("error", err.Error()))
		}
		for _, ann := range found {
			if ann.IP == "" || m.hasSessionForIP(ann.IP) {
				continue
			}
			if err := m.probeAndRegister(ctx, ann.IP); err != nil {
				m.logger.Debug("announced device did not answer probe",
					slog.String("ip", ann.IP), slog.String("error", err.Error()))
			}
		}
	}

	return m.Statuses(ctx)
}

// Statuses reports every known device exactly once: live sessions are
// serialized from fresh device reads, known entries with no live
// session get one direct probe, and whatever still does not answer is
// reported as a synthetic offline entry.
func (m *Manager) Statuses(ctx context.Context) []domain.DeviceStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	statuses := make([]domain.DeviceStatus, 0, len(m.sessions))
	liveIPs := map[string]bool{}
	for _, sess := range m.sessionsInOrder() {
		status, err := m.statusForSessionLocked(ctx, sess)
		if err != nil {
			m.logger.Debug("session did not answer status read",
				slog.String("device", sess.displayName), slog.String("error", err.Error()))
			continue
		}
		statuses = append(statuses, *status)
		liveIPs[sess.ip] = true
	}

	for _, entry := range m.known.Snapshot() {
		if entry.IP == "" || liveIPs[entry.IP] {
			continue
		}
		if status := m.probeKnownLocked(ctx, entry); status != nil {
			statuses = append(statuses, *status)
			liveIPs[entry.IP] = true
			continue
		}
		statuses = append(statuses, offlineStatus(entry))
	}
	return statuses
}

// statusForSessionLocked builds the full status for one live session.
// Presets are best effort; everything else must answer.
func (m *Manager) statusForSessionLocked(ctx context.Context, sess *session) (*domain.DeviceStatus, error) {
	now, err := sess.client.Status(ctx)
	if err != nil {
		return nil, err
	}
	vol, err := sess.client.Volume(ctx)
	if err != nil {
		return nil, err
	}
	zone, err := sess.client.Zone(ctx, true)
	if err != nil {
		return nil, err
	}

	var presets []domain.Preset
	if slots, err := sess.client.Presets(ctx); err != nil {
		m.logger.Debug("could not read presets",
			slog.String("device", sess.displayName), slog.String("error", err.Error()))
	} else {
		presets = presetList(slots)
	}

	status := domain.DeviceStatus{
		ID:         sess.deviceID,
		Name:       sess.displayName,
		IP:         sess.ip,
		Type:       sess.deviceType,
		Source:     now.Source,
		Volume:     vol.Actual,
		Muted:      vol.Muted,
		Playing:    normalizedPlayState(now),
		NowPlaying: m.nowPlayingLocked(sess.deviceID, now),
		Zone:       zoneInfo(zone),
		Presets:    presets,
	}
	return &status, nil
}

// nowPlayingLocked applies the metadata fallback chain: device-reported
// track, then selected content name, then the last title this manager
// started on the device.
func (m *Manager) nowPlayingLocked(deviceID string, now *adapters.NowPlayingStatus) domain.NowPlaying {
	track := now.Track
	if track == "" && now.ContentItem != nil {
		track = now.ContentItem.Name
	}
	if track == "" {
		track = m.streamTitles[deviceID]
	}

	artist := now.Artist
	if artist == "" {
		artist = now.Source
	}

	var art *string
	if now.ArtURL != "" && now.ArtURL != artSentinel {
		url := now.ArtURL
		art = &url
	}

	return domain.NowPlaying{
		Track:  track,
		Artist: artist,
		Album:  now.Album,
		Art:    art,
	}
}

// normalizedPlayState folds the raw device play status into the
// reported enum. A device with an active source and selected content
// but no explicit play status is treated as playing: several firmwares
// omit the status field on internet radio sources.
func normalizedPlayState(now *adapters.NowPlayingStatus) domain.PlayState {
	if now.Source == sourceStandby {
		return domain.PlayStateStandby
	}

	raw := now.PlayStatus
	if raw == "" && now.Source != "" && now.Source != sourceInvalid &&
		now.ContentItem != nil && now.ContentItem.Location != "" {
		raw = "PLAY_STATE"
	}

	switch raw {
	case "PLAY_STATE", "BUFFERING_STATE":
		return domain.PlayStatePlaying
	case "PAUSE_STATE", "STOP_STATE":
		return domain.PlayStatePaused
	default:
		return domain.PlayStateStandby
	}
}

// probeKnownLocked gives a known-but-not-live entry one direct chance
// to answer. On success the session is kept for later commands and a
// minimal online status is returned; volume is not read to keep the
// probe cheap.
func (m *Manager) probeKnownLocked(ctx context.Context, entry domain.KnownDevice) *domain.DeviceStatus {
	client, err := m.factory.Probe(ctx, entry.IP)
	if err != nil {
		return nil
	}
	now, err := client.Status(ctx)
	if err != nil {
		return nil
	}

	info := client.Info()
	sess := &session{
		client:      client,
		deviceID:    info.DeviceID,
		ip:          info.IP,
		displayName: info.Name,
		deviceType:  info.Type,
		mac:         info.MAC,
	}
	if old := m.sessions[info.DeviceID]; old != nil && old.notifyCancel != nil {
		old.notifyCancel()
	}
	m.sessions[info.DeviceID] = sess
	m.startNotifyLoop(sess)

	playing := domain.PlayStatePlaying
	if now.Source == sourceStandby || now.Source == "" {
		playing = domain.PlayStateStandby
	}
	return &domain.DeviceStatus{
		ID:      info.DeviceID,
		Name:    info.Name,
		IP:      info.IP,
		Type:    info.Type,
		Source:  now.Source,
		Volume:  0,
		Muted:   false,
		Playing: playing,
		NowPlaying: domain.NowPlaying{
			Track:  "Ready to play",
			Artist: now.Source,
		},
	}
}

// offlineStatus is the placeholder entry for a known device nobody can
// reach. The synthetic id keeps it addressable in listings without
// colliding with a real device id.
func offlineStatus(entry domain.KnownDevice) domain.DeviceStatus {
	name := entry.Name
	if name == "" {
		name = "Unknown"
	}
	return domain.DeviceStatus{
		ID:        offlineIDPrefix + entry.IP,
		Name:      name,
		IP:        entry.IP,
		Type:      "Offline",
		Muted:     true,
		Playing:   domain.PlayStateOffline,
		IsOffline: true,
	}
}

func presetList(slots []adapters.PresetSlot) []domain.Preset {
	presets := make([]domain.Preset, 0, len(slots))
	for _, slot := range slots {
		if slot.Item.Name == "" && slot.Item.Source == "" {
			continue
		}
		preset := domain.Preset{
			Slot:   slot.ID,
			Name:   slot.Item.Name,
			Source: slot.Item.Source,
		}
		if slot.Item.ContainerArt != "" {
			art := slot.Item.ContainerArt
			preset.Art = &art
		}
		presets = append(presets, preset)
	}
	return presets
}

func zoneInfo(zone *adapters.Zone) *domain.ZoneInfo {
	if zone == nil || zone.Master == "" {
		return nil
	}
	members := make([]string, 0, len(zone.Members))
	for _, member := range zone.Members {
		if member.DeviceID != "" {
			members = append(members, member.DeviceID)
		}
	}
	if len(members) == 0 {
		return nil
	}
	return &domain.ZoneInfo{Master: zone.Master, Members: members}
}
