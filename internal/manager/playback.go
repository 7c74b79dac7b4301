package manager

import (
	"context"
	"log/slog"
	"strings"

	"github.com/salimbeni/soundtouch-hassistant/internal/adapters"
)

// PlayURL starts a raw stream URL on a device. The SoundTouch firmware
// is picky about stream transports, so three strategies are tried in
// order: the transport side channel with an http rewrite of the URL,
// the side channel with the resolved URL as-is, and finally selecting
// the URL as internet-radio content. The first success wins and caches
// the title for later status reads.
func (m *Manager) PlayURL(ctx context.Context, deviceID, rawURL, title string) error {
	if rawURL == "" {
		return validationErr("url is required")
	}
	if title == "" {
		title = "Stream"
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sess, err := m.resolveLocked(deviceID)
	if err != nil {
		return err
	}

	resolved := m.resolveRedirect(ctx, rawURL)

	candidates := []string{resolved}
	if httpURL, rewritten := strings.CutPrefix(resolved, "https://"); rewritten {
		candidates = []string{"http://" + httpURL, resolved}
	}
	for _, candidate := range candidates {
		if !strings.HasPrefix(candidate, "http://") {
			continue
		}
		if err := sess.client.SetStreamURI(ctx, candidate); err != nil {
			m.logger.Debug("stream uri rejected",
				slog.String("device", sess.displayName),
				slog.String("url", candidate),
				slog.String("error", err.Error()))
			continue
		}
		m.streamTitles[sess.deviceID] = title
		return nil
	}

	item := adapters.ContentItem{
		Source:       sourceTuneIn,
		Location:     resolved,
		Name:         title,
		IsPresetable: true,
	}
	if err := sess.client.SelectContent(ctx, item); err != nil {
		m.logger.Debug("content select rejected",
			slog.String("device", sess.displayName),
			slog.String("url", resolved),
			slog.String("error", err.Error()))
		return rejectedErr("playback failed with all strategies")
	}
	m.streamTitles[sess.deviceID] = title
	return nil
}

// PlayTuneIn starts a TuneIn station by guide id. A device in standby
// is woken first and given a fixed delay to boot its radio stack; the
// select is then attempted up to three times because a freshly woken
// device silently drops the first request more often than not. Success
// means the device reports TUNEIN as its active source.
func (m *Manager) PlayTuneIn(ctx context.Context, deviceID, guideID, name string) error {
	if guideID == "" {
		return validationErr("station id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sess, err := m.resolveLocked(deviceID)
	if err != nil {
		return err
	}

	now, err := sess.client.Status(ctx)
	if err != nil {
		return transportErr("could not read status on %s: %v", sess.displayName, err)
	}
	if now.Source == sourceStandby {
		if err := pressAndRelease(ctx, sess, adapters.KeyPower); err != nil {
			return err
		}
		if err := m.sleep(ctx, tuneinWakeDelay); err != nil {
			return transportErr("interrupted while waking %s: %v", sess.displayName, err)
		}
	}

	item := adapters.ContentItem{
		Source:       sourceTuneIn,
		Type:         "stationurl",
		Location:     "/v1/playback/station/" + guideID,
		Name:         name,
		IsPresetable: true,
	}

	for attempt := 1; attempt <= tuneinSelectAttempts; attempt++ {
		if err := sess.client.SelectContent(ctx, item); err != nil {
			m.logger.Debug("tunein select rejected",
				slog.String("device", sess.displayName),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
		}
		// The device can switch sources even when the select call times
		// out, so the title is cached regardless of the call's outcome.
		m.streamTitles[sess.deviceID] = name

		if err := m.sleep(ctx, tuneinVerifyDelay); err != nil {
			return transportErr("interrupted while starting station on %s: %v", sess.displayName, err)
		}
		now, err := sess.client.Status(ctx)
		if err == nil && now.Source == sourceTuneIn {
			return nil
		}

		if attempt < tuneinSelectAttempts {
			if err := m.sleep(ctx, tuneinRetryGap); err != nil {
				return transportErr("interrupted while starting station on %s: %v", sess.displayName, err)
			}
		}
	}
	return rejectedErr("device did not switch to TuneIn after %d attempts", tuneinSelectAttempts)
}
