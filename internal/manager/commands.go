package manager

import (
	"context"
	"fmt"

	"github.com/salimbeni/soundtouch-hassistant/internal/adapters"
	"github.com/salimbeni/soundtouch-hassistant/internal/domain"
)

// SetVolume sets an absolute volume level, then waits a short settle
// delay so an immediate status read reflects the change.
func (m *Manager) SetVolume(ctx context.Context, deviceID string, level int) error {
	if level < 0 || level > 100 {
		return validationErr("volume must be between 0 and 100")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sess, err := m.resolveLocked(deviceID)
	if err != nil {
		return err
	}
	if err := sess.client.SetVolume(ctx, level); err != nil {
		return transportErr("could not set volume on %s: %v", sess.displayName, err)
	}
	return m.sleep(ctx, volumeSettle)
}

func (m *Manager) PlayPause(ctx context.Context, deviceID string) error {
	return m.pressKey(ctx, deviceID, adapters.KeyPlayPause)
}

func (m *Manager) NextTrack(ctx context.Context, deviceID string) error {
	return m.pressKey(ctx, deviceID, adapters.KeyNextTrack)
}

func (m *Manager) PreviousTrack(ctx context.Context, deviceID string) error {
	return m.pressKey(ctx, deviceID, adapters.KeyPrevTrack)
}

func (m *Manager) ToggleMute(ctx context.Context, deviceID string) error {
	return m.pressKey(ctx, deviceID, adapters.KeyMute)
}

// TogglePower flips the device between standby and its last source.
func (m *Manager) TogglePower(ctx context.Context, deviceID string) error {
	return m.pressKey(ctx, deviceID, adapters.KeyPower)
}

// RebootDevice power-cycles via the remote key. The control protocol
// has no true reboot, so a device stuck in standby only toggles state.
func (m *Manager) RebootDevice(ctx context.Context, deviceID string) error {
	return m.pressKey(ctx, deviceID, adapters.KeyPower)
}

func (m *Manager) pressKey(ctx context.Context, deviceID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, err := m.resolveLocked(deviceID)
	if err != nil {
		return err
	}
	return pressAndRelease(ctx, sess, key)
}

func pressAndRelease(ctx context.Context, sess *session, key string) error {
	if err := sess.client.SendKey(ctx, key, adapters.KeyStatePress); err != nil {
		return transportErr("could not send %s to %s: %v", key, sess.displayName, err)
	}
	if err := sess.client.SendKey(ctx, key, adapters.KeyStateRelease); err != nil {
		return transportErr("could not send %s to %s: %v", key, sess.displayName, err)
	}
	return nil
}

func (m *Manager) SelectSource(ctx context.Context, deviceID, source string) error {
	if source == "" {
		return validationErr("source is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sess, err := m.resolveLocked(deviceID)
	if err != nil {
		return err
	}
	if err := sess.client.SelectSource(ctx, source); err != nil {
		return transportErr("could not select source %s on %s: %v", source, sess.displayName, err)
	}
	return nil
}

func (m *Manager) SetBass(ctx context.Context, deviceID string, level int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, err := m.resolveLocked(deviceID)
	if err != nil {
		return err
	}
	if err := sess.client.SetBass(ctx, level); err != nil {
		return transportErr("could not set bass on %s: %v", sess.displayName, err)
	}
	return nil
}

func (m *Manager) SetTreble(ctx context.Context, deviceID string, level int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, err := m.resolveLocked(deviceID)
	if err != nil {
		return err
	}
	if err := sess.client.SetTreble(ctx, level); err != nil {
		return transportErr("could not set treble on %s: %v", sess.displayName, err)
	}
	return nil
}

// SetName renames the device and keeps the local caches in sync, so
// listings and the registry reflect the new name without a re-probe.
func (m *Manager) SetName(ctx context.Context, deviceID, name string) error {
	if name == "" {
		return validationErr("name is required")
	}

	m.mu.Lock()
	sess, err := m.resolveLocked(deviceID)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if err := sess.client.SetName(ctx, name); err != nil {
		m.mu.Unlock()
		return transportErr("could not rename %s: %v", sess.displayName, err)
	}
	sess.displayName = name
	ip := sess.ip
	m.mu.Unlock()

	m.upsertKnown(ip, name)
	return nil
}

// Settings reads the per-device settings view. Bass and treble are
// probed individually; a model that rejects either is reported as
// unsupported rather than failing the whole read.
func (m *Manager) Settings(ctx context.Context, deviceID string) (*domain.DeviceSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, err := m.resolveLocked(deviceID)
	if err != nil {
		return nil, err
	}

	info := sess.client.Info()
	info.Name = sess.displayName

	settings := domain.DeviceSettings{Info: info}
	if bass, err := sess.client.Bass(ctx); err == nil {
		settings.Audio.Bass = bass
		settings.Audio.BassSupported = true
	}
	if treble, err := sess.client.Treble(ctx); err == nil {
		settings.Audio.Treble = treble
		settings.Audio.TrebleSupported = true
	}
	return &settings, nil
}

// SelectPreset stores or plays one of the six numbered slots. Slot
// bounds are checked before any device traffic.
func (m *Manager) SelectPreset(ctx context.Context, deviceID string, slot int, store bool) error {
	if slot < presetSlotMin || slot > presetSlotMax {
		return validationErr("preset slot must be between %d and %d", presetSlotMin, presetSlotMax)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sess, err := m.resolveLocked(deviceID)
	if err != nil {
		return err
	}

	if !store {
		// Preset playback is a release-only key event.
		key := fmt.Sprintf("PRESET_%d", slot)
		if err := sess.client.SendKey(ctx, key, adapters.KeyStateRelease); err != nil {
			return transportErr("could not play preset %d on %s: %v", slot, sess.displayName, err)
		}
		return nil
	}

	now, err := sess.client.Status(ctx)
	if err != nil {
		return transportErr("could not read status on %s: %v", sess.displayName, err)
	}
	if now.ContentItem == nil || now.ContentItem.Location == "" {
		return rejectedErr("nothing is playing that can be stored as a preset")
	}

	item := *now.ContentItem
	item.IsPresetable = true
	if now.ArtURL != "" && now.ArtURL != artSentinel {
		item.ContainerArt = now.ArtURL
	}
	if item.Name == "" {
		item.Name = now.Track
	}
	if item.Name == "" {
		item.Name = "Stream"
	}

	if err := sess.client.StorePreset(ctx, slot, item); err != nil {
		return transportErr("could not store preset %d on %s: %v", slot, sess.displayName, err)
	}
	return nil
}
