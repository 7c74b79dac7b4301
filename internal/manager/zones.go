package manager

import (
	"context"
	"log/slog"

	"github.com/salimbeni/soundtouch-hassistant/internal/adapters"
)

// CreateZone groups devices for synchronized playback with the given
// device as master. Member ids without a live session are skipped; the
// call fails only when no member can be resolved at all.
func (m *Manager) CreateZone(ctx context.Context, masterID string, memberIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	master, ok := m.sessions[masterID]
	if !ok {
		return notFoundErr("master device not found")
	}

	var members []adapters.ZoneMember
	for _, id := range memberIDs {
		if id == masterID {
			continue
		}
		sess, ok := m.sessions[id]
		if !ok {
			m.logger.Warn("zone member has no live session, skipping",
				slog.String("device_id", id))
			continue
		}
		members = append(members, adapters.ZoneMember{DeviceID: id, IP: sess.ip})
	}
	if len(members) == 0 {
		return notFoundErr("no valid zone members found")
	}

	zone := adapters.Zone{Master: masterID, MasterIP: master.ip, Members: members}
	if err := master.client.CreateZone(ctx, zone); err != nil {
		return transportErr("could not create zone on %s: %v", master.displayName, err)
	}
	return nil
}

// RemoveZone dissolves a group. Slaves keep playing on their own after
// a plain teardown, so every former member except the master is muted
// and powered off afterwards; those compensations are best effort and
// only logged when they fail.
func (m *Manager) RemoveZone(ctx context.Context, masterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	master, ok := m.sessions[masterID]
	if !ok {
		return notFoundErr("master device not found")
	}

	zone, err := master.client.Zone(ctx, true)
	if err != nil {
		return transportErr("could not read zone on %s: %v", master.displayName, err)
	}
	if err := master.client.RemoveZone(ctx, zoneSettle); err != nil {
		return transportErr("could not remove zone on %s: %v", master.displayName, err)
	}

	if zone == nil {
		return nil
	}
	for _, member := range zone.Members {
		if member.DeviceID == masterID {
			continue
		}
		sess, ok := m.sessions[member.DeviceID]
		if !ok {
			continue
		}
		if err := pressAndRelease(ctx, sess, adapters.KeyMute); err != nil {
			m.logger.Warn("could not mute former zone member",
				slog.String("device", sess.displayName), slog.String("error", err.Error()))
		}
		if err := pressAndRelease(ctx, sess, adapters.KeyPower); err != nil {
			m.logger.Warn("could not power off former zone member",
				slog.String("device", sess.displayName), slog.String("error", err.Error()))
		}
	}
	return nil
}

// RemoveZoneMember takes one slave out of a group. The protocol has no
// single-member removal, so the zone is rebuilt as a full replacement
// without the slave; removing the last slave dissolves the zone
// entirely.
func (m *Manager) RemoveZoneMember(ctx context.Context, masterID, slaveID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	master, ok := m.sessions[masterID]
	if !ok {
		return notFoundErr("master device not found")
	}

	zone, err := master.client.Zone(ctx, true)
	if err != nil {
		return transportErr("could not read zone on %s: %v", master.displayName, err)
	}
	if zone == nil || len(zone.Members) == 0 {
		return notFoundErr("no zone found on %s", master.displayName)
	}

	slaveFound := false
	var remaining []adapters.ZoneMember
	for _, member := range zone.Members {
		switch member.DeviceID {
		case slaveID:
			slaveFound = true
		case masterID:
		default:
			remaining = append(remaining, member)
		}
	}
	if !slaveFound {
		return notFoundErr("device is not a member of the zone")
	}

	if slave, ok := m.sessions[slaveID]; ok {
		if err := pressAndRelease(ctx, slave, adapters.KeyPower); err != nil {
			m.logger.Warn("could not power off removed zone member",
				slog.String("device", slave.displayName), slog.String("error", err.Error()))
		}
	}

	rebuilt := adapters.Zone{Master: masterID, MasterIP: master.ip}
	for _, member := range remaining {
		ip := member.IP
		if ip == "" {
			if sess, ok := m.sessions[member.DeviceID]; ok {
				ip = sess.ip
			}
		}
		if ip == "" {
			m.logger.Warn("cannot resolve IP for zone member, dropping from rebuild",
				slog.String("device_id", member.DeviceID))
			continue
		}
		rebuilt.Members = append(rebuilt.Members, adapters.ZoneMember{DeviceID: member.DeviceID, IP: ip})
	}

	if len(rebuilt.Members) == 0 {
		if err := master.client.RemoveZone(ctx, zoneSettle); err != nil {
			return transportErr("could not dissolve zone on %s: %v", master.displayName, err)
		}
		return nil
	}

	if err := master.client.CreateZone(ctx, rebuilt); err != nil {
		return transportErr("could not rebuild zone on %s: %v", master.displayName, err)
	}
	return m.sleep(ctx, zoneSettle)
}
