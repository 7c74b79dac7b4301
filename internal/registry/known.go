package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/salimbeni/soundtouch-hassistant/internal/domain"
)

// KnownDevices is the persisted list of devices that have ever been
// probed successfully or added by hand. Order is insertion order.
//
// Writes go through a single mutex; the session manager additionally
// serializes all mutating calls, so the file never sees two writers.
type KnownDevices struct {
	path string

	mu      sync.Mutex
	entries []domain.KnownDevice
}

// LoadKnownDevices reads the registry file. A legacy file containing a
// bare list of IP strings is migrated in place: every entry is wrapped
// as {ip, name: "Unknown"} and the file rewritten in the new format.
// A missing file yields an empty registry.
func LoadKnownDevices(path string) (*KnownDevices, error) {
	k := &KnownDevices{path: path}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return k, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(raw, &k.entries); err == nil {
		return k, nil
	}

	var legacy []string
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, fmt.Errorf("registry: %s is neither the current nor the legacy format: %w", path, err)
	}
	for _, ip := range legacy {
		k.entries = append(k.entries, domain.KnownDevice{IP: ip, Name: "Unknown"})
	}
	if err := k.save(); err != nil {
		return nil, err
	}
	return k, nil
}

// Snapshot returns a copy of the current list.
func (k *KnownDevices) Snapshot() []domain.KnownDevice {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]domain.KnownDevice{}, k.entries...)
}

// Upsert inserts a new entry or renames an existing one. The file is
// only rewritten when something actually changed.
func (k *KnownDevices) Upsert(ip, name string) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	for i := range k.entries {
		if k.entries[i].IP != ip {
			continue
		}
		if k.entries[i].Name == name {
			return false, nil
		}
		k.entries[i].Name = name
		return true, k.save()
	}

	k.entries = append(k.entries, domain.KnownDevice{IP: ip, Name: name})
	return true, k.save()
}

// Remove drops the entry for ip. Returns false when ip was not listed.
func (k *KnownDevices) Remove(ip string) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	kept := k.entries[:0]
	removed := false
	for _, e := range k.entries {
		if e.IP == ip {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	if !removed {
		return false, nil
	}
	k.entries = kept
	return true, k.save()
}

func (k *KnownDevices) save() error {
	data, err := json.MarshalIndent(k.entries, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(k.path, data, 0o644)
}
