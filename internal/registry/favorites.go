package registry

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/salimbeni/soundtouch-hassistant/internal/domain"
)

// ErrBadIndex is returned when a removal addresses a slot that is not
// in the list.
var ErrBadIndex = errors.New("registry: favorite index out of range")

// Favorites is the persisted, ordered favorites list. An entry's
// identity is its position: removing index i shifts everything after it
// down by one.
type Favorites struct {
	path string

	mu    sync.Mutex
	items []domain.Favorite
}

// LoadFavorites reads the favorites file. Missing or unparseable files
// yield an empty list; the file is recreated on the next write.
func LoadFavorites(path string) *Favorites {
	f := &Favorites{path: path}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) || err != nil {
		return f
	}
	if err := json.Unmarshal(raw, &f.items); err != nil {
		f.items = nil
	}
	return f
}

// List returns a copy of the current favorites in order.
func (f *Favorites) List() []domain.Favorite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Favorite{}, f.items...)
}

// Add appends fav and persists, returning the updated list.
func (f *Favorites) Add(fav domain.Favorite) ([]domain.Favorite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items = append(f.items, fav)
	if err := f.save(); err != nil {
		return nil, err
	}
	return append([]domain.Favorite{}, f.items...), nil
}

// Remove deletes the entry at index and persists, returning the updated
// list.
func (f *Favorites) Remove(index int) ([]domain.Favorite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if index < 0 || index >= len(f.items) {
		return nil, ErrBadIndex
	}
	f.items = append(f.items[:index], f.items[index+1:]...)
	if err := f.save(); err != nil {
		return nil, err
	}
	return append([]domain.Favorite{}, f.items...), nil
}

func (f *Favorites) save() error {
	data, err := json.MarshalIndent(f.items, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o644)
}
