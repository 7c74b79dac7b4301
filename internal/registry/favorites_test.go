package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/salimbeni/soundtouch-hassistant/internal/domain"
)

func TestLoadFavoritesToleratesBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "favorites.json")
	if err := os.WriteFile(path, []byte(`{{{`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	favorites := LoadFavorites(path)
	if items := favorites.List(); len(items) != 0 {
		t.Fatalf("items = %+v, want empty for broken file", items)
	}

	// The next write recreates the file.
	if _, err := favorites.Add(domain.Favorite{Name: "Radio Swiss Jazz", URL: "http://s.example/jazz", Type: "url"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if items := LoadFavorites(path).List(); len(items) != 1 {
		t.Fatalf("items after rewrite = %+v", items)
	}
}

func TestRemoveShiftsIndices(t *testing.T) {
	favorites := LoadFavorites(filepath.Join(t.TempDir(), "favorites.json"))
	for _, name := range []string{"first", "second", "third"} {
		if _, err := favorites.Add(domain.Favorite{Name: name, Type: "url"}); err != nil {
			t.Fatalf("Add(%s): %v", name, err)
		}
	}

	items, err := favorites.Remove(1)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(items) != 2 || items[0].Name != "first" || items[1].Name != "third" {
		t.Fatalf("items = %+v", items)
	}
}

func TestRemoveRejectsBadIndex(t *testing.T) {
	favorites := LoadFavorites(filepath.Join(t.TempDir(), "favorites.json"))
	favorites.Add(domain.Favorite{Name: "only", Type: "url"})

	for _, index := range []int{-1, 1, 5} {
		if _, err := favorites.Remove(index); !errors.Is(err, ErrBadIndex) {
			t.Fatalf("Remove(%d) = %v, want ErrBadIndex", index, err)
		}
	}
}
