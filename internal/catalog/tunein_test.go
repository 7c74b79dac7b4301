package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTuneInServer fakes the OPML directory: the root browse lists
// categories whose URLs point back at the same server.
func newTuneInServer(t *testing.T) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/Search.ashx":
			w.Write([]byte(`{"body":[
				{"item":"station","type":"audio","text":"Radio Swiss Jazz","guide_id":"s24861","image":"http://img.example/s.png","playing":"Take Five","bitrate":"128","reliability":"99"},
				{"item":"topic","text":"Not a station"},
				{"item":"station","type":"audio","text":"Second","guide_id":"s2"}
			]}`))
		case r.URL.Path == "/Browse.ashx" && r.URL.Query().Get("c") == "trending":
			w.Write([]byte(`{"body":[
				{"text":"Trending","children":[
					{"item":"station","type":"audio","text":"Hot Station","guide_id":"s9"}
				]}
			]}`))
		case r.URL.Path == "/Browse.ashx":
			w.Write([]byte(fmt.Sprintf(`{"body":[
				{"key":"music","text":"Music","URL":"%s/category/music?pre=1"},
				{"key":"talk","text":"Talk","URL":"%s/category/talk"},
				{"text":"No key, not a category"}
			]}`, server.URL, server.URL)))
		case r.URL.Path == "/category/music":
			if r.URL.Query().Get("pre") != "1" || r.URL.Query().Get("render") != "json" {
				http.Error(w, "lost query params", http.StatusBadRequest)
				return
			}
			w.Write([]byte(`{"body":[
				{"text":"Section","children":[
					{"item":"station","type":"audio","text":"Music One","guide_id":"s10","subtext":"Now spinning"}
				]}
			]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestTuneInSearch(t *testing.T) {
	server := newTuneInServer(t)

	stations, err := NewTuneIn(server.URL).Search(context.Background(), "jazz", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(stations) != 1 {
		t.Fatalf("stations = %+v, want limit applied", stations)
	}
	got := stations[0]
	if got.GuideID != "s24861" || got.Name != "Radio Swiss Jazz" || got.Source != "tunein" {
		t.Fatalf("station = %+v", got)
	}
	if got.NowPlaying != "Take Five" || got.Bitrate != 128 || got.Reliability != 99 {
		t.Fatalf("station = %+v", got)
	}
	if got.URL != "" {
		t.Fatalf("tunein stations must not carry a stream URL: %+v", got)
	}
}

func TestTuneInPopular(t *testing.T) {
	server := newTuneInServer(t)

	stations, err := NewTuneIn(server.URL).Popular(context.Background(), 10)
	if err != nil {
		t.Fatalf("Popular: %v", err)
	}
	if len(stations) != 1 || stations[0].GuideID != "s9" {
		t.Fatalf("stations = %+v", stations)
	}
}

func TestTuneInBrowseFollowsCategoryURL(t *testing.T) {
	server := newTuneInServer(t)

	stations, err := NewTuneIn(server.URL).Browse(context.Background(), "music", 10)
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if len(stations) != 1 || stations[0].GuideID != "s10" {
		t.Fatalf("stations = %+v", stations)
	}
	if stations[0].NowPlaying != "Now spinning" {
		t.Fatalf("subtext fallback not applied: %+v", stations[0])
	}
}

func TestTuneInBrowseUnknownCategory(t *testing.T) {
	server := newTuneInServer(t)

	stations, err := NewTuneIn(server.URL).Browse(context.Background(), "does-not-exist", 10)
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if len(stations) != 0 {
		t.Fatalf("stations = %+v, want empty", stations)
	}
}

func TestTuneInCategories(t *testing.T) {
	server := newTuneInServer(t)

	categories, err := NewTuneIn(server.URL).Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(categories) != 2 || categories[0].Key != "music" || categories[1].Key != "talk" {
		t.Fatalf("categories = %+v", categories)
	}
}
