package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/salimbeni/soundtouch-hassistant/internal/domain"
)

const tuneinBaseURL = "https://opml.radiotime.com"

// TuneIn is a read-only client for the TuneIn OPML directory. Stations
// are addressed by guide id and resolved by the device itself, which is
// why these results have no stream URL.
type TuneIn struct {
	baseURL string
	client  *retryablehttp.Client
}

func NewTuneIn(baseURL string) *TuneIn {
	if baseURL == "" {
		baseURL = tuneinBaseURL
	}
	return &TuneIn{
		baseURL: baseURL,
		client:  newCatalogClient(),
	}
}

// opmlItem is one node of a TuneIn OPML body. Numeric fields arrive as
// strings.
type opmlItem struct {
	Item        string     `json:"item"`
	Type        string     `json:"type"`
	Text        string     `json:"text"`
	Key         string     `json:"key"`
	URL         string     `json:"URL"`
	GuideID     string     `json:"guide_id"`
	Image       string     `json:"image"`
	Playing     string     `json:"playing"`
	Subtext     string     `json:"subtext"`
	Bitrate     string     `json:"bitrate"`
	Reliability string     `json:"reliability"`
	Children    []opmlItem `json:"children"`
}

type opmlResponse struct {
	Body []opmlItem `json:"body"`
}

// Search queries the directory for stations matching query.
func (t *TuneIn) Search(ctx context.Context, query string, limit int) ([]domain.Station, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("render", "json")
	params.Set("formats", "mp3,aac")

	body, err := t.fetch(ctx, t.baseURL+"/Search.ashx?"+params.Encode())
	if err != nil {
		return nil, err
	}

	stations := make([]domain.Station, 0, limit)
	for _, item := range body {
		if item.Item != "station" {
			continue
		}
		stations = append(stations, parseStation(item))
		if limitReached(stations, limit) {
			break
		}
	}
	return stations, nil
}

// Popular returns trending stations.
func (t *TuneIn) Popular(ctx context.Context, limit int) ([]domain.Station, error) {
	params := url.Values{}
	params.Set("c", "trending")
	params.Set("render", "json")
	params.Set("formats", "mp3,aac")

	body, err := t.fetch(ctx, t.baseURL+"/Browse.ashx?"+params.Encode())
	if err != nil {
		return nil, err
	}
	return collectStations(body, limit), nil
}

// Browse lists the audio stations under one directory category
// (local, music, talk, sports, ...). Unknown categories return an
// empty list, matching the directory's own behavior.
func (t *TuneIn) Browse(ctx context.Context, category string, limit int) ([]domain.Station, error) {
	params := url.Values{}
	params.Set("render", "json")
	params.Set("formats", "mp3,aac")

	categories, err := t.fetch(ctx, t.baseURL+"/Browse.ashx?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var categoryURL string
	for _, cat := range categories {
		if cat.Key == category {
			categoryURL = cat.URL
			break
		}
	}
	if categoryURL == "" {
		return []domain.Station{}, nil
	}

	sep := "?"
	if strings.Contains(categoryURL, "?") {
		sep = "&"
	}
	body, err := t.fetch(ctx, categoryURL+sep+params.Encode())
	if err != nil {
		return nil, err
	}
	return collectStations(body, limit), nil
}

// Categories returns the directory's browse categories.
func (t *TuneIn) Categories(ctx context.Context) ([]domain.Category, error) {
	body, err := t.fetch(ctx, t.baseURL+"/Browse.ashx?render=json")
	if err != nil {
		return nil, err
	}

	categories := make([]domain.Category, 0, len(body))
	for _, item := range body {
		if item.Key == "" {
			continue
		}
		categories = append(categories, domain.Category{Key: item.Key, Name: item.Text})
	}
	return categories, nil
}

func (t *TuneIn) fetch(ctx context.Context, endpoint string) ([]opmlItem, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog: tunein status %d", resp.StatusCode)
	}

	var decoded opmlResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	return decoded.Body, nil
}

// collectStations walks one level of nesting: browse responses group
// stations under section children, search responses do not.
func collectStations(body []opmlItem, limit int) []domain.Station {
	stations := make([]domain.Station, 0, limit)
	for _, section := range body {
		children := section.Children
		if len(children) == 0 {
			children = []opmlItem{section}
		}
		for _, item := range children {
			if item.Item != "station" || item.Type != "audio" {
				continue
			}
			stations = append(stations, parseStation(item))
			if limitReached(stations, limit) {
				return stations
			}
		}
	}
	return stations
}

func parseStation(item opmlItem) domain.Station {
	name := item.Text
	if name == "" {
		name = "Unknown"
	}
	nowPlaying := item.Playing
	if nowPlaying == "" {
		nowPlaying = item.Subtext
	}
	return domain.Station{
		ID:          item.GuideID,
		Name:        name,
		GuideID:     item.GuideID,
		Image:       item.Image,
		NowPlaying:  nowPlaying,
		Bitrate:     atoiLoose(item.Bitrate),
		Reliability: atoiLoose(item.Reliability),
		Source:      "tunein",
	}
}

func limitReached(stations []domain.Station, limit int) bool {
	return limit > 0 && len(stations) >= limit
}

func atoiLoose(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}
