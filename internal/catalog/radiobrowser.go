package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/salimbeni/soundtouch-hassistant/internal/domain"
)

// Radio Browser is DNS-balanced across mirrors; de1 is the default and
// the others are listed for operators that want to point elsewhere via
// SOUNDTOUCH_RADIOBROWSER_URL.
var radioBrowserMirrors = []string{
	"https://de1.api.radio-browser.info",
	"https://fr1.api.radio-browser.info",
	"https://at1.api.radio-browser.info",
	"https://nl1.api.radio-browser.info",
}

const catalogTimeout = 5 * time.Second

// RadioBrowser is a read-only client for the Radio Browser API. Results
// carry direct stream URLs, so anything found here is playable through
// the raw-URL path.
type RadioBrowser struct {
	baseURL string
	client  *retryablehttp.Client
}

func NewRadioBrowser(baseURL string) *RadioBrowser {
	if baseURL == "" {
		baseURL = radioBrowserMirrors[0]
	}
	return &RadioBrowser{
		baseURL: baseURL,
		client:  newCatalogClient(),
	}
}

type radioBrowserStation struct {
	StationUUID string `json:"stationuuid"`
	Name        string `json:"name"`
	URLResolved string `json:"url_resolved"`
	Favicon     string `json:"favicon"`
	CountryCode string `json:"countrycode"`
	Tags        string `json:"tags"`
	Bitrate     int    `json:"bitrate"`
}

// Search looks stations up by name, most-clicked first, hiding streams
// the API knows to be broken.
func (r *RadioBrowser) Search(ctx context.Context, query string, limit int) ([]domain.Station, error) {
	params := r.searchParams(limit)
	params.Set("name", query)
	return r.fetch(ctx, params)
}

// Top returns the most-clicked stations, optionally filtered by ISO
// country code.
func (r *RadioBrowser) Top(ctx context.Context, countryCode string, limit int) ([]domain.Station, error) {
	params := r.searchParams(limit)
	if countryCode != "" {
		params.Set("countrycode", countryCode)
	}
	return r.fetch(ctx, params)
}

func (r *RadioBrowser) searchParams(limit int) url.Values {
	if limit <= 0 {
		limit = 20
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("order", "clickcount")
	params.Set("reverse", "true")
	params.Set("hidebroken", "true")
	return params
}

func (r *RadioBrowser) fetch(ctx context.Context, params url.Values) ([]domain.Station, error) {
	endpoint := r.baseURL + "/json/stations/search?" + params.Encode()
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog: radio browser status %d", resp.StatusCode)
	}

	var raw []radioBrowserStation
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	stations := make([]domain.Station, 0, len(raw))
	for _, s := range raw {
		name := s.Name
		if name == "" {
			name = "Unknown Station"
		}
		stations = append(stations, domain.Station{
			ID:      s.StationUUID,
			Name:    name,
			URL:     s.URLResolved,
			Favicon: s.Favicon,
			Country: s.CountryCode,
			Tags:    s.Tags,
			Bitrate: s.Bitrate,
		})
	}
	return stations, nil
}

func newCatalogClient() *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil
	client.HTTPClient.Timeout = catalogTimeout
	return client
}
