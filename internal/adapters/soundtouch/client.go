package soundtouch

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/salimbeni/soundtouch-hassistant/internal/adapters"
	"github.com/salimbeni/soundtouch-hassistant/internal/domain"
)

const (
	controlPort = 8090
	dlnaPort    = 8091
	notifyPort  = 8080

	defaultTimeout = 3 * time.Second

	keySender = "Gabbo"
)

// Client talks to one SoundTouch device over its XML webservices API.
// It is safe for concurrent use; all state besides the cached identity
// lives on the device.
type Client struct {
	ip         string
	info       domain.DeviceInfo
	httpClient *http.Client
	sleep      func(ctx context.Context, d time.Duration) error

	baseURL     string // test override for the control endpoint
	dlnaBaseURL string // test override for the AVTransport endpoint
}

// Factory probes IPs and builds clients. The zero value is not usable;
// use NewFactory.
type Factory struct {
	timeout time.Duration
	baseURL string // test override
}

func NewFactory(timeout time.Duration) *Factory {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Factory{timeout: timeout}
}

// Probe fetches /info from the candidate IP. A device that answers with
// a parseable identity block is considered online.
func (f *Factory) Probe(ctx context.Context, ip string) (adapters.DeviceClient, error) {
	c := &Client{
		ip:         ip,
		httpClient: &http.Client{Timeout: f.timeout},
		sleep:      sleepCtx,
		baseURL:    f.baseURL,
	}

	var info infoResponse
	if err := c.get(ctx, "/info", &info); err != nil {
		return nil, err
	}
	if info.DeviceID == "" {
		return nil, fmt.Errorf("soundtouch: %s answered without a device id", ip)
	}

	c.info = domain.DeviceInfo{
		DeviceID: info.DeviceID,
		Name:     info.Name,
		Type:     info.Type,
		IP:       ip,
	}
	for _, n := range info.Networks {
		if n.MAC != "" {
			c.info.MAC = n.MAC
			break
		}
	}
	return c, nil
}

func (c *Client) Info() domain.DeviceInfo {
	return c.info
}

func (c *Client) Status(ctx context.Context) (*adapters.NowPlayingStatus, error) {
	var resp nowPlayingResponse
	if err := c.get(ctx, "/now_playing", &resp); err != nil {
		return nil, err
	}

	status := &adapters.NowPlayingStatus{
		Source:     resp.Source,
		PlayStatus: resp.PlayStatus,
		Track:      resp.Track,
		Artist:     resp.Artist,
		Album:      resp.Album,
		ArtURL:     resp.Art.URL,
	}
	if status.ArtURL == "" && resp.Art.Status != "" {
		// Some firmwares put the sentinel in the attribute and leave the
		// element empty; surface it so the manager can normalize it.
		status.ArtURL = resp.Art.Status
	}
	if resp.ContentItem != nil {
		item := fromContentItemXML(*resp.ContentItem)
		status.ContentItem = &item
	}
	return status, nil
}

func (c *Client) Volume(ctx context.Context) (*adapters.VolumeStatus, error) {
	var resp volumeResponse
	if err := c.get(ctx, "/volume", &resp); err != nil {
		return nil, err
	}
	return &adapters.VolumeStatus{Actual: resp.Actual, Muted: resp.Muted}, nil
}

func (c *Client) Zone(ctx context.Context, refresh bool) (*adapters.Zone, error) {
	// The device has no cached-vs-fresh distinction over HTTP; every
	// /getZone read is live. refresh is part of the contract for
	// adapters that do cache.
	_ = refresh

	var resp zoneXML
	if err := c.get(ctx, "/getZone", &resp); err != nil {
		return nil, err
	}

	zone := &adapters.Zone{Master: resp.Master, MasterIP: resp.SenderIP}
	for _, m := range resp.Members {
		zone.Members = append(zone.Members, adapters.ZoneMember{DeviceID: m.DeviceID, IP: m.IP})
	}
	return zone, nil
}

func (c *Client) Presets(ctx context.Context) ([]adapters.PresetSlot, error) {
	var resp presetsResponse
	if err := c.get(ctx, "/presets", &resp); err != nil {
		return nil, err
	}

	slots := make([]adapters.PresetSlot, 0, len(resp.Presets))
	for _, p := range resp.Presets {
		slots = append(slots, adapters.PresetSlot{ID: p.ID, Item: fromContentItemXML(p.ContentItem)})
	}
	return slots, nil
}

func (c *Client) SetVolume(ctx context.Context, level int) error {
	return c.post(ctx, "/volume", volumeRequest{Level: level})
}

func (c *Client) SendKey(ctx context.Context, key string, state adapters.KeyState) error {
	return c.post(ctx, "/key", keyRequest{State: string(state), Sender: keySender, Value: key})
}

func (c *Client) SelectSource(ctx context.Context, source string) error {
	item := contentItemXML{Source: source}
	if source == "AUX" {
		item.SourceAccount = "AUX"
	}
	return c.post(ctx, "/select", item)
}

func (c *Client) SelectContent(ctx context.Context, item adapters.ContentItem) error {
	return c.post(ctx, "/select", toContentItemXML(item))
}

func (c *Client) StorePreset(ctx context.Context, slot int, item adapters.ContentItem) error {
	return c.post(ctx, "/storePreset", presetXML{ID: slot, ContentItem: toContentItemXML(item)})
}

func (c *Client) Bass(ctx context.Context) (int, error) {
	var resp bassResponse
	if err := c.get(ctx, "/bass", &resp); err != nil {
		return 0, err
	}
	return resp.Actual, nil
}

func (c *Client) SetBass(ctx context.Context, level int) error {
	return c.post(ctx, "/bass", bassRequest{Level: level})
}

func (c *Client) Treble(ctx context.Context) (int, error) {
	var resp trebleResponse
	if err := c.get(ctx, "/treble", &resp); err != nil {
		return 0, err
	}
	return resp.Actual, nil
}

func (c *Client) SetTreble(ctx context.Context, level int) error {
	return c.post(ctx, "/treble", trebleRequest{Level: level})
}

func (c *Client) SetName(ctx context.Context, name string) error {
	return c.post(ctx, "/name", nameRequest{Value: name})
}

func (c *Client) CreateZone(ctx context.Context, zone adapters.Zone) error {
	return c.post(ctx, "/setZone", toZoneXML(zone))
}

// RemoveZone reads the current zone and posts it back to /removeZone,
// then waits out the settle delay; the device keeps reporting the old
// zone for a short while after teardown.
func (c *Client) RemoveZone(ctx context.Context, settle time.Duration) error {
	var current zoneXML
	if err := c.get(ctx, "/getZone", &current); err != nil {
		return err
	}
	if err := c.post(ctx, "/removeZone", current); err != nil {
		return err
	}
	return c.sleep(ctx, settle)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("soundtouch: GET %s: unexpected status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return xml.Unmarshal(body, out)
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := xml.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("soundtouch: POST %s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	if c.baseURL != "" {
		return c.baseURL + path
	}
	return "http://" + net.JoinHostPort(c.ip, strconv.Itoa(controlPort)) + path
}

func fromContentItemXML(x contentItemXML) adapters.ContentItem {
	return adapters.ContentItem{
		Source:        x.Source,
		Type:          x.Type,
		Location:      x.Location,
		SourceAccount: x.SourceAccount,
		Name:          x.ItemName,
		ContainerArt:  x.ContainerArt,
		IsPresetable:  x.IsPresetable,
	}
}

func toContentItemXML(item adapters.ContentItem) contentItemXML {
	return contentItemXML{
		Source:        item.Source,
		Type:          item.Type,
		Location:      item.Location,
		SourceAccount: item.SourceAccount,
		ItemName:      item.Name,
		ContainerArt:  item.ContainerArt,
		IsPresetable:  item.IsPresetable,
	}
}

func toZoneXML(zone adapters.Zone) zoneXML {
	out := zoneXML{Master: zone.Master, SenderIP: zone.MasterIP}
	for _, m := range zone.Members {
		out.Members = append(out.Members, zoneMemberXML{IP: m.IP, DeviceID: m.DeviceID})
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ adapters.DeviceClient = (*Client)(nil)
var _ adapters.ClientFactory = (*Factory)(nil)
