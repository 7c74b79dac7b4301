package adapters

import (
	"context"
	"time"

	"github.com/salimbeni/soundtouch-hassistant/internal/domain"
)

// Key press identifiers understood by the device /key endpoint.
const (
	KeyPlayPause = "PLAY_PAUSE"
	KeyNextTrack = "NEXT_TRACK"
	KeyPrevTrack = "PREV_TRACK"
	KeyPower     = "POWER"
	KeyMute      = "MUTE"
)

type KeyState string

const (
	KeyStatePress   KeyState = "press"
	KeyStateRelease KeyState = "release"
)

// ContentItem is the device-side descriptor of "what is playing", used
// both to report status and to command playback.
type ContentItem struct {
	Source        string
	Type          string
	Location      string
	SourceAccount string
	Name          string
	ContainerArt  string
	IsPresetable  bool
}

// NowPlayingStatus is the raw status shape a device reports. Fields are
// passed through unnormalized; the session manager applies the fallback
// rules at its boundary.
type NowPlayingStatus struct {
	Source      string
	PlayStatus  string
	Track       string
	Artist      string
	Album       string
	ArtURL      string
	ContentItem *ContentItem
}

type VolumeStatus struct {
	Actual int
	Muted  bool
}

type ZoneMember struct {
	DeviceID string
	IP       string
}

// Zone is the device-reported group state. Members never include the
// master; the master is implicit in every zone call.
type Zone struct {
	Master   string
	MasterIP string
	Members  []ZoneMember
}

type PresetSlot struct {
	ID   int
	Item ContentItem
}

// DeviceClient wraps the device control protocol behind one interface.
// Every call is a blocking network round-trip with a short timeout.
type DeviceClient interface {
	Info() domain.DeviceInfo
	Status(ctx context.Context) (*NowPlayingStatus, error)
	Volume(ctx context.Context) (*VolumeStatus, error)
	Zone(ctx context.Context, refresh bool) (*Zone, error)
	Presets(ctx context.Context) ([]PresetSlot, error)

	SetVolume(ctx context.Context, level int) error
	SendKey(ctx context.Context, key string, state KeyState) error
	SelectSource(ctx context.Context, source string) error
	SelectContent(ctx context.Context, item ContentItem) error
	StorePreset(ctx context.Context, slot int, item ContentItem) error
	Bass(ctx context.Context) (int, error)
	SetBass(ctx context.Context, level int) error
	Treble(ctx context.Context) (int, error)
	SetTreble(ctx context.Context, level int) error
	SetName(ctx context.Context, name string) error

	CreateZone(ctx context.Context, zone Zone) error
	RemoveZone(ctx context.Context, settle time.Duration) error

	// SetStreamURI pushes a raw stream URL over the device's transport
	// (AVTransport) side channel. Only plain http URLs are accepted.
	SetStreamURI(ctx context.Context, streamURL string) error
}

// ClientFactory probes an IP and, when a device answers, returns a
// connected client for it.
type ClientFactory interface {
	Probe(ctx context.Context, ip string) (DeviceClient, error)
}

// Notification is one event from a device's push feed. Only the fields
// the session manager consumes are decoded.
type Notification struct {
	NewName string
}

// Notifier subscribes to a device's push notification feed. The channel
// closes when the context is cancelled or the connection drops.
type Notifier interface {
	Notifications(ctx context.Context, ip string) (<-chan Notification, error)
}

// Announcement is one passively discovered device.
type Announcement struct {
	IP   string
	Name string
}

// Browser listens for passive network announcements for a fixed window.
type Browser interface {
	Listen(ctx context.Context, window time.Duration) ([]Announcement, error)
}
