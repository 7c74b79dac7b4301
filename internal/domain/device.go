package domain

// PlayState is the normalized playback state reported for every device,
// regardless of the shape the device itself returned.
type PlayState string

const (
	PlayStatePlaying PlayState = "PLAYING"
	PlayStatePaused  PlayState = "PAUSED"
	PlayStateStandby PlayState = "STANDBY"
	PlayStateOffline PlayState = "OFFLINE"
)

// KnownDevice is one persisted registry entry. Identity key is the IP.
type KnownDevice struct {
	IP   string `json:"ip"`
	Name string `json:"name"`
}

// DeviceInfo is the identity block returned by a successful probe.
type DeviceInfo struct {
	DeviceID string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IP       string `json:"ip"`
	MAC      string `json:"mac"`
}

type NowPlaying struct {
	Track  string  `json:"track"`
	Artist string  `json:"artist"`
	Album  string  `json:"album"`
	Art    *string `json:"art"`
}

type ZoneInfo struct {
	Master  string   `json:"master"`
	Members []string `json:"members"`
}

// Preset is one of the six numbered slots on a device.
type Preset struct {
	Slot   int     `json:"id"`
	Name   string  `json:"name"`
	Source string  `json:"source"`
	Art    *string `json:"art"`
}

// DeviceStatus is the single normalized view of a device. Exactly one of
// two shapes is produced per known device: a fully populated live status,
// or the offline sentinel (ID "offline-<ip>", type "Offline").
type DeviceStatus struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	IP         string     `json:"ip"`
	Type       string     `json:"type"`
	Source     string     `json:"source,omitempty"`
	Volume     int        `json:"volume"`
	Muted      bool       `json:"muted"`
	Playing    PlayState  `json:"playing"`
	IsOffline  bool       `json:"is_offline"`
	NowPlaying NowPlaying `json:"now_playing"`
	Zone       *ZoneInfo  `json:"zone"`
	Presets    []Preset   `json:"presets,omitempty"`
}

// DeviceSettings is the per-device settings view: identity info plus the
// audio tone controls, with supported flags because not every SoundTouch
// model exposes bass/treble.
type DeviceSettings struct {
	Info  DeviceInfo    `json:"info"`
	Audio AudioSettings `json:"audio"`
}

type AudioSettings struct {
	Bass            int  `json:"bass"`
	Treble          int  `json:"treble"`
	BassSupported   bool `json:"bass_supported"`
	TrebleSupported bool `json:"treble_supported"`
}
