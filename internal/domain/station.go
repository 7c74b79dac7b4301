package domain

// Station is the single schema both catalog providers are reshaped
// into. Radio Browser stations carry a direct stream URL; TuneIn
// stations carry a guide id that the device resolves itself.
type Station struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url,omitempty"`
	GuideID     string `json:"guide_id,omitempty"`
	Favicon     string `json:"favicon,omitempty"`
	Image       string `json:"image,omitempty"`
	NowPlaying  string `json:"now_playing,omitempty"`
	Country     string `json:"country,omitempty"`
	Tags        string `json:"tags,omitempty"`
	Bitrate     int    `json:"bitrate,omitempty"`
	Reliability int    `json:"reliability,omitempty"`
	Source      string `json:"source,omitempty"`
}

// Favorite is one saved entry. Identity is the positional index in the
// persisted list; removing index i shifts all later indices down.
type Favorite struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Type    string `json:"type"`
	Image   string `json:"image,omitempty"`
	GuideID string `json:"guide_id,omitempty"`
}

// Category is one TuneIn browse category.
type Category struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}
