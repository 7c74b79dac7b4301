package soundtouch

import "encoding/xml"

// Wire shapes for the SoundTouch webservices API (port 8090). Only the
// fields the manager consumes are mapped.

type infoResponse struct {
	XMLName  xml.Name      `xml:"info"`
	DeviceID string        `xml:"deviceID,attr"`
	Name     string        `xml:"name"`
	Type     string        `xml:"type"`
	Networks []networkInfo `xml:"networkInfo"`
}

type networkInfo struct {
	MAC string `xml:"macAddress"`
	IP  string `xml:"ipAddress"`
}

type contentItemXML struct {
	XMLName       xml.Name `xml:"ContentItem"`
	Source        string   `xml:"source,attr,omitempty"`
	Type          string   `xml:"type,attr,omitempty"`
	Location      string   `xml:"location,attr,omitempty"`
	SourceAccount string   `xml:"sourceAccount,attr"`
	IsPresetable  bool     `xml:"isPresetable,attr"`
	ItemName      string   `xml:"itemName,omitempty"`
	ContainerArt  string   `xml:"containerArt,omitempty"`
}

type artXML struct {
	Status string `xml:"artImageStatus,attr"`
	URL    string `xml:",chardata"`
}

type nowPlayingResponse struct {
	XMLName     xml.Name        `xml:"nowPlaying"`
	Source      string          `xml:"source,attr"`
	ContentItem *contentItemXML `xml:"ContentItem"`
	Track       string          `xml:"track"`
	Artist      string          `xml:"artist"`
	Album       string          `xml:"album"`
	StationName string          `xml:"stationName"`
	Art         artXML          `xml:"art"`
	PlayStatus  string          `xml:"playStatus"`
}

type volumeResponse struct {
	XMLName xml.Name `xml:"volume"`
	Target  int      `xml:"targetvolume"`
	Actual  int      `xml:"actualvolume"`
	Muted   bool     `xml:"muteenabled"`
}

type volumeRequest struct {
	XMLName xml.Name `xml:"volume"`
	Level   int      `xml:",chardata"`
}

type zoneXML struct {
	XMLName  xml.Name        `xml:"zone"`
	Master   string          `xml:"master,attr,omitempty"`
	SenderIP string          `xml:"senderIPAddress,attr,omitempty"`
	Members  []zoneMemberXML `xml:"member"`
}

type zoneMemberXML struct {
	IP       string `xml:"ipaddress,attr,omitempty"`
	DeviceID string `xml:",chardata"`
}

type presetsResponse struct {
	XMLName xml.Name    `xml:"presets"`
	Presets []presetXML `xml:"preset"`
}

type presetXML struct {
	XMLName     xml.Name       `xml:"preset"`
	ID          int            `xml:"id,attr"`
	ContentItem contentItemXML `xml:"ContentItem"`
}

type keyRequest struct {
	XMLName xml.Name `xml:"key"`
	State   string   `xml:"state,attr"`
	Sender  string   `xml:"sender,attr"`
	Value   string   `xml:",chardata"`
}

type bassResponse struct {
	XMLName xml.Name `xml:"bass"`
	Target  int      `xml:"targetbass"`
	Actual  int      `xml:"actualbass"`
}

type bassRequest struct {
	XMLName xml.Name `xml:"bass"`
	Level   int      `xml:",chardata"`
}

type trebleResponse struct {
	XMLName xml.Name `xml:"treble"`
	Target  int      `xml:"targettreble"`
	Actual  int      `xml:"actualtreble"`
}

type trebleRequest struct {
	XMLName xml.Name `xml:"treble"`
	Level   int      `xml:",chardata"`
}

type nameRequest struct {
	XMLName xml.Name `xml:"name"`
	Value   string   `xml:",chardata"`
}
