package soundtouch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
)

const (
	avTransportPath   = "/AVTransport/Control"
	avTransportAction = "urn:schemas-upnp-org:service:AVTransport:1#SetAVTransportURI"
)

const setURIEnvelope = `<?xml version="1.0" encoding="utf-8"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">
  <s:Body>
    <u:SetAVTransportURI xmlns:u="urn:schemas-upnp-org:service:AVTransport:1">
      <InstanceID>0</InstanceID>
      <CurrentURIMetaData></CurrentURIMetaData>
      <CurrentURI>%s</CurrentURI>
    </u:SetAVTransportURI>
  </s:Body>
</s:Envelope>`

// SetStreamURI injects a raw stream URL over the device's AVTransport
// service on port 8091. The device starts pulling the stream itself; it
// only accepts plain http URLs on this path.
func (c *Client) SetStreamURI(ctx context.Context, streamURL string) error {
	if !strings.HasPrefix(streamURL, "http://") {
		return fmt.Errorf("soundtouch: AVTransport only accepts http URLs, got %q", streamURL)
	}

	body := fmt.Sprintf(setURIEnvelope, escapeXML(streamURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.dlnaEndpoint(), strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPACTION", avTransportAction)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("soundtouch: AVTransport rejected stream URI: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) dlnaEndpoint() string {
	if c.dlnaBaseURL != "" {
		return c.dlnaBaseURL + avTransportPath
	}
	return "http://" + net.JoinHostPort(c.ip, strconv.Itoa(dlnaPort)) + avTransportPath
}

func escapeXML(v string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(v)
}
