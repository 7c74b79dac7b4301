package soundtouch

import (
	"context"
	"encoding/xml"
	"net"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/salimbeni/soundtouch-hassistant/internal/adapters"
)

// notifySubprotocol is required by the device's WebSocket endpoint.
const notifySubprotocol = "gabbo"

type updatesEvent struct {
	XMLName     xml.Name `xml:"updates"`
	NameUpdated *struct {
		Name string `xml:"name"`
	} `xml:"nameUpdated"`
}

// Notifier subscribes to the push notification socket a SoundTouch
// device exposes on port 8080. Only device renames are decoded; the
// manager polls everything else.
type Notifier struct {
	dialer *websocket.Dialer
	urlFor func(ip string) string
}

func NewNotifier() *Notifier {
	return &Notifier{
		dialer: &websocket.Dialer{Subprotocols: []string{notifySubprotocol}},
		urlFor: func(ip string) string {
			return "ws://" + net.JoinHostPort(ip, strconv.Itoa(notifyPort))
		},
	}
}

// Notifications connects to the device feed and streams decoded events
// until the context is cancelled or the connection drops, at which point
// the channel closes. The caller decides whether to resubscribe.
func (n *Notifier) Notifications(ctx context.Context, ip string) (<-chan adapters.Notification, error) {
	conn, resp, err := n.dialer.DialContext(ctx, n.urlFor(ip), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	out := make(chan adapters.Notification)
	go func() {
		defer close(out)
		defer conn.Close()

		go func() {
			<-ctx.Done()
			conn.Close()
		}()

		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var event updatesEvent
			if err := xml.Unmarshal(payload, &event); err != nil {
				continue
			}
			if event.NameUpdated == nil || event.NameUpdated.Name == "" {
				continue
			}

			select {
			case out <- adapters.Notification{NewName: event.NameUpdated.Name}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

var _ adapters.Notifier = (*Notifier)(nil)
