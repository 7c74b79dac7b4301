package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/mdns"

	"github.com/salimbeni/soundtouch-hassistant/internal/adapters"
)

const (
	soundtouchService = "_soundtouch._tcp"
	defaultWindow     = 3 * time.Second
)

// MDNSListener collects passive SoundTouch announcements from the local
// network for a fixed window. It never keeps sockets open between calls.
type MDNSListener struct {
	service string
	query   func(*mdns.QueryParam) error
}

func NewMDNSListener() *MDNSListener {
	return &MDNSListener{
		service: soundtouchService,
		query:   mdns.Query,
	}
}

// Listen runs one mDNS query for the service and returns the devices
// that announced themselves before the window closed, deduplicated by
// IP. Devices without an IPv4 address are skipped.
func (l *MDNSListener) Listen(ctx context.Context, window time.Duration) ([]adapters.Announcement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if window <= 0 {
		window = defaultWindow
	}

	entries := make(chan *mdns.ServiceEntry, 16)
	done := make(chan []adapters.Announcement, 1)

	go func() {
		seen := map[string]bool{}
		var found []adapters.Announcement
		for entry := range entries {
			if entry == nil || entry.AddrV4 == nil {
				continue
			}
			ip := entry.AddrV4.String()
			if seen[ip] {
				continue
			}
			seen[ip] = true
			found = append(found, adapters.Announcement{
				IP:   ip,
				Name: instanceName(entry.Name, l.service),
			})
		}
		done <- found
	}()

	err := l.query(&mdns.QueryParam{
		Service:     l.service,
		Domain:      "local",
		Timeout:     window,
		Entries:     entries,
		DisableIPv6: true,
	})
	close(entries)
	found := <-done
	if err != nil {
		return nil, err
	}
	return found, nil
}

// instanceName strips the service suffix from a full mDNS instance name
// and undoes the space escaping announcements use.
func instanceName(full, service string) string {
	name := strings.TrimSuffix(full, ".")
	name = strings.TrimSuffix(name, "."+service+".local")
	name = strings.ReplaceAll(name, "\\ ", " ")
	return name
}

var _ adapters.Browser = (*MDNSListener)(nil)
