// ABOUTME: mDNS discovery for Crisisline gateways on the local network
// ABOUTME: Browses for _crisisline-gw._tcp and reports candidate endpoints
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/mdns"
)

const (
	serviceType   = "_crisisline-gw._tcp"
	browseTimeout = 3 * time.Second
)

// Gateway describes a discovered gateway endpoint.
type Gateway struct {
	Name string
	Host string
	Port int
}

// URL returns the websocket URL for the gateway.
func (g Gateway) URL() string {
	return fmt.Sprintf("ws://%s:%d/v1/live", g.Host, g.Port)
}

// Browser finds gateways via mDNS.
type Browser struct {
	logger *slog.Logger
	query  func(*mdns.QueryParam) error
}

// NewBrowser creates an mDNS browser.
func NewBrowser(logger *slog.Logger) *Browser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Browser{logger: logger, query: mdns.Query}
}

// Browse runs one discovery round and returns every gateway found before
// the timeout or the context deadline.
func (b *Browser) Browse(ctx context.Context) ([]Gateway, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	collected := make(chan []Gateway, 1)

	go func() {
		var found []Gateway
		for entry := range entries {
			if entry.AddrV4 == nil {
				continue
			}
			gw := Gateway{
				Name: entry.Name,
				Host: entry.AddrV4.String(),
				Port: entry.Port,
			}
			b.logger.Info("discovered gateway", "name", gw.Name, "host", gw.Host, "port", gw.Port)
			found = append(found, gw)
		}
		collected <- found
	}()

	timeout := browseTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	params := &mdns.QueryParam{
		Service: serviceType,
		Domain:  "local",
		Timeout: timeout,
		Entries: entries,
	}
	err := b.query(params)
	close(entries)
	found := <-collected

	if err != nil {
		return nil, fmt.Errorf("mdns query failed: %w", err)
	}
	return found, nil
}

// First browses and returns the first gateway found.
func (b *Browser) First(ctx context.Context) (Gateway, error) {
	gateways, err := b.Browse(ctx)
	if err != nil {
		return Gateway{}, err
	}
	if len(gateways) == 0 {
		return Gateway{}, fmt.Errorf("no gateways found")
	}
	return gateways[0], nil
}
