// ABOUTME: Tests for mDNS gateway discovery
// ABOUTME: Uses a stubbed query function to avoid touching the network
package discovery

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/hashicorp/mdns"
)

func stubQuery(entriesToSend []*mdns.ServiceEntry, err error) func(*mdns.QueryParam) error {
	return func(params *mdns.QueryParam) error {
		for _, entry := range entriesToSend {
			params.Entries <- entry
		}
		return err
	}
}

func TestBrowseFindsGateways(t *testing.T) {
	b := NewBrowser(nil)
	b.query = stubQuery([]*mdns.ServiceEntry{
		{Name: "gw1._crisisline-gw._tcp.local.", AddrV4: net.IPv4(192, 168, 1, 10), Port: 8080},
		{Name: "gw2._crisisline-gw._tcp.local.", AddrV4: net.IPv4(192, 168, 1, 11), Port: 9090},
	}, nil)

	gateways, err := b.Browse(context.Background())
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}
	if len(gateways) != 2 {
		t.Fatalf("expected 2 gateways, got %d", len(gateways))
	}
	if gateways[0].Host != "192.168.1.10" || gateways[0].Port != 8080 {
		t.Errorf("unexpected first gateway: %+v", gateways[0])
	}
}

func TestBrowseSkipsEntriesWithoutAddress(t *testing.T) {
	b := NewBrowser(nil)
	b.query = stubQuery([]*mdns.ServiceEntry{
		{Name: "broken", AddrV4: nil, Port: 8080},
	}, nil)

	gateways, err := b.Browse(context.Background())
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}
	if len(gateways) != 0 {
		t.Errorf("expected no gateways, got %d", len(gateways))
	}
}

func TestBrowseQueryError(t *testing.T) {
	b := NewBrowser(nil)
	b.query = stubQuery(nil, errors.New("network down"))

	if _, err := b.Browse(context.Background()); err == nil {
		t.Error("expected error from failed query")
	}
}

func TestFirstNoGateways(t *testing.T) {
	b := NewBrowser(nil)
	b.query = stubQuery(nil, nil)

	if _, err := b.First(context.Background()); err == nil {
		t.Error("expected error when nothing is found")
	}
}

func TestGatewayURL(t *testing.T) {
	gw := Gateway{Name: "gw1", Host: "192.168.1.10", Port: 8080}
	want := "ws://192.168.1.10:8080/v1/live"
	if got := gw.URL(); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
