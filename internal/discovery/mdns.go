// Package discovery advertises the server on the local network over mDNS
// so clients on the same LAN can find shared boards without configuration.
package discovery

import (
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/hashicorp/mdns"
)

const ServiceType = "_freeflow._tcp"

// Advertiser is a running mDNS responder.
type Advertiser struct {
	server *mdns.Server
}

// NewService builds the mDNS record set for a server listening on port.
// With nil ips the host's addresses are looked up.
func NewService(instance string, port int, ips []net.IP) (*mdns.MDNSService, error) {
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("get hostname: %w", err)
		}
		instance = host
	}

	info := []string{"FreeFlow whiteboard", "path=/ws/board"}
	service, err := mdns.NewMDNSService(instance, ServiceType, "", "", port, ips, info)
	if err != nil {
		return nil, fmt.Errorf("create mdns service: %w", err)
	}
	return service, nil
}

// Advertise starts answering mDNS queries for the server on port.
func Advertise(instance string, port int) (*Advertiser, error) {
	service, err := NewService(instance, port, nil)
	if err != nil {
		return nil, err
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("start mdns server: %w", err)
	}

	slog.Info("mdns advertising", "service", ServiceType, "instance", service.Instance, "port", port)
	return &Advertiser{server: server}, nil
}

// Shutdown stops the responder.
func (a *Advertiser) Shutdown() error {
	if a == nil || a.server == nil {
		return nil
	}
	return a.server.Shutdown()
}
