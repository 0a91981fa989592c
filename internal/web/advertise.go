package web

import (
	"fmt"

	"github.com/enbility/zeroconf/v3"
)

// ServiceType is the DNS-SD type of the control server.
const ServiceType = "_camctl._tcp"

const mdnsDomain = "local."

// Advertise registers the control server on all interfaces. The caller
// shuts the returned server down when the HTTP server stops.
func Advertise(instance string, port int, txt []string) (*zeroconf.Server, error) {
	if instance == "" {
		instance = "camctl"
	}
	server, err := zeroconf.Register(instance, ServiceType, mdnsDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register %s service: %w", ServiceType, err)
	}
	return server, nil
}
