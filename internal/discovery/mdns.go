// ABOUTME: mDNS discovery for cockpit display devices
// ABOUTME: Advertises a UDP frame receiver and finds one on the local network
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service a frame receiver advertises
const ServiceType = "_rccockpit._udp"

// ErrNotFound means no receiver answered before the timeout
var ErrNotFound = errors.New("no cockpit device found")

// Config holds advertisement settings
type Config struct {
	ServiceName string
	Port        int
	Info        []string // TXT records
}

// Manager advertises a receiver until stopped
type Manager struct {
	config Config
	ctx    context.Context
	cancel context.CancelFunc
}

// Device describes a discovered receiver
type Device struct {
	Name string
	Host string
	Port int
	Info []string
}

// Addr returns host:port for dialing
func (d Device) Addr() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Advertise announces this receiver via mDNS until Stop is called
func (m *Manager) Advertise() error {
	if m.config.Port <= 0 {
		return fmt.Errorf("invalid port %d", m.config.Port)
	}

	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		m.config.Info,
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Printf("Advertising mDNS service: %s on port %d (type: %s)", m.config.ServiceName, m.config.Port, ServiceType)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Stop withdraws the advertisement
func (m *Manager) Stop() {
	m.cancel()
}

// Find queries the network once and returns the first receiver with an
// IPv4 address.
func Find(ctx context.Context, timeout time.Duration) (*Device, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	result := make(chan *Device, 1)

	go func() {
		var first *Device
		for entry := range entries {
			if first != nil || entry.AddrV4 == nil {
				continue
			}
			first = &Device{
				Name: entry.Name,
				Host: entry.AddrV4.String(),
				Port: entry.Port,
				Info: entry.InfoFields,
			}
			log.Printf("Discovered device: %s at %s", first.Name, first.Addr())
		}
		result <- first
	}()

	params := &mdns.QueryParam{
		Service:     ServiceType,
		Domain:      "local",
		Timeout:     timeout,
		Entries:     entries,
		DisableIPv6: true,
	}

	queryErr := make(chan error, 1)
	go func() {
		err := mdns.Query(params)
		close(entries)
		queryErr <- err
	}()

	select {
	case err := <-queryErr:
		dev := <-result
		if err != nil {
			return nil, fmt.Errorf("mdns query failed: %w", err)
		}
		if dev == nil {
			return nil, ErrNotFound
		}
		return dev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// getLocalIPs returns local IP addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
