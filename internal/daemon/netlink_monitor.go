package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"platter/internal/logging"
)

// netlinkMonitor subscribes to udev events on the kernel netlink socket and
// reports optical media insertion without ever touching the drive. No udev
// rules are needed; the kernel announces media changes on its own.
type netlinkMonitor struct {
	logger  *slog.Logger
	handler func(device string)
	device  string

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

func newNetlinkMonitor(device string, logger *slog.Logger, handler func(device string)) *netlinkMonitor {
	device = strings.TrimSpace(device)
	if device == "" {
		return nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &netlinkMonitor{
		logger:  logging.NewComponentLogger(logger, "netlink-monitor"),
		handler: handler,
		device:  device,
	}
}

// Start connects to the udev netlink socket and begins listening. A connect
// failure is returned rather than swallowed so the daemon can fall back to
// the polling monitor.
func (m *netlinkMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return fmt.Errorf("connect udev netlink socket: %w", err)
	}
	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.listen(ctx, conn, quit)

	m.logger.Info("netlink monitor started",
		logging.String(logging.FieldDevice, m.device))
	return nil
}

// Stop closes the netlink connection and ends the listen loop.
func (m *netlinkMonitor) Stop() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
	m.logger.Info("netlink monitor stopped")
}

// Running reports whether the monitor is listening.
func (m *netlinkMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *netlinkMonitor) listen(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, discMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error", logging.Error(err))
		}
	}
}

// discMatcher matches block-subsystem events that signal optical media
// becoming available: insertion, or a tray closing with media present.
func discMatcher() netlink.Matcher {
	action := "change|add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM":      "block",
			"ID_CDROM":       "1",
			"ID_CDROM_MEDIA": "1",
		},
	})
	return rules
}

func (m *netlinkMonitor) handleEvent(uevent netlink.UEvent) {
	device := eventDevice(uevent)
	if device == "" {
		m.logger.Debug("event without device name",
			logging.String("kobj", uevent.KObj))
		return
	}
	if device != m.device {
		m.logger.Debug("event for other device",
			logging.String(logging.FieldDevice, device))
		return
	}
	m.logger.Info("media change event",
		logging.String(logging.FieldDevice, device),
		logging.String("action", string(uevent.Action)))
	if m.handler != nil {
		m.handler(device)
	}
}

// eventDevice resolves the /dev path of a uevent. Kernel uevents carry
// DEVNAME without the /dev prefix; udev-processed events include it. Events
// without DEVNAME fall back to the last element of DEVPATH.
func eventDevice(uevent netlink.UEvent) string {
	if name := uevent.Env["DEVNAME"]; name != "" {
		if strings.HasPrefix(name, "/dev/") {
			return name
		}
		return "/dev/" + name
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	last := parts[len(parts)-1]
	if last == "" {
		return ""
	}
	return "/dev/" + last
}
