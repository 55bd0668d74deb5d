package daemon

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"platter/internal/disc"
	"platter/internal/logging"
)

// pollMonitor checks the drive status ioctl on a fixed interval. It serves
// hosts where the udev netlink socket is unavailable, such as containers.
type pollMonitor struct {
	logger   *slog.Logger
	handler  func(device string)
	device   string
	interval time.Duration
	probe    func(device string) (disc.DriveStatus, error)

	mu      sync.Mutex
	quit    chan struct{}
	wg      sync.WaitGroup
	running bool
}

func newPollMonitor(device string, interval time.Duration, logger *slog.Logger, handler func(device string)) *pollMonitor {
	device = strings.TrimSpace(device)
	if device == "" {
		return nil
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &pollMonitor{
		logger:   logging.NewComponentLogger(logger, "poll-monitor"),
		handler:  handler,
		device:   device,
		interval: interval,
		probe:    disc.CheckDriveStatus,
	}
}

// Start begins the poll loop. The first probe runs immediately so a disc
// already in the tray is picked up without waiting a full interval.
func (m *pollMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}
	m.quit = make(chan struct{})
	m.running = true
	m.wg.Add(1)
	go m.loop(ctx, m.quit)
	m.logger.Info("poll monitor started",
		logging.String(logging.FieldDevice, m.device),
		logging.Duration("interval", m.interval))
	return nil
}

// Stop ends the poll loop and waits for it to exit.
func (m *pollMonitor) Stop() {
	if m == nil {
		return
	}
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	close(m.quit)
	m.quit = nil
	m.running = false
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("poll monitor stopped")
}

// Running reports whether the poll loop is active.
func (m *pollMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *pollMonitor) loop(ctx context.Context, quit <-chan struct{}) {
	defer m.wg.Done()
	present := m.tick(false)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-quit:
			return
		case <-ticker.C:
			present = m.tick(present)
		}
	}
}

// tick probes the drive once. The handler fires only on the edge where media
// appears, so a disc sitting in the tray does not retrigger every interval.
func (m *pollMonitor) tick(present bool) bool {
	status, err := m.probe(m.device)
	if err != nil {
		m.logger.Debug("drive status probe failed",
			logging.Error(err),
			logging.String(logging.FieldDevice, m.device))
		return false
	}
	if status != disc.DriveStatusDiscOK {
		return false
	}
	if present {
		return true
	}
	m.logger.Info("disc detected",
		logging.String(logging.FieldDevice, m.device),
		logging.String("status", status.String()))
	if m.handler != nil {
		m.handler(m.device)
	}
	return true
}
