package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/shlex"

	"platter/internal/config"
	"platter/internal/jobs"
	"platter/internal/logging"
	"platter/internal/preflight"
	"platter/internal/proc"
	"platter/internal/reconcile"
)

// ErrAlreadyRunning reports that another platterd instance holds the daemon lock.
var ErrAlreadyRunning = errors.New("platterd already running")

const (
	monitorUdev = "udev"
	monitorPoll = "poll"

	lockFileName = "platterd.lock"
	pidFileName  = "platterd.pid"
)

// monitor watches the optical drive and reports inserted media to its handler.
type monitor interface {
	Start(ctx context.Context) error
	Stop()
	Running() bool
}

// Status is a point-in-time snapshot of the daemon's state.
type Status struct {
	Running       bool
	Monitor       string
	MonitorActive bool
	RipInFlight   bool
	LastSweep     time.Time
	JobsCorrected int64
}

// Daemon supervises disc detection, rip runner launches, and the periodic
// reconciliation sweep.
type Daemon struct {
	cfg        *config.Config
	configPath string
	store      *jobs.Store
	logger     *slog.Logger

	sweeper *reconcile.Sweeper
	lock    *flock.Flock

	// verify and launch are replaceable in tests.
	verify func(ctx context.Context) error
	launch func(device string) error

	mu          sync.Mutex
	monitor     monitor
	monitorKind string
	running     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	ripping   atomic.Bool
	lastSweep atomic.Int64
	corrected atomic.Int64
}

// New builds a daemon around an open job store. Start must be called before
// it does any work. cfgPath is handed to every spawned rip runner so children
// read the same configuration file the daemon did; empty means the runner
// resolves its own.
func New(cfg *config.Config, cfgPath string, store *jobs.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Daemon{
		cfg:        cfg,
		configPath: strings.TrimSpace(cfgPath),
		store:      store,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		sweeper:    reconcile.New(store, proc.NewChecker(), logger),
		lock:       flock.New(LockFile(cfg)),
	}
	d.verify = d.verifyReadiness
	d.launch = d.spawnRunner
	d.monitor, d.monitorKind = d.selectMonitor()
	return d, nil
}

// LockFile returns the path of the single-instance daemon lock.
func LockFile(cfg *config.Config) string {
	return filepath.Join(cfg.LockDir(), lockFileName)
}

// PIDFile returns the path of the daemon PID file.
func PIDFile(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.StateDir, pidFileName)
}

// Probe reports whether a daemon holds the lock for this configuration,
// along with the PID it recorded. It works from outside the daemon process
// and backs the status command.
func Probe(cfg *config.Config) (pid int, running bool) {
	lock := flock.New(LockFile(cfg))
	ok, err := lock.TryLock()
	if err != nil {
		return 0, false
	}
	if ok {
		_ = lock.Unlock()
		return 0, false
	}
	data, err := os.ReadFile(PIDFile(cfg))
	if err != nil {
		return 0, true
	}
	pid, _ = strconv.Atoi(strings.TrimSpace(string(data)))
	return pid, true
}

// Start acquires the daemon lock, verifies the host is ready, runs the
// startup reconciliation sweep, and begins monitoring. A second Start on a
// running daemon is a no-op; a second instance elsewhere fails with
// ErrAlreadyRunning.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return nil
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock %s: %w", d.lock.Path(), err)
	}
	if !ok {
		return fmt.Errorf("daemon lock %s held by another process: %w", d.lock.Path(), ErrAlreadyRunning)
	}

	if err := d.verify(ctx); err != nil {
		d.unlock()
		return err
	}

	if err := writePIDFile(PIDFile(d.cfg)); err != nil {
		d.unlock()
		return fmt.Errorf("write pid file: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.startMonitor(runCtx); err != nil {
		cancel()
		_ = os.Remove(PIDFile(d.cfg))
		d.unlock()
		return err
	}
	d.cancel = cancel

	d.wg.Add(1)
	go d.sweepLoop(runCtx)

	d.running = true
	d.logger.Info("daemon started",
		logging.String("monitor", d.monitorKind),
		logging.String(logging.FieldDevice, d.cfg.Drive.Device),
		logging.Duration("sweep_interval", d.sweepInterval()),
		logging.Int("pid", os.Getpid()))
	return nil
}

// Stop shuts the daemon down. In-flight rip runners are left alone; the
// reconciliation sweep picks up after them if they die before finishing.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}
	d.cancel()
	d.monitor.Stop()
	d.wg.Wait()
	if err := os.Remove(PIDFile(d.cfg)); err != nil && !os.IsNotExist(err) {
		d.logger.Warn("remove pid file", logging.Error(err))
	}
	d.unlock()
	d.running = false
	d.logger.Info("daemon stopped")
}

// Status reports the daemon's current state.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := Status{
		Running:       d.running,
		Monitor:       d.monitorKind,
		RipInFlight:   d.ripping.Load(),
		JobsCorrected: d.corrected.Load(),
	}
	if d.monitor != nil {
		s.MonitorActive = d.monitor.Running()
	}
	if ts := d.lastSweep.Load(); ts != 0 {
		s.LastSweep = time.Unix(0, ts)
	}
	return s
}

func (d *Daemon) unlock() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release daemon lock", logging.Error(err))
	}
}

// verifyReadiness refuses startup when a required preflight check fails.
// The check command prints the same probes with full detail.
func (d *Daemon) verifyReadiness(ctx context.Context) error {
	for _, result := range preflight.RunAll(ctx, d.cfg) {
		if result.Passed {
			continue
		}
		return fmt.Errorf("readiness check %q failed: %s", result.Name, result.Detail)
	}
	for _, status := range preflight.CheckBinaries(d.cfg) {
		if status.Available || status.Optional {
			continue
		}
		return fmt.Errorf("required binary %q unavailable: %s", status.Name, status.Detail)
	}
	return nil
}

func (d *Daemon) selectMonitor() (monitor, string) {
	if d.cfg.Daemon.Monitor == monitorPoll {
		return d.newPollMonitor(), monitorPoll
	}
	return newNetlinkMonitor(d.cfg.Drive.Device, d.logger, d.handleDisc), monitorUdev
}

func (d *Daemon) newPollMonitor() monitor {
	interval := time.Duration(d.cfg.Daemon.PollInterval) * time.Second
	return newPollMonitor(d.cfg.Drive.Device, interval, d.logger, d.handleDisc)
}

// startMonitor starts the configured monitor, falling back from udev to
// polling when the netlink socket is unavailable (containers, locked-down
// kernels).
func (d *Daemon) startMonitor(ctx context.Context) error {
	err := d.monitor.Start(ctx)
	if err == nil {
		return nil
	}
	if d.monitorKind != monitorUdev {
		return fmt.Errorf("start %s monitor: %w", d.monitorKind, err)
	}
	d.logger.Warn("netlink monitor unavailable; falling back to drive polling", logging.Error(err))
	d.monitor, d.monitorKind = d.newPollMonitor(), monitorPoll
	if err := d.monitor.Start(ctx); err != nil {
		return fmt.Errorf("start poll monitor: %w", err)
	}
	return nil
}

// handleDisc is called by the monitors when media appears in the drive.
func (d *Daemon) handleDisc(device string) {
	if d.ripping.Load() {
		d.logger.Debug("rip already in flight; ignoring detection",
			logging.String(logging.FieldDevice, device))
		return
	}
	d.logger.Info("disc detected",
		logging.String(logging.FieldDevice, device),
		logging.String("monitor", d.monitorKind))
	if err := d.launch(device); err != nil {
		d.logger.Error("launch rip runner",
			logging.Error(err),
			logging.String(logging.FieldDevice, device))
	}
}

// spawnRunner starts the per-disc rip process. The rip_command setting is a
// full command line; the rip subcommand, device, and the daemon's config path
// are appended to it. The child is deliberately not bound to the daemon's
// context: an in-flight rip keeps running across a daemon restart, and the
// sweep reconciles it if it dies.
func (d *Daemon) spawnRunner(device string) error {
	parts, err := shlex.Split(d.cfg.Daemon.RipCommand)
	if err != nil {
		return fmt.Errorf("parse rip command %q: %w", d.cfg.Daemon.RipCommand, err)
	}
	if len(parts) == 0 {
		parts = []string{"platter"}
	}
	args := append(parts[1:], "rip", "--device", device)
	if d.configPath != "" {
		args = append(args, "--config", d.configPath)
	}
	logPath := filepath.Join(d.cfg.Paths.LogDir,
		fmt.Sprintf("rip-%s.log", time.Now().UTC().Format("20060102T150405.000Z")))
	output, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open runner log %s: %w", logPath, err)
	}
	cmd := exec.Command(parts[0], args...)
	cmd.Stdout = output
	cmd.Stderr = output
	if err := cmd.Start(); err != nil {
		output.Close()
		return fmt.Errorf("start rip runner: %w", err)
	}
	// The child holds its own descriptor from here on.
	output.Close()
	d.ripping.Store(true)
	d.logger.Info("rip runner started",
		logging.Int("pid", cmd.Process.Pid),
		logging.String(logging.FieldDevice, device),
		logging.String("log_path", logPath))
	go d.reapRunner(cmd, device)
	return nil
}

func (d *Daemon) reapRunner(cmd *exec.Cmd, device string) {
	err := cmd.Wait()
	d.ripping.Store(false)
	if err != nil {
		d.logger.Warn("rip runner exited with error",
			logging.Error(err),
			logging.String(logging.FieldDevice, device))
		return
	}
	d.logger.Info("rip runner finished",
		logging.String(logging.FieldDevice, device))
}

func (d *Daemon) sweepLoop(ctx context.Context) {
	defer d.wg.Done()
	d.sweepOnce(ctx)
	ticker := time.NewTicker(d.sweepInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sweepOnce(ctx)
		}
	}
}

// sweepOnce runs one reconciliation pass and records the outcome.
func (d *Daemon) sweepOnce(ctx context.Context) {
	count, err := d.sweeper.Sweep(ctx)
	if err != nil {
		d.logger.Error("reconciliation sweep failed", logging.Error(err))
		return
	}
	d.lastSweep.Store(time.Now().UnixNano())
	if count > 0 {
		d.corrected.Add(int64(count))
		d.logger.Info("abandoned jobs corrected", logging.Int("count", count))
	}
}

func (d *Daemon) sweepInterval() time.Duration {
	if d.cfg.Daemon.SweepInterval <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(d.cfg.Daemon.SweepInterval) * time.Second
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}
