// Package supervisor runs the scan pipeline on a fixed interval as a
// long-lived background process: single-instance enforcement via a PID
// lock, exponential backoff on consecutive failures, graceful shutdown on
// SIGINT/SIGTERM, and a persisted stats file for status reporting.
package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/duskfield/wxengine/internal/summary"
)

const (
	maxBackoff   = 10 * time.Minute
	maxLogFiles  = 100
	shutdownGrace = 60 * time.Second
)

// Runner executes one scan cycle and returns its summary. *pipeline.Pipeline
// satisfies this via its Run method.
type Runner interface {
	Run() (summary.Summary, error)
}

// Stats is the daemon's persisted self-report, read by the status command.
type Stats struct {
	PID                  int       `json:"pid"`
	Mode                 string    `json:"mode"`
	Interval             int       `json:"interval_seconds"`
	StartedAt            time.Time `json:"started_at"`
	LastUpdate           time.Time `json:"last_update"`
	TotalScans           int       `json:"total_scans"`
	TotalSuccesses       int       `json:"total_successes"`
	TotalFailures        int       `json:"total_failures"`
	ConsecutiveFailures  int       `json:"consecutive_failures"`
}

// Daemon owns the interval loop, the PID lock, per-cycle log rotation, and
// the persisted Stats file.
type Daemon struct {
	runner     Runner
	lock       *PIDLock
	interval   time.Duration
	mode       string
	logDir     string
	statsPath  string
	log        zerolog.Logger

	mu      sync.Mutex
	running bool
	stats   Stats
}

// New builds a Daemon. pidPath and statsPath are expected to sit under the
// same data directory as the database; logDir holds one file per cycle.
func New(runner Runner, pidPath, statsPath, logDir, mode string, interval time.Duration, log zerolog.Logger) *Daemon {
	return &Daemon{
		runner:    runner,
		lock:      NewPIDLock(pidPath, log),
		interval:  interval,
		mode:      mode,
		logDir:    logDir,
		statsPath: statsPath,
		log:       log.With().Str("component", "daemon").Logger(),
	}
}

// Start acquires the PID lock, installs signal handlers, and runs the
// interval loop until a shutdown signal arrives or ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	if err := d.lock.Acquire(); err != nil {
		return err
	}
	defer d.lock.Release()

	d.mu.Lock()
	d.running = true
	d.stats = Stats{PID: os.Getpid(), Mode: d.mode, Interval: int(d.interval.Seconds()), StartedAt: time.Now().UTC()}
	d.mu.Unlock()
	d.saveStats()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d.log.Info().Int("pid", os.Getpid()).Str("mode", d.mode).Dur("interval", d.interval).Msg("daemon started")

	d.loop(ctx)

	d.log.Info().
		Int("total_scans", d.stats.TotalScans).
		Int("total_successes", d.stats.TotalSuccesses).
		Int("total_failures", d.stats.TotalFailures).
		Msg("daemon stopped")
	return nil
}

func (d *Daemon) loop(ctx context.Context) {
	consecutiveFailures := 0
	for {
		if ctx.Err() != nil {
			return
		}

		cycleStart := time.Now()
		ok := d.runOneCycle()

		var wait time.Duration
		if ok {
			consecutiveFailures = 0
			wait = d.interval
		} else {
			consecutiveFailures++
			backoff := d.interval * time.Duration(1<<uint(consecutiveFailures))
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			wait = backoff
			d.log.Warn().Int("consecutive_failures", consecutiveFailures).Dur("backoff", wait).Msg("scan failed, backing off")
		}

		d.mu.Lock()
		d.stats.ConsecutiveFailures = consecutiveFailures
		d.mu.Unlock()
		d.saveStats()

		elapsed := time.Since(cycleStart)
		remaining := wait - elapsed
		if remaining < 0 {
			remaining = 0
		}
		deadline := time.Now().Add(remaining)

		for time.Now().Before(deadline) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(1 * time.Second):
			}
		}
	}
}

func (d *Daemon) runOneCycle() bool {
	d.mu.Lock()
	d.stats.TotalScans++
	cycleNum := d.stats.TotalScans
	d.mu.Unlock()

	logFile, closeLog, err := d.openCycleLog(cycleNum)
	if err != nil {
		d.log.Warn().Err(err).Msg("failed to open cycle log file")
	}
	cycleLog := d.log
	if logFile != nil {
		cycleLog = zerolog.New(zerolog.MultiLevelWriter(d.log, logFile)).With().Timestamp().Logger()
	}
	defer func() {
		if closeLog != nil {
			closeLog()
		}
		d.rotateLogs()
	}()

	cycleLog.Info().Int("cycle", cycleNum).Msg("scan starting")

	sum, err := d.runner.Run()

	d.mu.Lock()
	defer d.mu.Unlock()

	if err != nil {
		d.stats.TotalFailures++
		cycleLog.Error().Err(err).Int("cycle", cycleNum).Msg("scan crashed")
		return false
	}
	if len(sum.Errors) > 0 {
		d.stats.TotalFailures++
		cycleLog.Error().Int("cycle", cycleNum).Strs("errors", sum.Errors).Msg("scan completed with errors")
		return false
	}

	d.stats.TotalSuccesses++
	cycleLog.Info().
		Int("cycle", cycleNum).
		Int("opportunities", sum.OpportunitiesFound).
		Int("orders_attempted", sum.OrdersAttempted).
		Int("orders_succeeded", sum.OrdersSucceeded).
		Msg("scan OK")
	return true
}

func (d *Daemon) openCycleLog(cycleNum int) (*os.File, func(), error) {
	if d.logDir == "" {
		return nil, nil, nil
	}
	if err := os.MkdirAll(d.logDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("supervisor: create log dir: %w", err)
	}
	name := fmt.Sprintf("scan_%s.log", time.Now().UTC().Format("20060102T150405Z"))
	f, err := os.Create(filepath.Join(d.logDir, name))
	if err != nil {
		return nil, nil, fmt.Errorf("supervisor: create cycle log: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// rotateLogs keeps only the most recent maxLogFiles scan_*.log files.
func (d *Daemon) rotateLogs() {
	if d.logDir == "" {
		return
	}
	entries, err := os.ReadDir(d.logDir)
	if err != nil {
		return
	}
	var logs []string
	for _, e := range entries {
		if !e.IsDir() && len(e.Name()) > 5 && e.Name()[:5] == "scan_" {
			logs = append(logs, e.Name())
		}
	}
	if len(logs) <= maxLogFiles {
		return
	}
	sort.Strings(logs)
	for _, name := range logs[:len(logs)-maxLogFiles] {
		os.Remove(filepath.Join(d.logDir, name))
	}
}

func (d *Daemon) saveStats() {
	d.mu.Lock()
	d.stats.LastUpdate = time.Now().UTC()
	stats := d.stats
	d.mu.Unlock()

	if d.statsPath == "" {
		return
	}
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		d.log.Warn().Err(err).Msg("failed to marshal daemon stats")
		return
	}
	if err := os.MkdirAll(filepath.Dir(d.statsPath), 0o755); err != nil {
		d.log.Warn().Err(err).Msg("failed to create stats directory")
		return
	}
	if err := os.WriteFile(d.statsPath, data, 0o644); err != nil {
		d.log.Warn().Err(err).Msg("failed to persist daemon stats")
	}
}

// ReadStats loads the persisted Stats from statsPath, for the status
// command running as a separate process.
func ReadStats(statsPath string) (Stats, error) {
	data, err := os.ReadFile(statsPath)
	if err != nil {
		return Stats{}, err
	}
	var s Stats
	if err := json.Unmarshal(data, &s); err != nil {
		return Stats{}, fmt.Errorf("supervisor: parse stats file: %w", err)
	}
	return s, nil
}

// Stop sends SIGTERM to the running daemon's PID and waits up to
// shutdownGrace for it to exit, escalating to SIGKILL if it doesn't.
func Stop(pidPath string) error {
	lock := NewPIDLock(pidPath, zerolog.Nop())
	info, err := lock.Read()
	if err != nil {
		return err
	}
	if info == nil {
		return fmt.Errorf("supervisor: no daemon running (no pid file)")
	}

	proc, err := os.FindProcess(info.PID)
	if err != nil {
		return fmt.Errorf("supervisor: find process %d: %w", info.PID, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("supervisor: signal process %d: %w", info.PID, err)
	}

	deadline := time.Now().Add(shutdownGrace)
	for time.Now().Before(deadline) {
		alive, err := lock.processAlive(info.PID)
		if err != nil {
			return err
		}
		if !alive {
			return nil
		}
		time.Sleep(1 * time.Second)
	}

	return proc.Signal(syscall.SIGKILL)
}
