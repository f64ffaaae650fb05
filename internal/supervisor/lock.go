package supervisor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"
)

// PIDLock enforces single-instance execution of the daemon via a PID file,
// with liveness checked through a process-table lookup rather than a
// signal-0 probe. Any live process holding the recorded PID counts as the
// running daemon, including an unrelated process that has reused the PID.
type PIDLock struct {
	path string
	log  zerolog.Logger
}

// LockInfo is the PID file's JSON contents.
type LockInfo struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
}

// NewPIDLock builds a lock bound to one PID file path.
func NewPIDLock(path string, log zerolog.Logger) *PIDLock {
	return &PIDLock{path: path, log: log.With().Str("component", "pid_lock").Logger()}
}

// Acquire refuses to start a second daemon instance. A PID file whose
// process is no longer alive is treated as stale and silently replaced.
func (l *PIDLock) Acquire() error {
	info, err := l.Read()
	if err != nil {
		return err
	}
	if info != nil {
		alive, err := l.processAlive(info.PID)
		if err != nil {
			return fmt.Errorf("supervisor: check existing lock pid %d: %w", info.PID, err)
		}
		if alive {
			return fmt.Errorf("supervisor: daemon already running (pid %d)", info.PID)
		}
		l.log.Warn().Int("pid", info.PID).Msg("removing stale pid file")
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("supervisor: create pid directory: %w", err)
	}

	data, err := json.MarshalIndent(LockInfo{PID: os.Getpid(), StartedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("supervisor: marshal pid lock: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("supervisor: write pid file: %w", err)
	}
	return nil
}

// Release removes the PID file. Absence is not an error.
func (l *PIDLock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("supervisor: release pid lock: %w", err)
	}
	return nil
}

// Read returns the current lock contents, or nil if no PID file exists.
func (l *PIDLock) Read() (*LockInfo, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("supervisor: read pid file: %w", err)
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("supervisor: parse pid file: %w", err)
	}
	return &info, nil
}

func (l *PIDLock) processAlive(pid int) (bool, error) {
	exists, err := process.PidExists(int32(pid))
	if err != nil {
		return false, err
	}
	return exists, nil
}
