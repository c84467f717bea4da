// Package telemetry samples the daemon process's own resource usage for
// the status snapshot. It is observability only: a failure here is logged
// and the caller proceeds with zero-valued fields, never treated as fatal.
package telemetry

import (
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// Telemetry wraps gopsutil's process inspection for the current pid.
type Telemetry struct {
	proc *process.Process
}

// New resolves a Telemetry for the current process. err is non-nil only
// when gopsutil cannot resolve the current pid at all (rare); callers
// should treat that the same as Sample failing per-call.
func New() (*Telemetry, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Telemetry{proc: p}, nil
}

// Sample returns the process's current RSS (bytes) and CPU percent.
// ok=false on any platform/permission error; the Daemon treats that as
// "omit these fields," never as a loop-stopping error.
func (t *Telemetry) Sample() (rss uint64, cpuPercent float64, ok bool) {
	if t == nil || t.proc == nil {
		return 0, 0, false
	}

	memInfo, err := t.proc.MemoryInfo()
	if err != nil || memInfo == nil {
		return 0, 0, false
	}

	cpu, err := t.proc.CPUPercent()
	if err != nil {
		return 0, 0, false
	}

	return memInfo.RSS, cpu, true
}
