package daemon

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/dean0x/devlog/internal/fsutil"
	"github.com/dean0x/devlog/internal/paths"
)

// Start ensures the global directory exists, refuses to run alongside an
// already-live daemon (detected via the pid file), writes the new pid file,
// and restores projects from the last status snapshot (dropping any whose
// working directory has since disappeared).
func (d *Daemon) Start() error {
	if err := paths.EnsureGlobalDir(); err != nil {
		return newError(ErrKindStorage, "create global directory", err)
	}

	if pid, alive := livePid(); alive {
		return newError(ErrKindQueue, fmt.Sprintf("daemon already running (pid %d)", pid), nil)
	}

	if err := writePidFile(); err != nil {
		return newError(ErrKindStorage, "write pid file", err)
	}

	d.restoreStatus()

	d.mu.Lock()
	d.running = true
	d.mu.Unlock()
	return nil
}

// Stop marks the daemon stopped, persists a final status snapshot, and
// removes the pid file. Safe to call even if Start partially failed.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()

	if err := d.writeStatus(); err != nil {
		log.Printf("WARNING: daemon: write final status: %v", err)
	}
	if err := os.Remove(paths.PidFile()); err != nil && !os.IsNotExist(err) {
		return newError(ErrKindStorage, "remove pid file", err)
	}
	return nil
}

// restoreStatus loads the previous status snapshot (if any) and seeds the
// in-memory project set from it, filtering out any project whose
// ".memory/working" directory no longer exists.
func (d *Daemon) restoreStatus() {
	var prev Status
	ok, err := fsutil.ReadJSON(paths.StatusFile(), &prev)
	if err != nil {
		log.Printf("WARNING: daemon: read previous status: %v", err)
		return
	}
	if !ok {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for path, stats := range prev.Projects {
		if dirExists(paths.WorkingDir(path)) {
			d.projects[path] = stats
		}
	}
	if prev.SessionsProcessed > 0 {
		d.sessionsProcessed = prev.SessionsProcessed
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func writePidFile() error {
	return os.WriteFile(paths.PidFile(), []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// livePid reports whether the pid file names a process that is still
// alive. A missing file, an unparsable pid, or a pid that no longer exists
// all report alive=false so a fresh Start can proceed.
func livePid() (pid int, alive bool) {
	data, err := os.ReadFile(paths.PidFile())
	if err != nil {
		return 0, false
	}
	pid, err = strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, false
	}
	// On Unix, FindProcess always succeeds; signal 0 probes liveness
	// without affecting the target process.
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return pid, false
	}
	return pid, true
}
