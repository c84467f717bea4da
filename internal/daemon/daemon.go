// Package daemon implements the control loop described in spec §4.8:
// project discovery, stale-session finalization, per-project consolidation,
// a rate-limited knowledge-decay sweep, and debounced catch-up recompute.
package daemon

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/dean0x/devlog/internal/catchup"
	"github.com/dean0x/devlog/internal/config"
	"github.com/dean0x/devlog/internal/consolidate"
	"github.com/dean0x/devlog/internal/fsutil"
	"github.com/dean0x/devlog/internal/knowledge"
	"github.com/dean0x/devlog/internal/llm"
	"github.com/dean0x/devlog/internal/lock"
	"github.com/dean0x/devlog/internal/notify"
	"github.com/dean0x/devlog/internal/paths"
	"github.com/dean0x/devlog/internal/session"
	"github.com/dean0x/devlog/internal/telemetry"
)

// catchUpTimeout is the LLM budget for the catch-up summarization call
// site (§6, distinct from the Consolidator's 60s budget).
const catchUpTimeout = 30 * time.Second

// Daemon owns the process-wide control loop state and every collaborator
// it drives each tick.
type Daemon struct {
	Config    config.Config
	Sessions  *session.Store
	Knowledge *knowledge.Store
	CatchUp   *catchup.Store
	Lock      *lock.ProjectLock
	LLM       llm.Collaborator
	Notify    *notify.Broadcaster
	Telemetry *telemetry.Telemetry

	consolidator *consolidate.Consolidator

	mu                 sync.Mutex
	running            bool
	startedAt          time.Time
	sessionsProcessed  int
	lastConsolidation  *time.Time
	lastStalenessCheck *time.Time
	projects           map[string]ProjectStats
}

// New wires a Daemon from its collaborators. Any of Notify/Telemetry/LLM
// may be nil; the loop treats each as optional.
func New(cfg config.Config, sessions *session.Store, k *knowledge.Store, c *catchup.Store, pl *lock.ProjectLock, collaborator llm.Collaborator, notifier *notify.Broadcaster, tel *telemetry.Telemetry) *Daemon {
	d := &Daemon{
		Config:    cfg,
		Sessions:  sessions,
		Knowledge: k,
		CatchUp:   c,
		Lock:      pl,
		LLM:       collaborator,
		Notify:    notifier,
		Telemetry: tel,
		startedAt: time.Now().UTC(),
		projects:  make(map[string]ProjectStats),
	}
	d.consolidator = consolidate.New(k, sessions, c, collaborator)
	return d
}

// Run drives the control loop until ctx is cancelled, sleeping
// poll_interval_ms between ticks. Callers are expected to have called
// Start first and to call Stop after Run returns.
func (d *Daemon) Run(ctx context.Context) {
	interval := time.Duration(d.Config.PollIntervalMS) * time.Millisecond
	for {
		d.tick(ctx)
		if err := d.writeStatus(); err != nil {
			log.Printf("WARNING: daemon: write status snapshot: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// tick runs exactly one control-loop iteration (steps 1-5 of §4.8).
func (d *Daemon) tick(ctx context.Context) {
	d.discover()
	d.finalizeStaleSessions()
	d.consolidateAll(ctx)
	d.decaySweepIfDue()
	d.recomputeCatchUpAll(ctx)
}

// discover drains the pending-project registry and adds any new path whose
// working directory already exists to the in-memory project set.
func (d *Daemon) discover() {
	pending, err := paths.Consume()
	if err != nil {
		log.Printf("WARNING: daemon: drain pending-project registry: %v", err)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, path := range pending {
		if _, known := d.projects[path]; known {
			continue
		}
		if !dirExists(paths.WorkingDir(path)) {
			continue
		}
		d.projects[path] = ProjectStats{}
	}
}

// finalizeStaleSessions transitions active->consolidating sessions whose
// last activity exceeds the configured session timeout.
func (d *Daemon) finalizeStaleSessions() {
	timeout := time.Duration(d.Config.SessionTimeoutMS) * time.Millisecond
	for _, project := range d.projectPaths() {
		stale, err := d.Sessions.FindStale(project, timeout)
		if err != nil {
			log.Printf("WARNING: daemon: find stale sessions for %s: %v", project, err)
			continue
		}
		for _, acc := range stale {
			if err := d.Sessions.Finalize(project, acc.SessionID); err != nil {
				log.Printf("WARNING: daemon: finalize session %s: %v", acc.SessionID, err)
			}
		}
	}
}

// consolidateAll runs the Consolidator for every session awaiting
// consolidation. Each project gets its own goroutine, and each project's
// sessions are consolidated under that project's lock, so distinct
// projects proceed concurrently. It returns once every project is done.
func (d *Daemon) consolidateAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, project := range d.projectPaths() {
		project := project
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.consolidateProject(ctx, project)
		}()
	}
	wg.Wait()
}

func (d *Daemon) consolidateProject(ctx context.Context, project string) {
	pending, err := d.Sessions.FindToConsolidate(project)
	if err != nil {
		log.Printf("WARNING: daemon: find sessions to consolidate for %s: %v", project, err)
		return
	}
	if len(pending) == 0 {
		return
	}

	err = d.Lock.WithProjectLock(project, func() error {
		for _, acc := range pending {
			if err := d.consolidator.Run(ctx, acc); err != nil {
				log.Printf("WARNING: daemon: consolidate session %s in %s: %v", acc.SessionID, project, err)
				continue
			}
			d.recordConsolidation(project)
		}
		return nil
	})
	if err != nil {
		log.Printf("WARNING: daemon: consolidate %s: %v", project, err)
	}
}

func (d *Daemon) recordConsolidation(project string) {
	now := time.Now().UTC()
	d.mu.Lock()
	defer d.mu.Unlock()
	stats := d.projects[project]
	stats.SessionsConsolidated++
	stats.LastConsolidatedAt = &now
	d.projects[project] = stats
	d.sessionsProcessed++
	d.lastConsolidation = &now
}

// decaySweepIfDue runs the knowledge-staleness sweep at most once per
// staleness_check_interval_ms.
func (d *Daemon) decaySweepIfDue() {
	d.mu.Lock()
	last := d.lastStalenessCheck
	d.mu.Unlock()

	interval := time.Duration(d.Config.StalenessCheckIntervalMS) * time.Millisecond
	if last != nil && time.Since(*last) < interval {
		return
	}

	for _, project := range d.projectPaths() {
		d.decaySweepProject(project)
	}

	now := time.Now().UTC()
	d.mu.Lock()
	d.lastStalenessCheck = &now
	d.mu.Unlock()
}

func (d *Daemon) decaySweepProject(project string) {
	stale, err := d.Knowledge.FindStale(project, d.Config.DecayThresholdDays, d.Config.ReviewThresholdDays)
	if err != nil {
		log.Printf("WARNING: daemon: find stale knowledge for %s: %v", project, err)
		return
	}

	var changed bool
	for _, entry := range stale {
		action, err := d.Knowledge.ApplyDecay(project, entry)
		if err != nil {
			log.Printf("WARNING: daemon: apply decay for %s/%s: %v", project, entry.SectionID, err)
			continue
		}
		if action == knowledge.DecayDecayed {
			changed = true
		}
	}

	if changed {
		if err := d.Knowledge.RegenerateIndex(project); err != nil {
			log.Printf("WARNING: daemon: regenerate index for %s: %v", project, err)
		}
	}
}

// recomputeCatchUpAll recomputes the precomputed catch-up summary for every
// project whose dirty state satisfies the debounce rule.
func (d *Daemon) recomputeCatchUpAll(ctx context.Context) {
	for _, project := range d.projectPaths() {
		d.recomputeCatchUp(ctx, project)
	}
}

func (d *Daemon) recomputeCatchUp(ctx context.Context, project string) {
	state, err := d.CatchUp.ReadState(project)
	if err != nil {
		log.Printf("WARNING: daemon: read catch-up state for %s: %v", project, err)
		return
	}
	if !catchup.ShouldRecompute(state, time.Now().UTC()) {
		return
	}

	hash, err := d.sourceHash(project)
	if err != nil {
		log.Printf("WARNING: daemon: compute catch-up source hash for %s: %v", project, err)
		return
	}

	if d.LLM == nil {
		d.recordCatchUpFailure(project, "no LLM collaborator configured")
		return
	}

	prompt, err := d.buildCatchUpPrompt(project)
	if err != nil {
		log.Printf("WARNING: daemon: build catch-up prompt for %s: %v", project, err)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, catchUpTimeout)
	summary, err := d.LLM.Complete(callCtx, prompt)
	cancel()
	if err != nil {
		d.recordCatchUpFailure(project, err.Error())
		return
	}

	ps := catchup.PrecomputedSummary{
		SourceHash:  hash,
		Summary:     summary,
		GeneratedAt: time.Now().UTC(),
		Status:      catchup.StatusFresh,
	}
	if err := d.CatchUp.WritePrecomputed(project, ps); err != nil {
		log.Printf("WARNING: daemon: write precomputed catch-up for %s: %v", project, err)
		return
	}
	if err := d.CatchUp.ClearDirty(project); err != nil {
		log.Printf("WARNING: daemon: clear catch-up dirty flag for %s: %v", project, err)
	}

	if d.Notify != nil {
		if err := d.Notify.Publish(project, summary); err != nil {
			log.Printf("WARNING: daemon: publish catch-up update for %s: %v", project, err)
		}
	}
}

// recordCatchUpFailure preserves an existing precomputed summary (if any)
// but marks it stale with the failure reason, per §7's user-visible
// failure contract. The dirty flag is deliberately left set so the next
// tick retries.
func (d *Daemon) recordCatchUpFailure(project, reason string) {
	prev, err := d.CatchUp.ReadPrecomputed(project)
	if err != nil {
		log.Printf("WARNING: daemon: read precomputed catch-up for %s: %v", project, err)
		return
	}
	if prev == nil {
		return
	}
	prev.Status = catchup.StatusStale
	prev.LastError = reason
	if err := d.CatchUp.WritePrecomputed(project, *prev); err != nil {
		log.Printf("WARNING: daemon: mark catch-up stale for %s: %v", project, err)
	}
}

// sourceHash computes a stable digest over the inputs that determine
// whether a freshly generated catch-up summary would differ from the
// cached one: active session ids/last_activity/signal counts, and recent
// summary ids/consolidated_at.
func (d *Daemon) sourceHash(project string) (string, error) {
	h := sha256.New()

	sessions, err := d.Sessions.FindToConsolidate(project)
	if err != nil {
		return "", err
	}
	// A zero timeout returns every session still in the active status,
	// regardless of how recently it saw activity.
	active, err := d.Sessions.FindStale(project, 0)
	if err != nil {
		return "", err
	}
	all := append(append([]*session.Accumulator{}, sessions...), active...)
	sort.Slice(all, func(i, j int) bool { return all[i].SessionID < all[j].SessionID })
	for _, acc := range all {
		fmt.Fprintf(h, "%s|%s|%d\n", acc.SessionID, acc.LastActivity.Format(time.RFC3339Nano), len(acc.Signals))
	}

	summaries, err := d.CatchUp.RecentSummaries(project)
	if err != nil {
		return "", err
	}
	for _, s := range summaries {
		fmt.Fprintf(h, "%s|%s\n", s.SessionID, s.ConsolidatedAt.Format(time.RFC3339Nano))
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func (d *Daemon) buildCatchUpPrompt(project string) (string, error) {
	summaries, err := d.CatchUp.RecentSummaries(project)
	if err != nil {
		return "", err
	}
	prompt := "Summarize recent work on this project for a developer returning after time away.\n\n"
	for _, s := range summaries {
		prompt += fmt.Sprintf("- session %s (consolidated %s): %v\n", s.SessionID, s.ConsolidatedAt.Format(time.RFC3339), s.KeySignals)
	}
	return prompt, nil
}

func (d *Daemon) projectPaths() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.projects))
	for path := range d.projects {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

func (d *Daemon) writeStatus() error {
	d.mu.Lock()
	status := Status{
		Running:            d.running,
		StartedAt:          d.startedAt,
		SessionsProcessed:  d.sessionsProcessed,
		LastConsolidation:  d.lastConsolidation,
		LastStalenessCheck: d.lastStalenessCheck,
		Projects:           copyProjects(d.projects),
		PID:                os.Getpid(),
		GoVersion:          runtime.Version(),
	}
	d.mu.Unlock()

	if d.Telemetry != nil {
		if rss, cpu, ok := d.Telemetry.Sample(); ok {
			status.RSSBytes = rss
			status.CPUPercent = cpu
		} else {
			log.Printf("WARNING: daemon: telemetry sample unavailable")
		}
	}

	return fsutil.WriteJSONAtomic(paths.StatusFile(), status)
}

func copyProjects(in map[string]ProjectStats) map[string]ProjectStats {
	out := make(map[string]ProjectStats, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
