package profiler

import (
	"log/slog"
	"runtime"
	"time"
)

// Phase is the measured cost of one named step.
type Phase struct {
	// Name is the phase label, e.g. "parse" or "resolve".
	Name string
	// Elapsed is the wall time spent in the phase.
	Elapsed time.Duration
	// AllocBytes is the heap allocated during the phase (cumulative, not live).
	AllocBytes uint64
	// GCs is the number of collections that completed during the phase.
	GCs uint32
}

// Profiler tracks wall time and allocation statistics for a sequence of phases.
// A nil *Profiler is valid and records nothing, so callers can profile unconditionally.
type Profiler struct {
	logger         *slog.Logger
	phases         []Phase
	current        string
	phaseStart     time.Time
	start          time.Time
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler that reports through logger.
//
// Parameters:
//   - logger: receives one debug record per phase and a summary from Finish
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(logger *slog.Logger) *Profiler {
	p := &Profiler{
		logger: logger,
		start:  time.Now(),
	}
	p.sample()
	return p
}

// Mark ends the running phase, if any, and starts a new one.
//
// Parameters:
//   - phase: the name of the phase being entered
func (p *Profiler) Mark(phase string) {
	if p == nil {
		return
	}
	p.end()
	p.current = phase
	p.phaseStart = time.Now()
}

// Finish ends the running phase and logs the total.
//
// Returns:
//   - []Phase: every recorded phase in order
func (p *Profiler) Finish() []Phase {
	if p == nil {
		return nil
	}
	p.end()

	total := time.Since(p.start)
	attrs := make([]any, 0, 2*len(p.phases)+2)
	attrs = append(attrs, "total", total)
	for _, ph := range p.phases {
		attrs = append(attrs, ph.Name, ph.Elapsed)
	}
	p.logger.Info("profile", attrs...)
	return p.phases
}

// Phases returns the phases recorded so far.
//
// Returns:
//   - []Phase: the completed phases
func (p *Profiler) Phases() []Phase {
	if p == nil {
		return nil
	}
	return p.phases
}

func (p *Profiler) end() {
	if p.current == "" {
		return
	}
	elapsed := time.Since(p.phaseStart)
	prevAlloc, prevGC := p.lastTotalAlloc, p.lastGCCount
	p.sample()

	ph := Phase{
		Name:       p.current,
		Elapsed:    elapsed,
		AllocBytes: p.lastTotalAlloc - prevAlloc,
		GCs:        p.lastGCCount - prevGC,
	}
	p.phases = append(p.phases, ph)
	p.current = ""

	p.logger.Debug("phase",
		"phase", ph.Name,
		"elapsed", ph.Elapsed,
		"alloc_mb", float64(ph.AllocBytes)/1024/1024,
		"gc", ph.GCs,
		"heap_mb", float64(p.memStats.Alloc)/1024/1024)
}

// sample reads the runtime memory statistics.
// TotalAlloc is cumulative, so deltas between samples measure allocation churn.
func (p *Profiler) sample() {
	runtime.ReadMemStats(&p.memStats)
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.lastGCCount = p.memStats.NumGC
}
