// Package staleness tracks per-file indexing recency and reports freshness
// against per-class SLAs, per spec.md §4.8.
package staleness

import (
	"strings"
	"sync"
	"time"
)

// SLAOptions configures the three SLA classes. Zero values fall back to the
// spec's defaults via DefaultSLAOptions.
type SLAOptions struct {
	OpenFileSlaMs    int
	DependencySlaMs  int
	ProjectFileSlaMs int
}

// DefaultSLAOptions mirror spec.md §4.8's defaults.
func DefaultSLAOptions() SLAOptions {
	return SLAOptions{
		OpenFileSlaMs:    1_000,
		DependencySlaMs:  3_600_000,
		ProjectFileSlaMs: 300_000,
	}
}

// Category is a file's freshness bucket relative to its SLA.
type Category string

const (
	CategoryFresh    Category = "fresh"
	CategoryStale    Category = "stale"
	CategoryCritical Category = "critical"
	CategoryUnknown  Category = "unknown"
)

// Tracker holds the last-indexed timestamp per file and the set of files
// currently open in an editor (which get the tightest SLA).
type Tracker struct {
	opts SLAOptions

	mu        sync.RWMutex
	indexedAt map[string]time.Time
	openFiles map[string]struct{}
}

// New constructs a Tracker. A zero-value opts is replaced with
// DefaultSLAOptions.
func New(opts SLAOptions) *Tracker {
	if opts.OpenFileSlaMs == 0 && opts.DependencySlaMs == 0 && opts.ProjectFileSlaMs == 0 {
		opts = DefaultSLAOptions()
	}
	return &Tracker{
		opts:      opts,
		indexedAt: make(map[string]time.Time),
		openFiles: make(map[string]struct{}),
	}
}

// MarkIndexed records that path was (re)indexed at t.
func (tr *Tracker) MarkIndexed(path string, t time.Time) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.indexedAt[path] = t
}

// SetOpen marks path as open (or not) in an editor, affecting its SLA class.
func (tr *Tracker) SetOpen(path string, open bool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if open {
		tr.openFiles[path] = struct{}{}
	} else {
		delete(tr.openFiles, path)
	}
}

// slaFor selects the SLA duration for path, per spec.md §4.8's class rules:
// open files first, then dependency paths, then the general project default.
func (tr *Tracker) slaFor(path string) time.Duration {
	tr.mu.RLock()
	_, open := tr.openFiles[path]
	tr.mu.RUnlock()

	if open {
		return time.Duration(tr.opts.OpenFileSlaMs) * time.Millisecond
	}
	if isDependencyPath(path) {
		return time.Duration(tr.opts.DependencySlaMs) * time.Millisecond
	}
	return time.Duration(tr.opts.ProjectFileSlaMs) * time.Millisecond
}

func isDependencyPath(path string) bool {
	for _, marker := range []string{"node_modules/", "vendor/", ".pnpm/"} {
		if strings.Contains(path, marker) {
			return true
		}
	}
	return false
}

// Status is one path's freshness report at the time of the call.
type Status struct {
	Path       string
	Category   Category
	Age        time.Duration
	SLA        time.Duration
	Confidence float64
}

// Check reports path's current freshness relative to now. A path never
// indexed reports CategoryUnknown with Confidence 0.5, per spec.md §4.8.
func (tr *Tracker) Check(path string, now time.Time) Status {
	tr.mu.RLock()
	t, ok := tr.indexedAt[path]
	tr.mu.RUnlock()

	sla := tr.slaFor(path)
	if !ok {
		return Status{Path: path, Category: CategoryUnknown, SLA: sla, Confidence: 0.5}
	}

	age := now.Sub(t)
	return Status{
		Path:       path,
		Category:   categorize(age, sla),
		Age:        age,
		SLA:        sla,
		Confidence: confidenceFor(age, sla),
	}
}

// categorize implements spec.md §4.8/§5's fresh/stale/critical rule:
// fresh <=> age <= sla; stale <=> sla < age < 2*sla; critical <=> age >= 2*sla.
func categorize(age, sla time.Duration) Category {
	switch {
	case age <= sla:
		return CategoryFresh
	case age < 2*sla:
		return CategoryStale
	default:
		return CategoryCritical
	}
}

// confidenceFor implements spec.md §4.8's freshness-confidence scalar: 1.0
// within SLA, then 0.5 + 0.5*(1 - excessRatio) with excessRatio measured in
// units of 2*SLA past the boundary, so confidence falls linearly from 1.0 at
// the SLA boundary through 0.5 at 3*SLA to 0.0 at 5*SLA, and stays 0.0
// beyond.
func confidenceFor(age, sla time.Duration) float64 {
	if sla <= 0 {
		return 0.5
	}
	if age <= sla {
		return 1.0
	}
	excessRatio := float64(age-sla) / float64(2*sla)
	if excessRatio > 2 {
		excessRatio = 2
	}
	return 0.5 + 0.5*(1-excessRatio)
}

// PathSetConfidence is the mean Confidence over paths, per spec.md §4.8's
// "freshness-confidence of a path set is the mean over paths" definition.
func (tr *Tracker) PathSetConfidence(paths []string, now time.Time) float64 {
	if len(paths) == 0 {
		return 1.0
	}
	var sum float64
	for _, p := range paths {
		sum += tr.Check(p, now).Confidence
	}
	return sum / float64(len(paths))
}

// Report summarizes a query's retrieved path set for inclusion in a
// QueryResponse, pairing the aggregate scalar with any paths that crossed
// into stale or critical territory so the caller can emit disclosures.
type Report struct {
	Confidence float64
	Degraded   []Status
}

// ReportFor builds a Report for paths at now. Degraded holds every path that
// is not CategoryFresh, ordered as given.
func (tr *Tracker) ReportFor(paths []string, now time.Time) Report {
	r := Report{Confidence: tr.PathSetConfidence(paths, now)}
	for _, p := range paths {
		st := tr.Check(p, now)
		if st.Category != CategoryFresh {
			r.Degraded = append(r.Degraded, st)
		}
	}
	return r
}
