package backtest

import (
	"sync"
)

// Progress tracks scan progress across workers
type Progress struct {
	mu       sync.RWMutex
	total    int
	done     int
	skipped  int
	events   int
	scored   int
	unscored int
}

// ProgressSnapshot is a point-in-time copy of Progress
type ProgressSnapshot struct {
	Total    int `json:"total"`
	Done     int `json:"done"`
	Skipped  int `json:"skipped"`
	Events   int `json:"events"`
	Scored   int `json:"scored"`
	Unscored int `json:"unscored"`
}

// NewProgress creates a tracker for total instruments
func NewProgress(total int) *Progress {
	return &Progress{total: total}
}

// Record adds one finished instrument
func (p *Progress) Record(events []Event, skipped bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	if skipped {
		p.skipped++
	}
	p.events += len(events)
	for _, e := range events {
		if e.Scored {
			p.scored++
		} else {
			p.unscored++
		}
	}
}

// Snapshot returns the current counts
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return ProgressSnapshot{
		Total:    p.total,
		Done:     p.done,
		Skipped:  p.skipped,
		Events:   p.events,
		Scored:   p.scored,
		Unscored: p.unscored,
	}
}

// Percent returns completion in percent
func (s ProgressSnapshot) Percent() float64 {
	if s.Total == 0 {
		return 100
	}
	return float64(s.Done) / float64(s.Total) * 100
}
