// Package verify decides when a submitted report counts as confirmed.
// Local screen taps stand in for a real confirmation feed; crowd votes
// from nearby users are the first such feed.
package verify

import "sync"

type EventKind int

const (
	EventTap EventKind = iota
	EventVote
)

func (k EventKind) String() string {
	if k == EventVote {
		return "vote"
	}
	return "tap"
}

// Event is one confirmation input.
type Event struct {
	Kind      EventKind
	Source    string
	Confirmed bool
}

// Progress is how far one kind of input is towards its own threshold.
type Progress struct {
	Kind      EventKind
	Count     int
	Threshold int
}

// Signal accumulates events until its threshold is reached. Observe
// returns true exactly once per threshold crossing, after which the
// count is back at zero.
type Signal interface {
	Observe(ev Event) bool
	Progress() []Progress
	Reset()
}

// ProgressOf picks the entry for kind; ok is false when s does not
// count that kind.
func ProgressOf(s Signal, kind EventKind) (Progress, bool) {
	for _, p := range s.Progress() {
		if p.Kind == kind {
			return p, true
		}
	}
	return Progress{Kind: kind}, false
}

// Factory builds a fresh Signal for each reporting visit.
type Factory func() Signal

// DefaultTapThreshold is the number of taps that marks a report verified.
const DefaultTapThreshold = 5

// TapSignal counts local taps; votes are ignored.
type TapSignal struct {
	mu        sync.Mutex
	count     int
	threshold int
}

func NewTapSignal(threshold int) *TapSignal {
	if threshold <= 0 {
		threshold = DefaultTapThreshold
	}
	return &TapSignal{threshold: threshold}
}

// Taps returns a Factory of TapSignals.
func Taps(threshold int) Factory {
	return func() Signal { return NewTapSignal(threshold) }
}

func (s *TapSignal) Observe(ev Event) bool {
	if ev.Kind != EventTap {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	if s.count >= s.threshold {
		s.count = 0
		return true
	}
	return false
}

func (s *TapSignal) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *TapSignal) Threshold() int { return s.threshold }

func (s *TapSignal) Progress() []Progress {
	return []Progress{{Kind: EventTap, Count: s.Count(), Threshold: s.threshold}}
}

func (s *TapSignal) Reset() {
	s.mu.Lock()
	s.count = 0
	s.mu.Unlock()
}

// CrowdSignal counts distinct sources that confirmed the report. A
// source that later denies is withdrawn; repeated confirmations from
// one source count once.
type CrowdSignal struct {
	mu        sync.Mutex
	votes     map[string]bool
	threshold int
}

func NewCrowdSignal(threshold int) *CrowdSignal {
	if threshold <= 0 {
		threshold = 1
	}
	return &CrowdSignal{votes: make(map[string]bool), threshold: threshold}
}

// Crowd returns a Factory of CrowdSignals.
func Crowd(threshold int) Factory {
	return func() Signal { return NewCrowdSignal(threshold) }
}

func (s *CrowdSignal) Observe(ev Event) bool {
	if ev.Kind != EventVote || ev.Source == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ev.Confirmed {
		delete(s.votes, ev.Source)
		return false
	}
	s.votes[ev.Source] = true
	if len(s.votes) >= s.threshold {
		s.votes = make(map[string]bool)
		return true
	}
	return false
}

func (s *CrowdSignal) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.votes)
}

func (s *CrowdSignal) Threshold() int { return s.threshold }

func (s *CrowdSignal) Progress() []Progress {
	return []Progress{{Kind: EventVote, Count: s.Count(), Threshold: s.threshold}}
}

func (s *CrowdSignal) Reset() {
	s.mu.Lock()
	s.votes = make(map[string]bool)
	s.mu.Unlock()
}

// AnyOf fires when any member fires; all members reset together.
type AnyOf []Signal

func (a AnyOf) Observe(ev Event) bool {
	for _, s := range a {
		if s.Observe(ev) {
			a.Reset()
			return true
		}
	}
	return false
}

// Progress lists every member's own count and threshold.
func (a AnyOf) Progress() []Progress {
	var out []Progress
	for _, s := range a {
		out = append(out, s.Progress()...)
	}
	return out
}

func (a AnyOf) Reset() {
	for _, s := range a {
		s.Reset()
	}
}

// Combine returns a Factory building AnyOf over fresh members.
func Combine(factories ...Factory) Factory {
	return func() Signal {
		out := make(AnyOf, 0, len(factories))
		for _, f := range factories {
			out = append(out, f())
		}
		return out
	}
}
