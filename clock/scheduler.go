package clock

import (
	"sort"
	"sync"
	"time"

	"github.com/accessiclock/accessiclock/clock/pack"
)

// Intervals selects which chime boundaries are active. CustomMinutes of
// zero disables the custom interval.
type Intervals struct {
	Hourly        bool `mapstructure:"hourly" yaml:"hourly"`
	HalfHour      bool `mapstructure:"half_hour" yaml:"half_hour"`
	QuarterHour   bool `mapstructure:"quarter_hour" yaml:"quarter_hour"`
	CustomMinutes int  `mapstructure:"custom_minutes" yaml:"custom_minutes"`
}

// roleInterval pairs a chime role with its period. Slice order is
// precedence order: when two boundaries land on the same instant only the
// first matching role fires.
type roleInterval struct {
	role pack.Role
	d    time.Duration
}

func (iv Intervals) active() []roleInterval {
	var out []roleInterval
	if iv.Hourly {
		out = append(out, roleInterval{pack.RoleHourChime, time.Hour})
	}
	if iv.HalfHour {
		out = append(out, roleInterval{pack.RoleHalfChime, 30 * time.Minute})
	}
	if iv.QuarterHour {
		out = append(out, roleInterval{pack.RoleQuarterChime, 15 * time.Minute})
	}
	if iv.CustomMinutes > 0 {
		out = append(out, roleInterval{pack.RoleCustomChime, time.Duration(iv.CustomMinutes) * time.Minute})
	}
	return out
}

// speechPeriod is the announcement cadence: the most frequent configured
// interval, or hourly when no interval is configured. A sole custom
// interval longer than an hour keeps its own cadence.
func (iv Intervals) speechPeriod() time.Duration {
	active := iv.active()
	if len(active) == 0 {
		return time.Hour
	}
	period := active[0].d
	for _, ri := range active[1:] {
		if ri.d < period {
			period = ri.d
		}
	}
	return period
}

// Scheduler turns the passage of wall-clock time into chime and speech
// events. It holds no timers itself; the engine drives it by calling
// Advance with the current time, which makes boundary behavior fully
// deterministic under test.
type Scheduler struct {
	mu            sync.Mutex
	lastEvaluated time.Time
	intervals     Intervals
	chimeEnabled  bool
	speechEnabled bool
}

// NewScheduler creates a scheduler. The first Advance call establishes
// the evaluation baseline and emits nothing.
func NewScheduler(intervals Intervals, chimeEnabled, speechEnabled bool) *Scheduler {
	return &Scheduler{
		intervals:     intervals,
		chimeEnabled:  chimeEnabled,
		speechEnabled: speechEnabled,
	}
}

// Configure replaces the scheduler's interval set and toggles. It takes
// effect on the next Advance call.
func (s *Scheduler) Configure(intervals Intervals, chimeEnabled, speechEnabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intervals = intervals
	s.chimeEnabled = chimeEnabled
	s.speechEnabled = speechEnabled
}

// Advance evaluates every boundary crossed since the previous call and
// returns the chime events to play, oldest first, plus an optional speech
// request. A boundary fires when its wall-clock floor changes between the
// previous evaluation and now. When evaluation pauses across several
// boundaries of one interval, only the most recent boundary fires; missed
// ones are dropped, never queued. Disabled chimes still advance the
// evaluation point, so re-enabling never replays the disabled span.
func (s *Scheduler) Advance(now time.Time) ([]Event, *SpeakEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastEvaluated.IsZero() {
		s.lastEvaluated = now
		return nil, nil
	}
	if !now.After(s.lastEvaluated) {
		return nil, nil
	}
	last := s.lastEvaluated
	s.lastEvaluated = now

	var speak *SpeakEvent
	if s.speechEnabled {
		period := s.intervals.speechPeriod()
		boundary := floorWall(now, period)
		if boundary.After(floorWall(last, period)) {
			speak = &SpeakEvent{Time: boundary}
		}
	}

	if !s.chimeEnabled {
		return nil, speak
	}

	var events []Event
	for _, ri := range s.intervals.active() {
		boundary := floorWall(now, ri.d)
		if !boundary.After(floorWall(last, ri.d)) {
			continue
		}
		// Higher-precedence roles appear earlier in active(); drop this
		// role if one of them already fired at the same instant.
		coincides := false
		for _, ev := range events {
			if ev.Time.Equal(boundary) {
				coincides = true
				break
			}
		}
		if coincides {
			continue
		}
		events = append(events, Event{Role: ri.role, Time: boundary})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time.Before(events[j].Time)
	})
	return events, speak
}

// NextChime reports the next boundary at or after now and the role that
// will fire there. ok is false when no interval is configured.
func (s *Scheduler) NextChime(now time.Time) (time.Time, pack.Role, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		best     time.Time
		bestRole pack.Role
		found    bool
	)
	for _, ri := range s.intervals.active() {
		next := floorWall(now, ri.d).Add(ri.d)
		if !found || next.Before(best) {
			best, bestRole, found = next, ri.role, true
		}
	}
	return best, bestRole, found
}

// floorWall rounds t down to the nearest multiple of d measured from
// local midnight. time.Truncate works on the absolute epoch and drifts in
// zones whose UTC offset is not a multiple of d, so it is not usable here.
func floorWall(t time.Time, d time.Duration) time.Time {
	year, month, day := t.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	since := t.Sub(midnight)
	return midnight.Add(since - since%d)
}
