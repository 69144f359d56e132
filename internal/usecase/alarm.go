package usecase

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/vitos/coin_alarm/internal/domain"
)

// AlarmEvaluator fires a volume alarm when a symbol's 1m traded value meets
// the threshold, gated by a per-symbol cooldown. A symbol with no cooldown
// entry is armed; an entry re-arms purely by elapsed time, checked on every
// tick rather than by a timer.
type AlarmEvaluator struct {
	threshold float64
	cooldown  time.Duration

	mu        sync.Mutex
	lastFired map[string]time.Time
	timeNow   func() time.Time // For testing
}

func NewAlarmEvaluator(threshold float64, cooldown time.Duration) *AlarmEvaluator {
	return &AlarmEvaluator{
		threshold: threshold,
		cooldown:  cooldown,
		lastFired: make(map[string]time.Time),
		timeNow:   time.Now,
	}
}

// Check evaluates the merged record after a tick was applied. It returns the
// event to emit and whether one fired; firing records the cooldown timestamp.
// NaN or negative volume from a corrupt upstream never fires.
func (e *AlarmEvaluator) Check(rec domain.CoinRecord) (domain.AlarmEvent, bool) {
	vol := rec.Volume1m
	if math.IsNaN(vol) || vol < 0 {
		return domain.AlarmEvent{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.timeNow()
	if vol < e.threshold || now.Sub(e.lastFired[rec.Symbol]) <= e.cooldown {
		return domain.AlarmEvent{}, false
	}
	e.lastFired[rec.Symbol] = now

	return domain.AlarmEvent{
		ID:      newAlarmID(now),
		Symbol:  rec.Symbol,
		Message: fmt.Sprintf("%s 1m traded value hit %s KRW", rec.Symbol, formatMoney(vol)),
		FiredAt: now,
	}, true
}

// LastFired exposes the cooldown entry for a symbol; the zero time means the
// symbol has never fired.
func (e *AlarmEvaluator) LastFired(symbol string) time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastFired[symbol]
}

func newAlarmID(now time.Time) string {
	// Millis plus a short base36 suffix, unique enough for a list key.
	suffix := strconv.FormatInt(rand.Int63n(1<<40), 36)
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}

// formatMoney renders large KRW amounts in millions, matching how the
// dashboard displays traded value.
func formatMoney(n float64) string {
	if math.Abs(n) >= 1_000_000 {
		return fmt.Sprintf("%dM", int64(n/1_000_000))
	}
	return strconv.FormatFloat(n, 'f', 0, 64)
}

// AlarmLog is a bounded, most-recent-first list of fired alarms. No
// deduplication: two fires for the same symbol are distinct entries.
type AlarmLog struct {
	mu       sync.RWMutex
	capacity int
	events   []domain.AlarmEvent
}

const DefaultAlarmLogCapacity = 100

func NewAlarmLog(capacity int) *AlarmLog {
	if capacity <= 0 {
		capacity = DefaultAlarmLogCapacity
	}
	return &AlarmLog{capacity: capacity}
}

// Append prepends the event, discarding the oldest past capacity.
func (l *AlarmLog) Append(ev domain.AlarmEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, domain.AlarmEvent{})
	copy(l.events[1:], l.events)
	l.events[0] = ev

	if len(l.events) > l.capacity {
		l.events = l.events[:l.capacity]
	}
}

// All returns a copy of the log, most-recent-first.
func (l *AlarmLog) All() []domain.AlarmEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.AlarmEvent, len(l.events))
	copy(out, l.events)
	return out
}

func (l *AlarmLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}
