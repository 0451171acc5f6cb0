package icron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// TriggerInfo describes when a cron expression fires relative to a
// reference time.
type TriggerInfo struct {
	Next       time.Time
	Last       time.Time
	Expression string

	TimeSinceLast time.Duration
	TimeUntilNext time.Duration
}

// Parse accepts the five-field cron syntax and descriptors such as @daily.
func Parse(cronExpr string) (cron.Schedule, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule, nil
}

// maxLookback bounds the search for the previous activation.
const maxLookback = 366 * 24 * time.Hour

// GetTriggerInfo reports the previous and next activation of cronExpr
// around refTime. Last is zero when nothing fired within a year.
func GetTriggerInfo(cronExpr string, refTime time.Time) (*TriggerInfo, error) {
	schedule, err := Parse(cronExpr)
	if err != nil {
		return nil, err
	}

	info := &TriggerInfo{
		Expression: cronExpr,
		Next:       schedule.Next(refTime),
		Last:       previous(schedule, refTime),
	}
	info.TimeUntilNext = info.Next.Sub(refTime)
	if !info.Last.IsZero() {
		info.TimeSinceLast = refTime.Sub(info.Last)
	}
	return info, nil
}

// previous finds the latest activation at or before ref by widening the
// window until one activation falls inside it, then walking forward.
func previous(schedule cron.Schedule, ref time.Time) time.Time {
	for window := time.Hour; window <= 2*maxLookback; window *= 2 {
		t := schedule.Next(ref.Add(-window))
		if t.After(ref) || t.IsZero() {
			continue
		}
		for n := schedule.Next(t); !n.IsZero() && !n.After(ref); n = schedule.Next(n) {
			t = n
		}
		if ref.Sub(t) > maxLookback {
			return time.Time{}
		}
		return t
	}
	return time.Time{}
}
