package service

import (
	"strings"
	"time"

	"storefront/internal/model"
)

// Timeline ranges accepted by OrderTimeline.
const (
	RangeToday     = "today"
	RangeYesterday = "yesterday"
	RangeThisWeek  = "this_week"
	RangeThisMonth = "this_month"
	RangeCustom    = "custom"
)

// TimelineFilter selects orders by purchase date. Start and End are calendar
// dates and only used by RangeCustom; End is inclusive.
type TimelineFilter struct {
	Range string
	Start time.Time
	End   time.Time
	Page  model.Page
}

// timelineWindow returns the half-open [start, end) interval the filter
// covers, with day boundaries taken in now's location. Weeks start on Monday.
func timelineWindow(f TimelineFilter, now time.Time) (time.Time, time.Time, error) {
	loc := now.Location()
	today := startOfDay(now, loc)
	tomorrow := today.AddDate(0, 0, 1)

	switch strings.ToLower(strings.TrimSpace(f.Range)) {
	case RangeToday:
		return today, tomorrow, nil
	case RangeYesterday:
		return today.AddDate(0, 0, -1), today, nil
	case RangeThisWeek:
		sinceMonday := (int(today.Weekday()) + 6) % 7
		return today.AddDate(0, 0, -sinceMonday), tomorrow, nil
	case RangeThisMonth:
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc), tomorrow, nil
	case RangeCustom:
		if f.Start.IsZero() || f.End.IsZero() {
			return time.Time{}, time.Time{}, model.ErrInvalidFilter
		}
		start := startOfDay(f.Start, loc)
		end := startOfDay(f.End, loc).AddDate(0, 0, 1)
		if !start.Before(end) {
			return time.Time{}, time.Time{}, model.ErrInvalidFilter
		}
		return start, end, nil
	default:
		return time.Time{}, time.Time{}, model.ErrInvalidFilter
	}
}

// startOfDay keeps the calendar date of t as written and anchors it at
// midnight in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
