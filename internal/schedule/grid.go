package schedule

import (
	"cmp"
	"slices"
	"time"
)

// DateRange is an inclusive span of calendar days. First and Last are
// midnights in the engine's location.
type DateRange struct {
	First time.Time
	Last  time.Time
}

// End returns the instant just after the range, midnight after Last.
func (r DateRange) End() time.Time {
	return r.Last.AddDate(0, 0, 1)
}

// Days lists every day in the range in order.
func (r DateRange) Days() []time.Time {
	var days []time.Time
	for d := r.First; !d.After(r.Last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Contains reports whether t falls on a day inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := StartOfDay(t, r.First.Location())
	return !d.Before(r.First) && !d.After(r.Last)
}

// StartOfDay truncates t to midnight of its calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func startOfWeek(day time.Time, weekStart time.Weekday) time.Time {
	offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

// MonthRange returns the whole weeks covering anchor's month: from the week
// start on or before the 1st to the week end on or after the last day.
func MonthRange(anchor time.Time, loc *time.Location, weekStart time.Weekday) DateRange {
	day := StartOfDay(anchor, loc)
	first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	last := first.AddDate(0, 1, -1)
	return DateRange{
		First: startOfWeek(first, weekStart),
		Last:  startOfWeek(last, weekStart).AddDate(0, 0, 6),
	}
}

// DayKey formats a day as used for bucket lookups.
func DayKey(day time.Time) string {
	return day.Format(dayLayout)
}

// sortEvents orders events by HH:mm, breaking ties task, manual, crm and
// otherwise keeping input order.
func sortEvents(events []CalendarEvent) {
	slices.SortStableFunc(events, func(a, b CalendarEvent) int {
		if c := cmp.Compare(a.Time, b.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.Kind.rank(), b.Kind.rank())
	})
}

// bucket groups events by day over r. Every day in r gets an entry, empty or
// not; events outside r are dropped.
func bucket(r DateRange, events []CalendarEvent) map[string][]CalendarEvent {
	buckets := make(map[string][]CalendarEvent)
	for _, d := range r.Days() {
		buckets[DayKey(d)] = []CalendarEvent{}
	}
	for _, ev := range events {
		if !r.Contains(ev.Date) {
			continue
		}
		key := DayKey(ev.Date)
		buckets[key] = append(buckets[key], ev)
	}
	for _, day := range buckets {
		sortEvents(day)
	}
	return buckets
}
