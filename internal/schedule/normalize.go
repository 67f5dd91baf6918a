package schedule

import (
	"time"

	"github.com/dukerupert/opsdesk/internal/model"
)

// LeadPlaceholder stands in for a lead name that could not be resolved.
const LeadPlaceholder = "Lead"

// NormalizeTask maps a task to a calendar event on its deadline day.
// ok is false when the task has no deadline.
func NormalizeTask(t model.Task, loc *time.Location) (CalendarEvent, bool) {
	if t.Deadline == nil || t.Deadline.IsZero() {
		return CalendarEvent{}, false
	}
	return CalendarEvent{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Type:        TypeTask,
		Date:        StartOfDay(*t.Deadline, loc),
		Time:        t.Deadline.In(loc).Format(clockLayout),
		Kind:        KindTask,
		Raw:         t,
	}, true
}

// NormalizeEntry maps a manual entry to a calendar event. The entry's own
// Time string wins over the clock part of its Date.
func NormalizeEntry(e model.ScheduleEntry, loc *time.Location) (CalendarEvent, bool) {
	if e.Date.IsZero() {
		return CalendarEvent{}, false
	}
	clock := e.Time
	if !validClock(clock) {
		clock = DefaultTime
	}
	return CalendarEvent{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Type:        EventType(e.Type),
		Date:        StartOfDay(e.Date, loc),
		Time:        clock,
		Kind:        KindManual,
		Raw:         e,
	}, true
}

// NormalizeFollowUp maps a follow-up to a calendar event titled after the
// lead. An empty leadName falls back to LeadPlaceholder.
func NormalizeFollowUp(f model.FollowUp, leadName string, loc *time.Location) (CalendarEvent, bool) {
	if f.ScheduledAt == nil || f.ScheduledAt.IsZero() {
		return CalendarEvent{}, false
	}
	typ := TypeCall
	if f.Type == model.FollowUpMeeting {
		typ = TypeMeeting
	}
	return CalendarEvent{
		ID:          f.ID,
		Title:       followUpTitle(typ, leadName),
		Description: f.Notes,
		Type:        typ,
		Date:        StartOfDay(*f.ScheduledAt, loc),
		Time:        f.ScheduledAt.In(loc).Format(clockLayout),
		Kind:        KindCRM,
		Raw:         f,
	}, true
}

func followUpTitle(typ EventType, leadName string) string {
	if leadName == "" {
		leadName = LeadPlaceholder
	}
	label := "Call"
	if typ == TypeMeeting {
		label = "Meeting"
	}
	return label + " with " + leadName
}

// validClock reports whether s is a zero-padded 24-hour HH:mm time.
func validClock(s string) bool {
	if len(s) != len(clockLayout) || s[2] != ':' {
		return false
	}
	_, err := time.Parse(clockLayout, s)
	return err == nil
}
