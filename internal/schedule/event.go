// Package schedule merges task deadlines, manual schedule entries and CRM
// follow-ups into per-day, time-ordered calendar feeds scoped to the viewer.
package schedule

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind records which source a CalendarEvent came from.
type Kind string

const (
	KindTask   Kind = "task"
	KindManual Kind = "manual"
	KindCRM    Kind = "crm"
)

// rank orders kinds when two events share a time slot.
func (k Kind) rank() int {
	switch k {
	case KindTask:
		return 0
	case KindManual:
		return 1
	case KindCRM:
		return 2
	}
	return 3
}

// EventType is the union of task, schedule entry and follow-up types.
type EventType string

const (
	TypeTask     EventType = "task"
	TypeMeeting  EventType = "meeting"
	TypeReminder EventType = "reminder"
	TypeDeadline EventType = "deadline"
	TypeCall     EventType = "call"
	TypeOther    EventType = "other"
)

// TypeAll disables the type facet.
const TypeAll EventType = "all"

// ParseType validates a type facet value. An empty string means all types.
func ParseType(s string) (EventType, error) {
	switch t := EventType(s); t {
	case "", TypeAll:
		return TypeAll, nil
	case TypeTask, TypeMeeting, TypeReminder, TypeDeadline, TypeCall, TypeOther:
		return t, nil
	}
	return "", fmt.Errorf("unknown event type %q", s)
}

const (
	dayLayout   = "2006-01-02"
	clockLayout = "15:04"
	// DefaultTime is used for events whose source carries no time of day.
	DefaultTime = "00:00"
)

// CalendarEvent is the normalized form of a task, schedule entry or
// follow-up for one calendar day. ID is unique only within a day and Kind.
type CalendarEvent struct {
	ID          int64
	Title       string
	Description string
	Type        EventType
	Date        time.Time
	Time        string
	Kind        Kind
	Raw         any
}

// Deletable reports whether the event may be removed from the schedule.
// Only manual entries are.
func (e CalendarEvent) Deletable() bool {
	return e.Kind == KindManual
}

// Key identifies the event across sources, e.g. "manual:12".
func (e CalendarEvent) Key() string {
	return fmt.Sprintf("%s:%d", e.Kind, e.ID)
}

func (e CalendarEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          int64     `json:"id"`
		Key         string    `json:"key"`
		Title       string    `json:"title"`
		Description string    `json:"description,omitempty"`
		Type        EventType `json:"type"`
		Date        string    `json:"date"`
		Time        string    `json:"time"`
		Source      Kind      `json:"source"`
		Deletable   bool      `json:"deletable"`
		Raw         any       `json:"raw,omitempty"`
	}{
		ID:          e.ID,
		Key:         e.Key(),
		Title:       e.Title,
		Description: e.Description,
		Type:        e.Type,
		Date:        e.Date.Format(dayLayout),
		Time:        e.Time,
		Source:      e.Kind,
		Deletable:   e.Deletable(),
		Raw:         e.Raw,
	})
}
