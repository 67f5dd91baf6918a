package model

import "time"

type EntryType string

const (
	EntryMeeting  EntryType = "meeting"
	EntryReminder EntryType = "reminder"
	EntryDeadline EntryType = "deadline"
	EntryCall     EntryType = "call"
	EntryOther    EntryType = "other"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	switch t {
	case EntryMeeting, EntryReminder, EntryDeadline, EntryCall, EntryOther:
		return true
	}
	return false
}

// ScheduleEntry is a manually created calendar item. Time is an HH:mm
// string kept separately from Date; the clock part of Date is ignored.
type ScheduleEntry struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Date         time.Time `json:"date"`
	Time         string    `json:"time"`
	Type         EntryType `json:"type"`
	OwnerID      int64     `json:"owner_id"`
	Participants []string  `json:"participants"`
	AssignedTo   string    `json:"assigned_to"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
