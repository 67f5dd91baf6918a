package schedule

import (
	"context"
	"time"

	"github.com/dukerupert/opsdesk/internal/model"
)

// TaskSource lists tasks by deadline. keep is the caller's scoping predicate.
type TaskSource interface {
	ListTasksByDeadlineRange(ctx context.Context, start, end time.Time, keep func(model.Task) bool) ([]model.Task, error)
}

// EntrySource lists manual schedule entries by date.
type EntrySource interface {
	ListEntriesByDateRange(ctx context.Context, start, end time.Time, keep func(model.ScheduleEntry) bool) ([]model.ScheduleEntry, error)
}

// FollowUpSource lists CRM follow-ups by scheduled time.
type FollowUpSource interface {
	ListFollowUpsByDateRange(ctx context.Context, start, end time.Time, keep func(model.FollowUp) bool) ([]model.FollowUp, error)
}

// LeadResolver looks up a lead's display name. ok is false when the lead
// does not exist.
type LeadResolver interface {
	ResolveLeadName(ctx context.Context, leadID int64) (name string, ok bool, err error)
}

// EntryWriter is the write side of the schedule store, used only by the
// Gateway.
type EntryWriter interface {
	InsertEntry(ctx context.Context, e model.ScheduleEntry) (int64, error)
	DeleteEntry(ctx context.Context, id int64) error
}

// Adapter reads one source for whole calendar days in a fixed location.
type Adapter[R any] struct {
	list func(ctx context.Context, start, end time.Time, keep func(R) bool) ([]R, error)
	loc  *time.Location
}

func NewTaskAdapter(src TaskSource, loc *time.Location) Adapter[model.Task] {
	return Adapter[model.Task]{list: src.ListTasksByDeadlineRange, loc: loc}
}

func NewEntryAdapter(src EntrySource, loc *time.Location) Adapter[model.ScheduleEntry] {
	return Adapter[model.ScheduleEntry]{list: src.ListEntriesByDateRange, loc: loc}
}

func NewFollowUpAdapter(src FollowUpSource, loc *time.Location) Adapter[model.FollowUp] {
	return Adapter[model.FollowUp]{list: src.ListFollowUpsByDateRange, loc: loc}
}

// FetchDay returns the records of a single calendar day.
func (a Adapter[R]) FetchDay(ctx context.Context, day time.Time, keep func(R) bool) ([]R, error) {
	d := StartOfDay(day, a.loc)
	return a.FetchRange(ctx, DateRange{First: d, Last: d}, keep)
}

// FetchRange returns the records of every day in r.
func (a Adapter[R]) FetchRange(ctx context.Context, r DateRange, keep func(R) bool) ([]R, error) {
	if a.list == nil {
		return nil, nil
	}
	return a.list(ctx, r.First, r.End(), keep)
}
