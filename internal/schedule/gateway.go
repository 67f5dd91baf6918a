package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/opsdesk/internal/model"
)

// Defaults applied to manual entries created without a time or type.
const (
	DefaultEntryTime = "09:00"
	DefaultEntryType = model.EntryMeeting
)

// ManualEventInput is a request to create a manual schedule entry.
type ManualEventInput struct {
	Title        string
	Description  string
	Date         time.Time
	Time         string
	Type         model.EntryType
	Participants []string
	AssignedTo   string
}

// Gateway is the only write path into the sources. Only manual entries can
// be created or deleted through it.
type Gateway struct {
	entries EntryWriter
	loc     *time.Location
	logger  *slog.Logger
}

func NewGateway(entries EntryWriter, loc *time.Location, logger *slog.Logger) *Gateway {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{entries: entries, loc: loc, logger: logger}
}

func (in *ManualEventInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if in.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "date is required"}
	}

	in.Time = strings.TrimSpace(in.Time)
	if in.Time == "" {
		in.Time = DefaultEntryTime
	}
	if !validClock(in.Time) {
		return &ValidationError{Field: "time", Message: "time must be HH:mm (24-hour)"}
	}

	if in.Type == "" {
		in.Type = DefaultEntryType
	}
	if !in.Type.Valid() {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("unknown type %q", in.Type)}
	}
	return nil
}

// CreateManualEvent validates in, stores it as an entry owned by the scope's
// actor and returns its calendar event. Nothing is written when validation
// fails.
func (g *Gateway) CreateManualEvent(ctx context.Context, scope Scope, in ManualEventInput) (CalendarEvent, error) {
	if err := in.validate(); err != nil {
		return CalendarEvent{}, err
	}

	entry := model.ScheduleEntry{
		Title:        in.Title,
		Description:  in.Description,
		Date:         StartOfDay(in.Date, g.loc),
		Time:         in.Time,
		Type:         in.Type,
		OwnerID:      scope.ActorID,
		Participants: in.Participants,
		AssignedTo:   in.AssignedTo,
	}
	id, err := g.entries.InsertEntry(ctx, entry)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("create manual event: %w", err)
	}
	entry.ID = id

	ev, _ := NormalizeEntry(entry, g.loc)
	g.logger.Info("manual event created", "id", id, "owner_id", scope.ActorID, "date", DayKey(ev.Date))
	return ev, nil
}

// DeleteEvent removes a manual entry. Task and CRM events are rejected with
// a PolicyError before any store is touched.
func (g *Gateway) DeleteEvent(ctx context.Context, ev CalendarEvent) error {
	switch ev.Kind {
	case KindManual:
		if err := g.entries.DeleteEntry(ctx, ev.ID); err != nil {
			return fmt.Errorf("delete manual event: %w", err)
		}
		g.logger.Info("manual event deleted", "id", ev.ID)
		return nil
	case KindTask:
		return &PolicyError{Kind: ev.Kind, Message: "cannot delete a task from the schedule view; manage it on the task board"}
	case KindCRM:
		return &PolicyError{Kind: ev.Kind, Message: "cannot delete a follow-up from the schedule view; manage it in the CRM module"}
	}
	return &PolicyError{Kind: ev.Kind, Message: fmt.Sprintf("unknown event source %q", ev.Kind)}
}
