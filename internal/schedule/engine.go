package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/opsdesk/internal/model"
)

// Config tunes an Engine. Zero values fall back to UTC, Sunday week starts,
// DefaultMaxVisible and DefaultViews(ManualShared).
type Config struct {
	Location   *time.Location
	WeekStart  time.Weekday
	MaxVisible int
	// StrictLeadNames reports unresolved lead names as a degraded CRM
	// source. Events still render with LeadPlaceholder.
	StrictLeadNames bool
	Views           map[model.Role]ViewFunc
	Now             func() time.Time
}

// Engine builds scoped calendar feeds from the three sources. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	tasks     Adapter[model.Task]
	entries   Adapter[model.ScheduleEntry]
	followUps Adapter[model.FollowUp]
	leads     LeadResolver
	cfg       Config
	logger    *slog.Logger
}

func NewEngine(tasks TaskSource, entries EntrySource, followUps FollowUpSource, leads LeadResolver, cfg Config, logger *slog.Logger) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxVisible <= 0 {
		cfg.MaxVisible = DefaultMaxVisible
	}
	if cfg.Views == nil {
		cfg.Views = DefaultViews(ManualShared)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{leads: leads, cfg: cfg, logger: logger}
	if tasks != nil {
		e.tasks = NewTaskAdapter(tasks, cfg.Location)
	}
	if entries != nil {
		e.entries = NewEntryAdapter(entries, cfg.Location)
	}
	if followUps != nil {
		e.followUps = NewFollowUpAdapter(followUps, cfg.Location)
	}
	return e
}

// Location is the zone calendar days are cut in.
func (e *Engine) Location() *time.Location {
	return e.cfg.Location
}

// Now is the engine's clock in its location. Default anchors and the grid's
// today flag both come from it.
func (e *Engine) Now() time.Time {
	return e.cfg.Now().In(e.cfg.Location)
}

// EntryVisible reports whether entry belongs to the actor's own calendar.
// Admins and the entry's owner always qualify; anyone else must find it in
// their scoped feed for the entry's day.
func (e *Engine) EntryVisible(ctx context.Context, scope Scope, entry model.ScheduleEntry) (bool, error) {
	if scope.Role == model.RoleAdmin || entry.OwnerID == scope.ActorID {
		return true, nil
	}
	view, err := e.view(scope, FilterSet{})
	if err != nil {
		return false, err
	}
	if view.Entries == nil {
		return false, nil
	}
	entries, err := e.entries.FetchDay(ctx, entry.Date, view.Entries)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	for _, en := range entries {
		if en.ID == entry.ID {
			return true, nil
		}
	}
	return false, nil
}

// RangeResult is the bucketed, filtered and sorted feed for a date range.
type RangeResult struct {
	Range    DateRange
	Buckets  map[string][]CalendarEvent
	Degraded []*SourceError
}

// Events returns the full sorted list for day.
func (r *RangeResult) Events(day time.Time) []CalendarEvent {
	return r.Buckets[DayKey(day)]
}

func (e *Engine) view(scope Scope, filters FilterSet) (View, error) {
	scope, drilled, err := narrowScope(scope, filters)
	if err != nil {
		return View{}, err
	}
	if drilled {
		return PersonalView(scope), nil
	}
	fn, ok := e.cfg.Views[scope.Role]
	if !ok {
		return View{}, fmt.Errorf("%w %q", ErrUnknownRole, scope.Role)
	}
	return fn(scope), nil
}

// BuildRange produces one sorted bucket per day of r. A failing source is
// recorded once in Degraded and the other sources still contribute.
func (e *Engine) BuildRange(ctx context.Context, r DateRange, scope Scope, filters FilterSet) (*RangeResult, error) {
	view, err := e.view(scope, filters)
	if err != nil {
		return nil, err
	}

	var (
		tasks     []model.Task
		entries   []model.ScheduleEntry
		followUps []model.FollowUp
		errs      [3]error
	)

	// Sources fail independently: errors are kept per source, never returned
	// to the group.
	var g errgroup.Group
	if view.Tasks != nil {
		g.Go(func() error {
			tasks, errs[0] = e.tasks.FetchRange(ctx, r, view.Tasks)
			return nil
		})
	}
	if view.Entries != nil {
		g.Go(func() error {
			entries, errs[1] = e.entries.FetchRange(ctx, r, view.Entries)
			return nil
		})
	}
	if view.FollowUps != nil {
		g.Go(func() error {
			followUps, errs[2] = e.followUps.FetchRange(ctx, r, view.FollowUps)
			return nil
		})
	}
	_ = g.Wait()

	res := &RangeResult{Range: r}
	for i, kind := range []Kind{KindTask, KindManual, KindCRM} {
		if errs[i] != nil {
			res.Degraded = append(res.Degraded, &SourceError{
				Kind: kind,
				Err:  fmt.Errorf("%w: %w", ErrSourceUnavailable, errs[i]),
			})
		}
	}

	events := make([]CalendarEvent, 0, len(tasks)+len(entries)+len(followUps))
	for _, t := range tasks {
		if ev, ok := NormalizeTask(t, e.cfg.Location); ok {
			events = append(events, ev)
		}
	}
	for _, en := range entries {
		if ev, ok := NormalizeEntry(en, e.cfg.Location); ok {
			events = append(events, ev)
		}
	}

	names, leadErr := e.resolveLeads(ctx, followUps)
	if leadErr != nil {
		res.Degraded = append(res.Degraded, &SourceError{Kind: KindCRM, Err: leadErr})
	}
	for _, f := range followUps {
		if ev, ok := NormalizeFollowUp(f, names[f.LeadID], e.cfg.Location); ok {
			events = append(events, ev)
		}
	}

	res.Buckets = bucket(r, Apply(events, filters))

	for _, d := range res.Degraded {
		e.logger.Warn("schedule source degraded",
			"source", d.Kind,
			"first", DayKey(r.First),
			"last", DayKey(r.Last),
			"error", d.Err,
		)
	}
	return res, nil
}

// resolveLeads looks up each distinct lead once per build. Lookup failures
// leave the name empty so the placeholder is used.
func (e *Engine) resolveLeads(ctx context.Context, followUps []model.FollowUp) (map[int64]string, error) {
	names := make(map[int64]string)
	if e.leads == nil || len(followUps) == 0 {
		return names, nil
	}

	var missing []int64
	var lookupErr error
	seen := make(map[int64]bool)
	for _, f := range followUps {
		if seen[f.LeadID] {
			continue
		}
		seen[f.LeadID] = true

		name, ok, err := e.leads.ResolveLeadName(ctx, f.LeadID)
		switch {
		case err != nil:
			if lookupErr == nil {
				lookupErr = fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
			}
		case !ok || name == "":
			missing = append(missing, f.LeadID)
		default:
			names[f.LeadID] = name
		}
	}

	if lookupErr != nil {
		return names, lookupErr
	}
	if len(missing) > 0 {
		e.logger.Debug("unresolved lead names", "lead_ids", missing)
		if e.cfg.StrictLeadNames {
			return names, fmt.Errorf("%w: %v", ErrLeadNotFound, missing)
		}
	}
	return names, nil
}

// GridDay is one cell of a month grid.
type GridDay struct {
	Date    time.Time
	InMonth bool
	Today   bool
	Reduced
}

func (d GridDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date          string          `json:"date"`
		InMonth       bool            `json:"in_month"`
		Today         bool            `json:"today"`
		Visible       []CalendarEvent `json:"visible"`
		OverflowCount int             `json:"overflow_count"`
	}{
		Date:          DayKey(d.Date),
		InMonth:       d.InMonth,
		Today:         d.Today,
		Visible:       d.Visible,
		OverflowCount: d.OverflowCount,
	})
}

// MonthGrid is the whole-week grid for one month. The full, unreduced day
// lists stay available through Events.
type MonthGrid struct {
	Month    time.Time
	Range    DateRange
	Days     []GridDay
	Degraded []*SourceError
	result   *RangeResult
}

// Events returns the full sorted list for day.
func (g *MonthGrid) Events(day time.Time) []CalendarEvent {
	if g.result == nil {
		return nil
	}
	return g.result.Events(day)
}

// Weeks splits Days into rows of seven.
func (g *MonthGrid) Weeks() [][]GridDay {
	var weeks [][]GridDay
	for i := 0; i+7 <= len(g.Days); i += 7 {
		weeks = append(weeks, g.Days[i:i+7])
	}
	return weeks
}

func (g *MonthGrid) MarshalJSON() ([]byte, error) {
	degraded := g.Degraded
	if degraded == nil {
		degraded = []*SourceError{}
	}
	return json.Marshal(struct {
		Month    string         `json:"month"`
		First    string         `json:"first"`
		Last     string         `json:"last"`
		Weeks    [][]GridDay    `json:"weeks"`
		Degraded []*SourceError `json:"degraded"`
	}{
		Month:    g.Month.Format("2006-01"),
		First:    DayKey(g.Range.First),
		Last:     DayKey(g.Range.Last),
		Weeks:    g.Weeks(),
		Degraded: degraded,
	})
}

// MonthGrid builds the grid for the month containing anchor.
func (e *Engine) MonthGrid(ctx context.Context, anchor time.Time, scope Scope, filters FilterSet) (*MonthGrid, error) {
	r := MonthRange(anchor, e.cfg.Location, e.cfg.WeekStart)
	res, err := e.BuildRange(ctx, r, scope, filters)
	if err != nil {
		return nil, err
	}

	day := StartOfDay(anchor, e.cfg.Location)
	month := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, e.cfg.Location)
	today := StartOfDay(e.Now(), e.cfg.Location)

	grid := &MonthGrid{
		Month:    month,
		Range:    r,
		Degraded: res.Degraded,
		result:   res,
	}
	for _, d := range r.Days() {
		grid.Days = append(grid.Days, GridDay{
			Date:    d,
			InMonth: d.Month() == month.Month() && d.Year() == month.Year(),
			Today:   d.Equal(today),
			Reduced: ReduceForGrid(res.Events(d), e.cfg.MaxVisible),
		})
	}
	return grid, nil
}

// DayDetail is the unreduced list for one day.
type DayDetail struct {
	Date     time.Time
	Events   []CalendarEvent
	Degraded []*SourceError
}

func (d *DayDetail) MarshalJSON() ([]byte, error) {
	degraded := d.Degraded
	if degraded == nil {
		degraded = []*SourceError{}
	}
	return json.Marshal(struct {
		Date     string          `json:"date"`
		Events   []CalendarEvent `json:"events"`
		Degraded []*SourceError  `json:"degraded"`
	}{
		Date:     DayKey(d.Date),
		Events:   d.Events,
		Degraded: degraded,
	})
}

// DayDetail builds the full event list for a single day.
func (e *Engine) DayDetail(ctx context.Context, day time.Time, scope Scope, filters FilterSet) (*DayDetail, error) {
	d := StartOfDay(day, e.cfg.Location)
	res, err := e.BuildRange(ctx, DateRange{First: d, Last: d}, scope, filters)
	if err != nil {
		return nil, err
	}
	return &DayDetail{Date: d, Events: res.Events(d), Degraded: res.Degraded}, nil
}
