package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/opsdesk/internal/auth"
	"github.com/dukerupert/opsdesk/internal/metrics"
	"github.com/dukerupert/opsdesk/internal/model"
	"github.com/dukerupert/opsdesk/internal/schedule"
	"github.com/dukerupert/opsdesk/internal/store"
	"github.com/dukerupert/opsdesk/internal/websocket"
)

type ScheduleHandler struct {
	engine     *schedule.Engine
	gateway    *schedule.Gateway
	entryStore *store.ScheduleStore
	hub        Broadcaster
	logger     *slog.Logger
}

func NewScheduleHandler(engine *schedule.Engine, gateway *schedule.Gateway, es *store.ScheduleStore, hub Broadcaster, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		engine:     engine,
		gateway:    gateway,
		entryStore: es,
		hub:        orNop(hub),
		logger:     logger,
	}
}

// filters reads the type and member facets from the query string.
func filters(r *http.Request) (schedule.FilterSet, error) {
	var f schedule.FilterSet
	typ, err := schedule.ParseType(r.URL.Query().Get("type"))
	if err != nil {
		return f, err
	}
	f.Type = typ

	if m := r.URL.Query().Get("member"); m != "" {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil || id <= 0 {
			return f, errors.New("invalid member")
		}
		f.MemberID = id
	}
	return f, nil
}

// writeBuildError maps read-path errors to responses.
func (h *ScheduleHandler) writeBuildError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrMemberNotInTeam):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, schedule.ErrUnknownRole):
		writeError(w, http.StatusForbidden, "no schedule for this role")
	default:
		h.logger.Error("build schedule", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build schedule")
	}
}

func (h *ScheduleHandler) recordDegraded(r *http.Request, degraded []*schedule.SourceError) {
	for _, d := range degraded {
		metrics.RecordSourceFailure(r.Context(), string(d.Kind))
	}
}

func (h *ScheduleHandler) Month(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.Scope(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	anchor := h.engine.Now()
	if m := r.URL.Query().Get("month"); m != "" {
		t, err := time.ParseInLocation("2006-01", m, h.engine.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		anchor = t
	}
	f, err := filters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	grid, err := h.engine.MonthGrid(r.Context(), anchor, scope, f)
	if err != nil {
		h.writeBuildError(w, err)
		return
	}
	metrics.RecordBuild(r.Context(), "month", time.Since(start))
	h.recordDegraded(r, grid.Degraded)

	writeJSON(w, http.StatusOK, grid)
}

func (h *ScheduleHandler) Day(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.Scope(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	day, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("date"), h.engine.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	f, err := filters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	detail, err := h.engine.DayDetail(r.Context(), day, scope, f)
	if err != nil {
		h.writeBuildError(w, err)
		return
	}
	metrics.RecordBuild(r.Context(), "day", time.Since(start))
	h.recordDegraded(r, detail.Degraded)

	writeJSON(w, http.StatusOK, detail)
}

type createEventRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Date         string   `json:"date"`
	Time         string   `json:"time"`
	Type         string   `json:"type"`
	Participants []string `json:"participants"`
	AssignedTo   string   `json:"assigned_to"`
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.Scope(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.RecordMutation(r.Context(), "create", "invalid")
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	in := schedule.ManualEventInput{
		Title:        req.Title,
		Description:  req.Description,
		Time:         req.Time,
		Type:         model.EntryType(req.Type),
		Participants: req.Participants,
		AssignedTo:   req.AssignedTo,
	}
	if req.Date != "" {
		d, err := time.ParseInLocation("2006-01-02", req.Date, h.engine.Location())
		if err != nil {
			metrics.RecordMutation(r.Context(), "create", "invalid")
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD", "field": "date"})
			return
		}
		in.Date = d
	}

	ev, err := h.gateway.CreateManualEvent(r.Context(), scope, in)
	var verr *schedule.ValidationError
	switch {
	case errors.As(err, &verr):
		metrics.RecordMutation(r.Context(), "create", "invalid")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Message, "field": verr.Field})
		return
	case err != nil:
		metrics.RecordMutation(r.Context(), "create", "error")
		h.logger.Error("create schedule entry", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	metrics.RecordMutation(r.Context(), "create", "ok")
	h.hub.Broadcast(websocket.NewMessage(websocket.EntityScheduleEntry, "created", ev.ID, ev.Date))
	writeJSON(w, http.StatusCreated, ev)
}

// Delete removes a calendar event by source and id. Only manual entries can
// be deleted, and only by admins, their owner or someone whose calendar
// shows them; task and crm events get 403 with the owning module named.
func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.Scope(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	ev := schedule.CalendarEvent{ID: id, Kind: schedule.Kind(r.PathValue("kind"))}
	switch ev.Kind {
	case schedule.KindManual:
		entry, err := h.entryStore.GetByID(id)
		if err != nil {
			metrics.RecordMutation(r.Context(), "delete", "error")
			h.logger.Error("get schedule entry", "error", err, "id", id)
			writeError(w, http.StatusInternalServerError, "failed to get event")
			return
		}
		if entry == nil {
			metrics.RecordMutation(r.Context(), "delete", "not_found")
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		visible, err := h.engine.EntryVisible(r.Context(), scope, *entry)
		if err != nil {
			if errors.Is(err, schedule.ErrUnknownRole) {
				metrics.RecordMutation(r.Context(), "delete", "forbidden")
				writeError(w, http.StatusForbidden, "no schedule for this role")
				return
			}
			metrics.RecordMutation(r.Context(), "delete", "error")
			h.logger.Error("check schedule entry visibility", "error", err, "id", id)
			writeError(w, http.StatusInternalServerError, "failed to check event")
			return
		}
		if !visible {
			metrics.RecordMutation(r.Context(), "delete", "forbidden")
			writeJSON(w, http.StatusForbidden, map[string]string{
				"error":  "only the owner, an admin or someone sharing this calendar can delete this event",
				"source": string(schedule.KindManual),
			})
			return
		}
		ev.Date = schedule.StartOfDay(entry.Date, h.engine.Location())
	case schedule.KindTask, schedule.KindCRM:
	default:
		writeError(w, http.StatusNotFound, "unknown event source")
		return
	}

	err = h.gateway.DeleteEvent(r.Context(), ev)
	var perr *schedule.PolicyError
	switch {
	case errors.As(err, &perr):
		metrics.RecordMutation(r.Context(), "delete", "forbidden")
		writeJSON(w, http.StatusForbidden, map[string]string{"error": perr.Message, "source": string(perr.Kind)})
		return
	case err != nil:
		metrics.RecordMutation(r.Context(), "delete", "error")
		h.logger.Error("delete schedule entry", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}

	metrics.RecordMutation(r.Context(), "delete", "ok")
	h.hub.Broadcast(websocket.NewMessage(websocket.EntityScheduleEntry, "deleted", id, ev.Date))
	w.WriteHeader(http.StatusNoContent)
}
