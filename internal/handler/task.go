package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/opsdesk/internal/auth"
	"github.com/dukerupert/opsdesk/internal/model"
	"github.com/dukerupert/opsdesk/internal/schedule"
	"github.com/dukerupert/opsdesk/internal/store"
	"github.com/dukerupert/opsdesk/internal/websocket"
)

type TaskHandler struct {
	taskStore *store.TaskStore
	userStore *store.UserStore
	loc       *time.Location
	hub       Broadcaster
	logger    *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, us *store.UserStore, loc *time.Location, hub Broadcaster, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{taskStore: ts, userStore: us, loc: loc, hub: orNop(hub), logger: logger}
}

type taskRequest struct {
	Title             string  `json:"title"`
	Description       string  `json:"description"`
	Deadline          string  `json:"deadline"`
	Priority          string  `json:"priority"`
	AssignedTo        []int64 `json:"assigned_to"`
	AssignedToManager *int64  `json:"assigned_to_manager"`
}

func validPriority(p model.TaskPriority) bool {
	switch p {
	case "", model.PriorityLow, model.PriorityMedium, model.PriorityHigh, model.PriorityUrgent:
		return true
	}
	return false
}

// List returns every task for admins and otherwise the tasks the user is
// assigned, delegated or escalated.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	tasks, err := h.taskStore.List()
	if err != nil {
		h.logger.Error("list tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}

	admin := auth.IsAdmin(r.Context())
	visible := []model.Task{}
	for _, t := range tasks {
		if admin || involved(t, ac.UserID) {
			visible = append(visible, t)
		}
	}
	writeJSON(w, http.StatusOK, visible)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	priority := model.TaskPriority(req.Priority)
	if !validPriority(priority) {
		writeError(w, http.StatusBadRequest, "invalid priority")
		return
	}
	deadline, err := parseLocalTime(req.Deadline, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	assignees := req.AssignedTo
	if len(assignees) == 0 {
		assignees = []int64{ac.UserID}
	}
	for _, id := range assignees {
		u, err := h.userStore.GetByID(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to check assignee")
			return
		}
		if u == nil {
			writeError(w, http.StatusBadRequest, "assignee not found")
			return
		}
	}

	in := store.TaskInput{
		Title:             req.Title,
		Description:       req.Description,
		Deadline:          deadline,
		Priority:          priority,
		AssignedTo:        assignees,
		AssignedToManager: req.AssignedToManager,
	}
	if len(assignees) != 1 || assignees[0] != ac.UserID {
		in.DelegatedBy = &ac.UserID
	}

	task, err := h.taskStore.Create(in)
	if err != nil {
		h.logger.Error("create task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	h.hub.Broadcast(websocket.NewMessage(websocket.EntityTask, "created", task.ID, deadlineDay(task.Deadline, h.loc)))
	writeJSON(w, http.StatusCreated, task)
}

// Delete is allowed for admins, for the user who delegated the task and
// for the assignee of a task nobody delegated.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	task, err := h.taskStore.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	delegator := task.DelegatedBy != nil && *task.DelegatedBy == ac.UserID
	selfCreated := task.DelegatedBy == nil && task.IsAssignedTo(ac.UserID)
	if !delegator && !selfCreated && !auth.IsAdmin(r.Context()) {
		writeError(w, http.StatusForbidden, "only the delegator or an admin can delete this task")
		return
	}

	if err := h.taskStore.Delete(id); err != nil {
		h.logger.Error("delete task", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}

	h.hub.Broadcast(websocket.NewMessage(websocket.EntityTask, "deleted", id, deadlineDay(task.Deadline, h.loc)))
	w.WriteHeader(http.StatusNoContent)
}

// involved reports whether userID is assigned, delegated or escalated t.
func involved(t model.Task, userID int64) bool {
	return t.IsAssignedTo(userID) ||
		(t.DelegatedBy != nil && *t.DelegatedBy == userID) ||
		(t.AssignedToManager != nil && *t.AssignedToManager == userID)
}

func validStatus(s model.TaskStatus) bool {
	switch s {
	case model.TaskTodo, model.TaskInProgress, model.TaskDone, model.TaskCancelled:
		return true
	}
	return false
}

// UpdateStatus moves a task along the board. Anyone who can list the task
// can change its status.
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	status := model.TaskStatus(req.Status)
	if !validStatus(status) {
		writeError(w, http.StatusBadRequest, "status must be todo, in_progress, done or cancelled")
		return
	}

	task, err := h.taskStore.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if !auth.IsAdmin(r.Context()) && !involved(*task, ac.UserID) {
		writeError(w, http.StatusForbidden, "not your task")
		return
	}

	updated, err := h.taskStore.UpdateStatus(id, status)
	if err != nil {
		h.logger.Error("update task status", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	h.hub.Broadcast(websocket.NewMessage(websocket.EntityTask, "updated", id, deadlineDay(updated.Deadline, h.loc)))
	writeJSON(w, http.StatusOK, updated)
}

func deadlineDay(t *time.Time, loc *time.Location) time.Time {
	if t == nil {
		return time.Time{}
	}
	return schedule.StartOfDay(*t, loc)
}
