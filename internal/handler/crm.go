package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dukerupert/opsdesk/internal/auth"
	"github.com/dukerupert/opsdesk/internal/model"
	"github.com/dukerupert/opsdesk/internal/store"
	"github.com/dukerupert/opsdesk/internal/websocket"
)

type CRMHandler struct {
	crmStore *store.CRMStore
	loc      *time.Location
	hub      Broadcaster
	logger   *slog.Logger
}

func NewCRMHandler(cs *store.CRMStore, loc *time.Location, hub Broadcaster, logger *slog.Logger) *CRMHandler {
	return &CRMHandler{crmStore: cs, loc: loc, hub: orNop(hub), logger: logger}
}

func (h *CRMHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := h.crmStore.ListLeads()
	if err != nil {
		h.logger.Error("list leads", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}
	if leads == nil {
		leads = []model.Lead{}
	}
	writeJSON(w, http.StatusOK, leads)
}

func (h *CRMHandler) CreateLead(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req struct {
		Name    string `json:"name"`
		Company string `json:"company"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	lead, err := h.crmStore.CreateLead(req.Name, req.Company, req.Email, req.Phone, &ac.UserID)
	if err != nil {
		h.logger.Error("create lead", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create lead")
		return
	}

	h.hub.Broadcast(websocket.NewMessage(websocket.EntityLead, "created", lead.ID, time.Time{}))
	writeJSON(w, http.StatusCreated, lead)
}

// ListFollowUps returns the caller's own follow-ups.
func (h *CRMHandler) ListFollowUps(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	followUps, err := h.crmStore.ListFollowUpsForRep(ac.UserID)
	if err != nil {
		h.logger.Error("list follow-ups", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list follow-ups")
		return
	}
	if followUps == nil {
		followUps = []model.FollowUp{}
	}
	writeJSON(w, http.StatusOK, followUps)
}

func (h *CRMHandler) CreateFollowUp(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req struct {
		LeadID      int64  `json:"lead_id"`
		ScheduledAt string `json:"scheduled_at"`
		Type        string `json:"type"`
		Notes       string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	typ := model.FollowUpType(req.Type)
	if typ != "" && typ != model.FollowUpCall && typ != model.FollowUpMeeting {
		writeError(w, http.StatusBadRequest, "type must be call or meeting")
		return
	}
	scheduledAt, err := parseLocalTime(req.ScheduledAt, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	lead, err := h.crmStore.GetLead(req.LeadID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get lead")
		return
	}
	if lead == nil {
		writeError(w, http.StatusNotFound, "lead not found")
		return
	}

	f, err := h.crmStore.CreateFollowUp(lead.ID, ac.UserID, scheduledAt, typ, req.Notes)
	if err != nil {
		h.logger.Error("create follow-up", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create follow-up")
		return
	}

	h.hub.Broadcast(websocket.NewMessage(websocket.EntityFollowUp, "created", f.ID, deadlineDay(f.ScheduledAt, h.loc)))
	writeJSON(w, http.StatusCreated, f)
}

// UpdateFollowUp records the status and outcome of a follow-up. Admins, the
// owning rep and the rep's manager may update it.
func (h *CRMHandler) UpdateFollowUp(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		Status  string `json:"status"`
		Outcome string `json:"outcome"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	status := model.FollowUpStatus(req.Status)
	switch status {
	case model.FollowUpScheduled, model.FollowUpCompleted, model.FollowUpCancelled:
	default:
		writeError(w, http.StatusBadRequest, "status must be scheduled, completed or cancelled")
		return
	}

	f, err := h.crmStore.GetFollowUp(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get follow-up")
		return
	}
	if f == nil {
		writeError(w, http.StatusNotFound, "follow-up not found")
		return
	}
	if !auth.IsAdmin(r.Context()) && f.SalesRepID != ac.UserID && !slices.Contains(ac.TeamIDs, f.SalesRepID) {
		writeError(w, http.StatusForbidden, "not your follow-up")
		return
	}

	updated, err := h.crmStore.UpdateFollowUpStatus(id, status, strings.TrimSpace(req.Outcome))
	if err != nil {
		h.logger.Error("update follow-up", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to update follow-up")
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "follow-up not found")
		return
	}

	h.hub.Broadcast(websocket.NewMessage(websocket.EntityFollowUp, "updated", id, deadlineDay(updated.ScheduledAt, h.loc)))
	writeJSON(w, http.StatusOK, updated)
}
