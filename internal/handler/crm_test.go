package handler

import (
	"net/http"
	"testing"

	"github.com/dukerupert/opsdesk/internal/auth"
	"github.com/dukerupert/opsdesk/internal/model"
)

func TestCRMLeadsAndFollowUps(t *testing.T) {
	e := setup(t)
	rep := e.user(t, "rep@example.com", model.RoleSales, nil)
	ac := asUser(rep)

	rec := serve(t, e.crmH.ListLeads, &ac, call{method: "GET", target: "/api/leads"})
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("empty lead list = %q, want []", body)
	}

	rec = serve(t, e.crmH.CreateLead, &ac, call{method: "POST", target: "/api/leads", body: map[string]any{"name": "Acme Corp"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create lead status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	lead := decode[model.Lead](t, rec)
	if lead.OwnerID == nil || *lead.OwnerID != rep.ID {
		t.Errorf("lead owner = %v, want %d", lead.OwnerID, rep.ID)
	}

	rec = serve(t, e.crmH.CreateFollowUp, &ac, call{
		method: "POST", target: "/api/follow-ups",
		body: map[string]any{"lead_id": lead.ID, "scheduled_at": "2024-03-15T11:30", "type": "meeting"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create follow-up status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	f := decode[model.FollowUp](t, rec)
	if f.SalesRepID != rep.ID || f.Type != model.FollowUpMeeting {
		t.Errorf("follow-up = %+v", f)
	}

	rec = serve(t, e.crmH.ListFollowUps, &ac, call{method: "GET", target: "/api/follow-ups"})
	if got := decode[[]model.FollowUp](t, rec); len(got) != 1 {
		t.Errorf("follow-ups = %d, want 1", len(got))
	}

	last := e.hub.msgs[len(e.hub.msgs)-1]
	if last.Type != "follow_up_created" || last.Date != "2024-03-15" {
		t.Errorf("last broadcast = %+v", last)
	}
}

func TestCRMCreateFollowUpErrors(t *testing.T) {
	e := setup(t)
	rep := e.user(t, "rep@example.com", model.RoleSales, nil)
	ac := asUser(rep)
	lead, err := e.crm.CreateLead("Acme Corp", "", "", "", &rep.ID)
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"unknown lead", map[string]any{"lead_id": 404}, http.StatusNotFound},
		{"bad type", map[string]any{"lead_id": lead.ID, "type": "email"}, http.StatusBadRequest},
		{"bad time", map[string]any{"lead_id": lead.ID, "scheduled_at": "soon"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, e.crmH.CreateFollowUp, &ac, call{method: "POST", target: "/api/follow-ups", body: tt.body})
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
		})
	}

	rec := serve(t, e.crmH.CreateLead, &ac, call{method: "POST", target: "/api/leads", body: map[string]any{"name": " "}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank lead name: status = %d, want 400", rec.Code)
	}
}

func TestCRMUpdateFollowUp(t *testing.T) {
	e := setup(t)
	admin := e.user(t, "admin@example.com", model.RoleAdmin, nil)
	boss := e.user(t, "boss@example.com", model.RoleManager, nil)
	rep := e.user(t, "rep@example.com", model.RoleSales, &boss.ID)
	otherRep := e.user(t, "other@example.com", model.RoleSales, nil)

	lead, err := e.crm.CreateLead("Acme Corp", "", "", "", &rep.ID)
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}
	repAC := asUser(rep)
	rec := serve(t, e.crmH.CreateFollowUp, &repAC, call{
		method: "POST", target: "/api/follow-ups",
		body: map[string]any{"lead_id": lead.ID, "scheduled_at": "2024-03-20T10:00"},
	})
	f := decode[model.FollowUp](t, rec)

	tests := []struct {
		name string
		ac   auth.AuthContext
		id   int64
		body map[string]any
		want int
	}{
		{"owning rep", asUser(rep), f.ID, map[string]any{"status": "completed", "outcome": " signed "}, http.StatusOK},
		{"rep's manager", asUser(boss, rep.ID), f.ID, map[string]any{"status": "scheduled"}, http.StatusOK},
		{"admin", asUser(admin), f.ID, map[string]any{"status": "cancelled"}, http.StatusOK},
		{"other rep", asUser(otherRep), f.ID, map[string]any{"status": "completed"}, http.StatusForbidden},
		{"manager of another team", asUser(boss), f.ID, map[string]any{"status": "completed"}, http.StatusForbidden},
		{"bad status", asUser(rep), f.ID, map[string]any{"status": "done"}, http.StatusBadRequest},
		{"missing", asUser(admin), 404, map[string]any{"status": "completed"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, e.crmH.UpdateFollowUp, &tt.ac, call{
				method: "PATCH", target: "/api/follow-ups/" + itoa(tt.id),
				body: tt.body,
				path: map[string]string{"id": itoa(tt.id)},
			})
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	got, err := e.crm.GetFollowUp(f.ID)
	if err != nil {
		t.Fatalf("get follow-up: %v", err)
	}
	if got.Status != model.FollowUpCancelled {
		t.Errorf("final status = %q, want %q", got.Status, model.FollowUpCancelled)
	}

	var updates int
	for _, m := range e.hub.msgs {
		if m.Type == "follow_up_updated" {
			updates++
			if m.Date != "2024-03-20" {
				t.Errorf("update broadcast date = %q, want %q", m.Date, "2024-03-20")
			}
		}
	}
	if updates != 3 {
		t.Errorf("follow_up_updated broadcasts = %d, want 3", updates)
	}
}
