package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/opsdesk/internal/model"
)

func TestLeadCreateAndResolveName(t *testing.T) {
	db := setupTestDB(t)
	rep := mustCreateUser(t, NewUserStore(db), "rep@example.com", model.RoleSales, nil)
	cs := NewCRMStore(db)

	lead, err := cs.CreateLead("Acme Corp", "Acme", "buyer@acme.test", "", &rep.ID)
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}
	if lead.Status != model.LeadNew {
		t.Errorf("status = %q, want %q", lead.Status, model.LeadNew)
	}

	name, ok, err := cs.ResolveLeadName(context.Background(), lead.ID)
	if err != nil || !ok || name != "Acme Corp" {
		t.Errorf("ResolveLeadName = %q, %v, %v; want Acme Corp, true, nil", name, ok, err)
	}

	name, ok, err = cs.ResolveLeadName(context.Background(), lead.ID+1)
	if err != nil || ok || name != "" {
		t.Errorf("ResolveLeadName(missing) = %q, %v, %v; want \"\", false, nil", name, ok, err)
	}
}

func TestFollowUpsByDateRange(t *testing.T) {
	db := setupTestDB(t)
	us, cs := NewUserStore(db), NewCRMStore(db)
	a := mustCreateUser(t, us, "a@example.com", model.RoleSales, nil)
	b := mustCreateUser(t, us, "b@example.com", model.RoleSales, nil)
	lead, err := cs.CreateLead("Acme Corp", "", "", "", nil)
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}
	ctx := context.Background()
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	slot := func(h int) *time.Time { v := day.Add(time.Duration(h) * time.Hour); return &v }

	mk := func(rep int64, at *time.Time, typ model.FollowUpType) {
		if _, err := cs.CreateFollowUp(lead.ID, rep, at, typ, ""); err != nil {
			t.Fatalf("create follow-up: %v", err)
		}
	}
	mk(a.ID, slot(11), model.FollowUpCall)
	mk(b.ID, slot(9), model.FollowUpMeeting)
	mk(a.ID, slot(30), model.FollowUpCall)
	mk(a.ID, nil, "")

	all, err := cs.ListFollowUpsByDateRange(ctx, day, day.AddDate(0, 0, 1), nil)
	if err != nil {
		t.Fatalf("list range: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2", len(all))
	}
	if all[0].SalesRepID != b.ID || all[0].Type != model.FollowUpMeeting {
		t.Errorf("first follow-up = %+v, want b's 09:00 meeting", all[0])
	}

	mine, err := cs.ListFollowUpsByDateRange(ctx, day, day.AddDate(0, 0, 1), func(f model.FollowUp) bool {
		return f.SalesRepID == a.ID
	})
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(mine) != 1 || mine[0].ScheduledAt == nil || mine[0].ScheduledAt.Hour() != 11 {
		t.Errorf("mine = %+v, want a's 11:00 call", mine)
	}

	forRep, err := cs.ListFollowUpsForRep(a.ID)
	if err != nil {
		t.Fatalf("list for rep: %v", err)
	}
	if len(forRep) != 3 {
		t.Errorf("len(forRep) = %d, want 3", len(forRep))
	}
}

func TestFollowUpUpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	rep := mustCreateUser(t, NewUserStore(db), "rep@example.com", model.RoleSales, nil)
	cs := NewCRMStore(db)
	lead, _ := cs.CreateLead("Acme Corp", "", "", "", nil)

	f, err := cs.CreateFollowUp(lead.ID, rep.ID, nil, model.FollowUpCall, "intro")
	if err != nil {
		t.Fatalf("create follow-up: %v", err)
	}
	if f.Status != model.FollowUpScheduled {
		t.Errorf("status = %q, want %q", f.Status, model.FollowUpScheduled)
	}

	done, err := cs.UpdateFollowUpStatus(f.ID, model.FollowUpCompleted, "signed")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if done.Status != model.FollowUpCompleted || done.Outcome != "signed" {
		t.Errorf("status/outcome = %s/%s, want completed/signed", done.Status, done.Outcome)
	}
}
