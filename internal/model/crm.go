package model

import "time"

type LeadStatus string

const (
	LeadNew       LeadStatus = "new"
	LeadContacted LeadStatus = "contacted"
	LeadQualified LeadStatus = "qualified"
	LeadWon       LeadStatus = "won"
	LeadLost      LeadStatus = "lost"
)

type Lead struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Company   string     `json:"company"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Status    LeadStatus `json:"status"`
	OwnerID   *int64     `json:"owner_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type FollowUpType string

const (
	FollowUpCall    FollowUpType = "call"
	FollowUpMeeting FollowUpType = "meeting"
)

type FollowUpStatus string

const (
	FollowUpScheduled FollowUpStatus = "scheduled"
	FollowUpCompleted FollowUpStatus = "completed"
	FollowUpCancelled FollowUpStatus = "cancelled"
)

// FollowUp is a CRM appointment with a lead. ScheduledAt may be nil for
// follow-ups that were logged without a slot.
type FollowUp struct {
	ID          int64          `json:"id"`
	LeadID      int64          `json:"lead_id"`
	SalesRepID  int64          `json:"sales_rep_id"`
	ScheduledAt *time.Time     `json:"scheduled_at"`
	Type        FollowUpType   `json:"type"`
	Notes       string         `json:"notes"`
	Outcome     string         `json:"outcome"`
	Status      FollowUpStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
