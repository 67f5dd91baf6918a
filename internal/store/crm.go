package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/opsdesk/internal/model"
)

type CRMStore struct {
	db *sql.DB
}

func NewCRMStore(db *sql.DB) *CRMStore {
	return &CRMStore{db: db}
}

// --- Lead methods ---

const leadCols = `id, name, company, email, phone, status, owner_id, created_at, updated_at`

func scanLead(scanner interface{ Scan(...any) error }) (*model.Lead, error) {
	var l model.Lead
	var ownerID sql.NullInt64
	err := scanner.Scan(&l.ID, &l.Name, &l.Company, &l.Email, &l.Phone, &l.Status, &ownerID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if ownerID.Valid {
		l.OwnerID = &ownerID.Int64
	}
	return &l, nil
}

func (s *CRMStore) CreateLead(name, company, email, phone string, ownerID *int64) (*model.Lead, error) {
	result, err := s.db.Exec(
		`INSERT INTO leads (name, company, email, phone, owner_id) VALUES (?, ?, ?, ?, ?)`,
		name, company, email, phone, nullInt64(ownerID),
	)
	if err != nil {
		return nil, fmt.Errorf("insert lead: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetLead(id)
}

func (s *CRMStore) GetLead(id int64) (*model.Lead, error) {
	row := s.db.QueryRow(`SELECT `+leadCols+` FROM leads WHERE id = ?`, id)
	l, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

func (s *CRMStore) ListLeads() ([]model.Lead, error) {
	rows, err := s.db.Query(`SELECT ` + leadCols + ` FROM leads ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, *l)
	}
	return leads, rows.Err()
}

// ResolveLeadName returns the lead's display name. ok is false when the lead
// does not exist.
func (s *CRMStore) ResolveLeadName(ctx context.Context, leadID int64) (name string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT name FROM leads WHERE id = ?`, leadID).Scan(&name)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolve lead name: %w", err)
	}
	return name, true, nil
}

// --- Follow-up methods ---

const followUpCols = `id, lead_id, sales_rep_id, scheduled_at, type, notes, outcome, status, created_at, updated_at`

func scanFollowUp(scanner interface{ Scan(...any) error }) (*model.FollowUp, error) {
	var f model.FollowUp
	var scheduledAt sql.NullTime
	err := scanner.Scan(
		&f.ID, &f.LeadID, &f.SalesRepID, &scheduledAt, &f.Type,
		&f.Notes, &f.Outcome, &f.Status, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if scheduledAt.Valid {
		t := scheduledAt.Time
		f.ScheduledAt = &t
	}
	return &f, nil
}

func (s *CRMStore) CreateFollowUp(leadID, salesRepID int64, scheduledAt *time.Time, typ model.FollowUpType, notes string) (*model.FollowUp, error) {
	if typ == "" {
		typ = model.FollowUpCall
	}
	result, err := s.db.Exec(
		`INSERT INTO follow_ups (lead_id, sales_rep_id, scheduled_at, type, notes) VALUES (?, ?, ?, ?, ?)`,
		leadID, salesRepID, nullTime(scheduledAt), typ, notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert follow-up: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetFollowUp(id)
}

func (s *CRMStore) GetFollowUp(id int64) (*model.FollowUp, error) {
	row := s.db.QueryRow(`SELECT `+followUpCols+` FROM follow_ups WHERE id = ?`, id)
	f, err := scanFollowUp(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get follow-up: %w", err)
	}
	return f, nil
}

func (s *CRMStore) ListFollowUpsForRep(salesRepID int64) ([]model.FollowUp, error) {
	return s.listFollowUps(context.Background(), `sales_rep_id = ?`, nil, salesRepID)
}

// ListFollowUpsByDateRange returns follow-ups scheduled within [start, end)
// that keep accepts. A nil keep returns all of them.
func (s *CRMStore) ListFollowUpsByDateRange(ctx context.Context, start, end time.Time, keep func(model.FollowUp) bool) ([]model.FollowUp, error) {
	return s.listFollowUps(ctx, `scheduled_at >= ? AND scheduled_at < ?`, keep, start.UTC(), end.UTC())
}

func (s *CRMStore) listFollowUps(ctx context.Context, where string, keep func(model.FollowUp) bool, args ...any) ([]model.FollowUp, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+followUpCols+` FROM follow_ups WHERE `+where+` ORDER BY scheduled_at ASC, id ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query follow-ups: %w", err)
	}
	defer rows.Close()

	var followUps []model.FollowUp
	for rows.Next() {
		f, err := scanFollowUp(rows)
		if err != nil {
			return nil, fmt.Errorf("scan follow-up: %w", err)
		}
		if keep == nil || keep(*f) {
			followUps = append(followUps, *f)
		}
	}
	return followUps, rows.Err()
}

func (s *CRMStore) UpdateFollowUpStatus(id int64, status model.FollowUpStatus, outcome string) (*model.FollowUp, error) {
	_, err := s.db.Exec(
		`UPDATE follow_ups SET status = ?, outcome = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, outcome, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update follow-up: %w", err)
	}
	return s.GetFollowUp(id)
}
