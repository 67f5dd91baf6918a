package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/opsdesk/internal/model"
)

type ScheduleStore struct {
	db *sql.DB
}

func NewScheduleStore(db *sql.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

const entryCols = `id, title, description, date, time, type, owner_id, participants, assigned_to, created_at, updated_at`

func scanEntry(scanner interface{ Scan(...any) error }) (*model.ScheduleEntry, error) {
	var e model.ScheduleEntry
	var participants string

	err := scanner.Scan(
		&e.ID, &e.Title, &e.Description, &e.Date, &e.Time, &e.Type,
		&e.OwnerID, &participants, &e.AssignedTo, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if participants != "" {
		if err := json.Unmarshal([]byte(participants), &e.Participants); err != nil {
			return nil, fmt.Errorf("decode participants: %w", err)
		}
	}
	return &e, nil
}

// InsertEntry stores a new schedule entry and returns its id.
func (s *ScheduleStore) InsertEntry(ctx context.Context, e model.ScheduleEntry) (int64, error) {
	if e.Participants == nil {
		e.Participants = []string{}
	}
	participants, err := json.Marshal(e.Participants)
	if err != nil {
		return 0, fmt.Errorf("encode participants: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO schedule_entries (title, description, date, time, type, owner_id, participants, assigned_to)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.Description, e.Date.UTC(), e.Time, e.Type, e.OwnerID, string(participants), e.AssignedTo,
	)
	if err != nil {
		return 0, fmt.Errorf("insert schedule entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (s *ScheduleStore) GetByID(id int64) (*model.ScheduleEntry, error) {
	row := s.db.QueryRow(`SELECT `+entryCols+` FROM schedule_entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule entry: %w", err)
	}
	return e, nil
}

// ListEntriesByDateRange returns entries dated within [start, end) that keep
// accepts. A nil keep returns all of them.
func (s *ScheduleStore) ListEntriesByDateRange(ctx context.Context, start, end time.Time, keep func(model.ScheduleEntry) bool) ([]model.ScheduleEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryCols+` FROM schedule_entries
		 WHERE date >= ? AND date < ?
		 ORDER BY date ASC, time ASC, id ASC`,
		start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query schedule entries: %w", err)
	}
	defer rows.Close()

	var entries []model.ScheduleEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule entry: %w", err)
		}
		if keep == nil || keep(*e) {
			entries = append(entries, *e)
		}
	}
	return entries, rows.Err()
}

func (s *ScheduleStore) DeleteEntry(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM schedule_entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete schedule entry: %w", err)
	}
	return nil
}
