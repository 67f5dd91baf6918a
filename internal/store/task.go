package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/opsdesk/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

const taskCols = `id, title, description, deadline, priority, status, delegated_by, assigned_to_manager, created_at, updated_at`

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var deadline sql.NullTime
	var delegatedBy, manager sql.NullInt64

	err := scanner.Scan(
		&t.ID, &t.Title, &t.Description, &deadline, &t.Priority, &t.Status,
		&delegatedBy, &manager, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if deadline.Valid {
		d := deadline.Time
		t.Deadline = &d
	}
	if delegatedBy.Valid {
		t.DelegatedBy = &delegatedBy.Int64
	}
	if manager.Valid {
		t.AssignedToManager = &manager.Int64
	}
	return &t, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// TaskInput holds the writable fields of a task.
type TaskInput struct {
	Title             string
	Description       string
	Deadline          *time.Time
	Priority          model.TaskPriority
	AssignedTo        []int64
	DelegatedBy       *int64
	AssignedToManager *int64
}

func (s *TaskStore) Create(in TaskInput) (*model.Task, error) {
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO tasks (title, description, deadline, priority, delegated_by, assigned_to_manager)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		in.Title, in.Description, nullTime(in.Deadline), in.Priority, nullInt64(in.DelegatedBy), nullInt64(in.AssignedToManager),
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for _, userID := range in.AssignedTo {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO task_assignees (task_id, user_id) VALUES (?, ?)`, id, userID); err != nil {
			return nil, fmt.Errorf("insert task assignee: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit task: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	assignees, err := s.assignees(context.Background(), `task_id = ?`, id)
	if err != nil {
		return nil, err
	}
	t.AssignedTo = assignees[t.ID]
	return t, nil
}

func (s *TaskStore) List() ([]model.Task, error) {
	return s.list(context.Background(), `1 = 1`, nil)
}

// ListTasksByDeadlineRange returns tasks whose deadline falls in
// [start, end) and for which keep returns true. A nil keep returns all of
// them.
func (s *TaskStore) ListTasksByDeadlineRange(ctx context.Context, start, end time.Time, keep func(model.Task) bool) ([]model.Task, error) {
	return s.list(ctx, `deadline >= ? AND deadline < ?`, keep, start.UTC(), end.UTC())
}

func (s *TaskStore) list(ctx context.Context, where string, keep func(model.Task) bool, args ...any) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE `+where+` ORDER BY deadline IS NULL, deadline ASC, id ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	assignees, err := s.assignees(ctx, `task_id IN (SELECT id FROM tasks WHERE `+where+`)`, args...)
	if err != nil {
		return nil, err
	}

	kept := tasks[:0]
	for _, t := range tasks {
		t.AssignedTo = assignees[t.ID]
		if keep == nil || keep(t) {
			kept = append(kept, t)
		}
	}
	return kept, nil
}

func (s *TaskStore) assignees(ctx context.Context, where string, args ...any) (map[int64][]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, user_id FROM task_assignees WHERE `+where+` ORDER BY task_id, user_id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query task assignees: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]int64)
	for rows.Next() {
		var taskID, userID int64
		if err := rows.Scan(&taskID, &userID); err != nil {
			return nil, fmt.Errorf("scan task assignee: %w", err)
		}
		out[taskID] = append(out[taskID], userID)
	}
	return out, rows.Err()
}

func (s *TaskStore) UpdateStatus(id int64, status model.TaskStatus) (*model.Task, error) {
	_, err := s.db.Exec(
		`UPDATE tasks SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task status: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
