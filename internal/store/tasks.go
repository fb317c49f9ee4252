package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fentz26/focal/internal/engine"
	"github.com/fentz26/focal/internal/model"
)

var (
	// ErrTaskNotFound is returned when a task ID does not exist.
	ErrTaskNotFound = errors.New("task not found")
	// ErrEmptyTitle is returned when a task is created without a title.
	ErrEmptyTitle = errors.New("task title must not be empty")
	// ErrCycle is returned when a move would make a task its own ancestor.
	ErrCycle = errors.New("move would create a cycle")
	// ErrDepthExceeded is returned when an operation would nest tasks
	// deeper than MaxTreeDepth.
	ErrDepthExceeded = errors.New("maximum tree depth exceeded")
)

const taskColumns = `SELECT id, title, notes, parent_id, place_id, status,
	importance, credit_increment, credits, desired_credits, credits_timestamp,
	schedule_type, due_date, lead_time, last_done, repeat_config,
	is_sequential, is_acknowledged, last_completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*model.Task, error) {
	var t model.Task
	var parentID, placeID, repeat sql.NullString
	var creditIncrement sql.NullFloat64
	var dueDate, lastDone, lastCompletedAt sql.NullInt64

	err := row.Scan(
		&t.ID, &t.Title, &t.Notes, &parentID, &placeID, &t.Status,
		&t.Importance, &creditIncrement, &t.Credits, &t.DesiredCredits,
		&t.CreditsTimestamp, &t.Schedule.Type, &dueDate, &t.Schedule.LeadTime,
		&lastDone, &repeat, &t.IsSequential, &t.IsAcknowledged, &lastCompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}

	t.ParentID = parentID.String
	t.PlaceID = placeID.String
	if creditIncrement.Valid {
		v := creditIncrement.Float64
		t.CreditIncrement = &v
	}
	if dueDate.Valid {
		v := dueDate.Int64
		t.Schedule.DueDate = &v
	}
	if lastDone.Valid {
		v := lastDone.Int64
		t.Schedule.LastDone = &v
	}
	if lastCompletedAt.Valid {
		v := lastCompletedAt.Int64
		t.LastCompletedAt = &v
	}
	t.Repeat, err = parseRepeat(repeat)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullI64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func nullF64(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

// CreateTaskParams are the caller-supplied fields for a new task. Zero
// values fall back to defaults; ParentID empty means a root task.
type CreateTaskParams struct {
	Title           string
	Notes           string
	ParentID        string
	PlaceID         string
	Importance      *float64
	CreditIncrement *float64
	DesiredCredits  *float64
	ScheduleType    model.ScheduleType
	DueDate         *int64
	LeadTime        *int64
	Repeat          *model.RepeatConfig
	IsSequential    bool
}

// CreateTask inserts a new task. A child copies its parent's place and
// credit increment at creation time unless the caller provides its own;
// later changes to the parent do not propagate.
func (s *Store) CreateTask(params CreateTaskParams) (*model.Task, error) {
	if params.Title == "" {
		return nil, ErrEmptyTitle
	}

	placeID := params.PlaceID
	creditIncrement := params.CreditIncrement
	if params.ParentID != "" {
		parent, err := s.GetTask(params.ParentID)
		if err != nil {
			return nil, fmt.Errorf("load parent: %w", err)
		}
		depth, err := s.taskDepth(parent.ID)
		if err != nil {
			return nil, err
		}
		if depth+1 >= MaxTreeDepth {
			return nil, ErrDepthExceeded
		}
		if placeID == "" {
			placeID = parent.PlaceID
		}
		if creditIncrement == nil {
			creditIncrement = parent.CreditIncrement
		}
	}

	importance := model.DefaultImportance
	if params.Importance != nil {
		importance = *params.Importance
	}
	desired := 1.0
	if params.DesiredCredits != nil {
		desired = *params.DesiredCredits
	}
	scheduleType := params.ScheduleType
	if scheduleType == "" {
		scheduleType = model.ScheduleOnce
	}
	leadTime := int64(model.DefaultLeadTimeMillis)
	if params.LeadTime != nil {
		leadTime = *params.LeadTime
	}

	repeat, err := repeatJSON(params.Repeat)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	task := &model.Task{
		ID:              uuid.New().String(),
		Title:           params.Title,
		Notes:           params.Notes,
		ParentID:        params.ParentID,
		PlaceID:         placeID,
		Status:          model.TaskStatusPending,
		Importance:      importance,
		CreditIncrement: creditIncrement,
		DesiredCredits:  desired,
		CreditsTimestamp: now,
		Schedule: model.Schedule{
			Type:     scheduleType,
			DueDate:  params.DueDate,
			LeadTime: leadTime,
		},
		Repeat:       params.Repeat,
		IsSequential: params.IsSequential,
	}

	rank, err := s.nextSiblingRank(params.ParentID)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(`
		INSERT INTO tasks (id, title, notes, parent_id, sibling_rank, place_id,
			status, importance, credit_increment, credits, desired_credits,
			credits_timestamp, schedule_type, due_date, lead_time, last_done,
			repeat_config, is_sequential, is_acknowledged, last_completed_at,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?, NULL, ?, ?, 0, NULL, ?, ?)`,
		task.ID, task.Title, task.Notes, nullStr(task.ParentID), rank,
		nullStr(task.PlaceID), task.Status, task.Importance,
		nullF64(task.CreditIncrement), task.DesiredCredits, task.CreditsTimestamp,
		task.Schedule.Type, nullI64(task.Schedule.DueDate), task.Schedule.LeadTime,
		repeat, task.IsSequential, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return task, nil
}

func (s *Store) nextSiblingRank(parentID string) (int64, error) {
	var query string
	var args []any
	if parentID == "" {
		query = `SELECT COALESCE(MAX(sibling_rank), 0) FROM tasks WHERE parent_id IS NULL`
	} else {
		query = `SELECT COALESCE(MAX(sibling_rank), 0) FROM tasks WHERE parent_id = ?`
		args = append(args, parentID)
	}
	var rank int64
	if err := s.db.QueryRow(query, args...).Scan(&rank); err != nil {
		return 0, fmt.Errorf("next sibling rank: %w", err)
	}
	return rank + 1, nil
}

// taskDepth counts ancestors of the given task, so a root has depth 0.
func (s *Store) taskDepth(id string) (int, error) {
	depth := 0
	current := id
	for current != "" {
		var parent sql.NullString
		err := s.db.QueryRow(`SELECT parent_id FROM tasks WHERE id = ?`, current).Scan(&parent)
		if err == sql.ErrNoRows {
			return 0, ErrTaskNotFound
		}
		if err != nil {
			return 0, fmt.Errorf("walk ancestors: %w", err)
		}
		if !parent.Valid {
			return depth, nil
		}
		current = parent.String
		depth++
		if depth > MaxTreeDepth {
			return 0, ErrDepthExceeded
		}
	}
	return depth, nil
}

// GetTask loads a single task by ID.
func (s *Store) GetTask(id string) (*model.Task, error) {
	row := s.db.QueryRow(taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns all tasks in sibling order.
func (s *Store) ListTasks() ([]*model.Task, error) {
	rows, err := s.db.Query(taskColumns + ` FROM tasks ORDER BY sibling_rank, created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTaskParams holds optional field updates; nil pointers leave the
// stored value untouched.
type UpdateTaskParams struct {
	Title           *string
	Notes           *string
	PlaceID         *string
	Status          *model.TaskStatus
	Importance      *float64
	CreditIncrement *float64
	Credits         *float64
	DesiredCredits  *float64
	ScheduleType    *model.ScheduleType
	DueDate         *int64
	ClearDueDate    bool
	LeadTime        *int64
	Repeat          *model.RepeatConfig
	IsSequential    *bool
	IsAcknowledged  *bool
}

// UpdateTask applies the non-nil fields of params to a task. Setting
// Credits also stamps credits_timestamp, so decay restarts from now.
func (s *Store) UpdateTask(id string, params UpdateTaskParams) (*model.Task, error) {
	task, err := s.GetTask(id)
	if err != nil {
		return nil, err
	}

	if params.Title != nil {
		task.Title = *params.Title
	}
	if params.Notes != nil {
		task.Notes = *params.Notes
	}
	if params.PlaceID != nil {
		task.PlaceID = *params.PlaceID
	}
	if params.Status != nil {
		task.Status = *params.Status
	}
	if params.Importance != nil {
		task.Importance = *params.Importance
	}
	if params.CreditIncrement != nil {
		task.CreditIncrement = params.CreditIncrement
	}
	if params.Credits != nil {
		task.Credits = *params.Credits
		task.CreditsTimestamp = time.Now().UnixMilli()
	}
	if params.DesiredCredits != nil {
		task.DesiredCredits = *params.DesiredCredits
	}
	if params.ScheduleType != nil {
		task.Schedule.Type = *params.ScheduleType
	}
	if params.ClearDueDate {
		task.Schedule.DueDate = nil
	} else if params.DueDate != nil {
		task.Schedule.DueDate = params.DueDate
	}
	if params.LeadTime != nil {
		task.Schedule.LeadTime = *params.LeadTime
	}
	if params.Repeat != nil {
		task.Repeat = params.Repeat
	}
	if params.IsSequential != nil {
		task.IsSequential = *params.IsSequential
	}
	if params.IsAcknowledged != nil {
		task.IsAcknowledged = *params.IsAcknowledged
	}

	if err := s.saveTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Store) saveTask(task *model.Task) error {
	repeat, err := repeatJSON(task.Repeat)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		UPDATE tasks SET title = ?, notes = ?, place_id = ?, status = ?,
			importance = ?, credit_increment = ?, credits = ?, desired_credits = ?,
			credits_timestamp = ?, schedule_type = ?, due_date = ?, lead_time = ?,
			last_done = ?, repeat_config = ?, is_sequential = ?, is_acknowledged = ?,
			last_completed_at = ?, updated_at = ?
		WHERE id = ?`,
		task.Title, task.Notes, nullStr(task.PlaceID), task.Status,
		task.Importance, nullF64(task.CreditIncrement), task.Credits,
		task.DesiredCredits, task.CreditsTimestamp, task.Schedule.Type,
		nullI64(task.Schedule.DueDate), task.Schedule.LeadTime,
		nullI64(task.Schedule.LastDone), repeat, task.IsSequential,
		task.IsAcknowledged, nullI64(task.LastCompletedAt),
		time.Now().UnixMilli(), task.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// MoveTask reparents a task. An empty newParentID promotes it to a root.
// The task joins the end of its new sibling list.
func (s *Store) MoveTask(id, newParentID string) error {
	if id == newParentID {
		return ErrCycle
	}
	if _, err := s.GetTask(id); err != nil {
		return err
	}

	if newParentID != "" {
		// The new parent must exist and not live inside the moved subtree.
		current := newParentID
		for current != "" {
			if current == id {
				return ErrCycle
			}
			var parent sql.NullString
			err := s.db.QueryRow(`SELECT parent_id FROM tasks WHERE id = ?`, current).Scan(&parent)
			if err == sql.ErrNoRows {
				if current == newParentID {
					return ErrTaskNotFound
				}
				break
			}
			if err != nil {
				return fmt.Errorf("walk ancestors: %w", err)
			}
			if !parent.Valid {
				break
			}
			current = parent.String
		}

		parentDepth, err := s.taskDepth(newParentID)
		if err != nil {
			return err
		}
		height, err := s.subtreeHeight(id, 0)
		if err != nil {
			return err
		}
		if parentDepth+1+height >= MaxTreeDepth {
			return ErrDepthExceeded
		}
	}

	rank, err := s.nextSiblingRank(newParentID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`UPDATE tasks SET parent_id = ?, sibling_rank = ?, updated_at = ? WHERE id = ?`,
		nullStr(newParentID), rank, time.Now().UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("move task: %w", err)
	}
	return nil
}

// subtreeHeight returns the height of the subtree rooted at id, where a
// leaf has height 0.
func (s *Store) subtreeHeight(id string, depth int) (int, error) {
	if depth > MaxTreeDepth {
		return 0, ErrDepthExceeded
	}
	rows, err := s.db.Query(`SELECT id FROM tasks WHERE parent_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("query children: %w", err)
	}
	var children []string
	for rows.Next() {
		var child string
		if err := rows.Scan(&child); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan child: %w", err)
		}
		children = append(children, child)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	height := 0
	for _, child := range children {
		h, err := s.subtreeHeight(child, depth+1)
		if err != nil {
			return 0, err
		}
		if h+1 > height {
			height = h + 1
		}
	}
	return height, nil
}

// DeleteTask removes a task and its whole subtree.
func (s *Store) DeleteTask(id string) error {
	if _, err := s.GetTask(id); err != nil {
		return err
	}

	ids := []string{id}
	for i := 0; i < len(ids); i++ {
		rows, err := s.db.Query(`SELECT id FROM tasks WHERE parent_id = ?`, ids[i])
		if err != nil {
			return fmt.Errorf("query children: %w", err)
		}
		for rows.Next() {
			var child string
			if err := rows.Scan(&child); err != nil {
				rows.Close()
				return fmt.Errorf("scan child: %w", err)
			}
			ids = append(ids, child)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, taskID := range ids {
		if _, err := tx.Exec(`DELETE FROM tasks WHERE id = ?`, taskID); err != nil {
			return fmt.Errorf("delete task %s: %w", taskID, err)
		}
	}
	return tx.Commit()
}

// CompleteTask marks a task done at the given instant (0 means now),
// banking its decayed credits plus the completion increment.
func (s *Store) CompleteTask(id string, now int64) (*model.Task, error) {
	task, err := s.GetTask(id)
	if err != nil {
		return nil, err
	}
	if now == 0 {
		now = time.Now().UnixMilli()
	}
	engine.CompleteTask(task, now)
	if err := s.saveTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

// AcknowledgeCompleted marks every unacknowledged Done task as seen and
// returns how many rows changed.
func (s *Store) AcknowledgeCompleted() (int, error) {
	res, err := s.db.Exec(
		`UPDATE tasks SET is_acknowledged = 1, updated_at = ? WHERE status = ? AND is_acknowledged = 0`,
		time.Now().UnixMilli(), model.TaskStatusDone,
	)
	if err != nil {
		return 0, fmt.Errorf("acknowledge completed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("acknowledge completed: %w", err)
	}
	return int(n), nil
}

// RefreshLifecycle wakes routine tasks whose next occurrence has entered
// its lead-time window and persists the transitions. It returns the number
// of tasks woken.
func (s *Store) RefreshLifecycle(now int64) (int, error) {
	if now == 0 {
		now = time.Now().UnixMilli()
	}
	snap, err := s.Snapshot()
	if err != nil {
		return 0, err
	}

	before := make(map[string]model.TaskStatus, len(snap.Tasks))
	for id, t := range snap.Tasks {
		before[id] = t.Status
	}

	woken := engine.WakeRoutineTasks(snap, now)
	if woken == 0 {
		return 0, nil
	}
	for id, t := range snap.Tasks {
		if before[id] == t.Status {
			continue
		}
		if err := s.saveTask(t); err != nil {
			return 0, err
		}
	}
	return woken, nil
}

// BalanceDistribution returns each root task's share of desired credits,
// normalized to percentages.
func (s *Store) BalanceDistribution() (map[string]float64, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	total := 0.0
	for _, id := range snap.RootTaskIDs {
		total += snap.Tasks[id].DesiredCredits
	}
	result := make(map[string]float64, len(snap.RootTaskIDs))
	for _, id := range snap.RootTaskIDs {
		if total <= 0 {
			result[id] = 1.0 / float64(len(snap.RootTaskIDs))
			continue
		}
		result[id] = snap.Tasks[id].DesiredCredits / total
	}
	return result, nil
}

// SetBalanceDistribution sets one root task's share to newValue (clamped)
// and rebalances the other roots proportionally, rewriting every root's
// desired credits.
func (s *Store) SetBalanceDistribution(targetID string, newValue float64) (map[string]float64, error) {
	current, err := s.BalanceDistribution()
	if err != nil {
		return nil, err
	}
	if _, ok := current[targetID]; !ok {
		return nil, ErrTaskNotFound
	}

	percentages := engine.RedistributePercentages(current, targetID, newValue)
	credits := engine.ApplyRedistributionToCredits(percentages)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	for id, desired := range credits {
		if _, err := tx.Exec(
			`UPDATE tasks SET desired_credits = ?, updated_at = ? WHERE id = ?`,
			desired, now, id,
		); err != nil {
			return nil, fmt.Errorf("update desired credits: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return percentages, nil
}
