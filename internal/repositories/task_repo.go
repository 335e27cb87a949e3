package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wmscore/internal/common"
	"wmscore/internal/models"

	"github.com/jackc/pgx/v5"
)

type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id int64) (*models.Task, error)
	ListByUser(ctx context.Context, userID int64, taskType models.TaskType) ([]*models.Task, error)
	// Transition moves the task from one status to another in a single
	// compare-and-set. It reports false when the task was not in status from.
	Transition(ctx context.Context, id int64, from, to models.TaskStatus, inProgress bool, completedAt *time.Time) (bool, error)
	PutawayStats(ctx context.Context, userID int64, since time.Time) (*models.PutawayStats, error)
	PickingStats(ctx context.Context, userID int64, since time.Time) (*models.PickingStats, error)
}

type taskRepo struct {
	db Database
}

func NewTaskRepo(db Database) TaskRepository {
	return &taskRepo{db: db}
}

const taskColumns = `
		SELECT id, user_id, shipment_item_id, task_type, status, suggested_bin_id, suggested_zone_id,
			suggested_location, allocation_plan, in_progress, created_at, completed_at
		FROM tasks
`

func (r *taskRepo) Create(ctx context.Context, task *models.Task) error {
	plan, err := encodePlan(task.AllocationPlan)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO tasks (user_id, shipment_item_id, task_type, status, suggested_bin_id, suggested_zone_id,
			suggested_location, allocation_plan, in_progress, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id, created_at
	`
	err = r.db.QueryRow(ctx, query, task.UserID, task.ShipmentItemID, task.TaskType, task.Status, task.SuggestedBinID,
		task.SuggestedZoneID, task.SuggestedLocation, plan, task.InProgress).Scan(&task.ID, &task.CreatedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *taskRepo) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	task, err := scanTask(r.db.QueryRow(ctx, taskColumns+` WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, common.NewNotFound("task", id)
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// ListByUser returns the user's tasks, newest first. An empty taskType lists all types.
func (r *taskRepo) ListByUser(ctx context.Context, userID int64, taskType models.TaskType) ([]*models.Task, error) {
	query := taskColumns + ` WHERE user_id = $1 AND ($2 = '' OR task_type = $2) ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query, userID, string(taskType))
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (r *taskRepo) Transition(ctx context.Context, id int64, from, to models.TaskStatus, inProgress bool, completedAt *time.Time) (bool, error) {
	query := `
		UPDATE tasks
		SET status = $1, in_progress = $2, completed_at = $3
		WHERE id = $4 AND status = $5
	`
	tag, err := r.db.Exec(ctx, query, to, inProgress, completedAt, id, from)
	if err != nil {
		return false, fmt.Errorf("transition task: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// PutawayStats counts the user's putaway tasks; completed ones only since the given time.
func (r *taskRepo) PutawayStats(ctx context.Context, userID int64, since time.Time) (*models.PutawayStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'PENDING'),
			COUNT(*) FILTER (WHERE status = 'IN_PROGRESS'),
			COUNT(*) FILTER (WHERE status = 'COMPLETED' AND completed_at >= $2)
		FROM tasks
		WHERE task_type = 'PUTAWAY' AND user_id = $1
	`
	stats := &models.PutawayStats{}
	if err := r.db.QueryRow(ctx, query, userID, since).Scan(&stats.Pending, &stats.InProgress, &stats.CompletedToday); err != nil {
		return nil, fmt.Errorf("putaway stats: %w", err)
	}
	return stats, nil
}

func (r *taskRepo) PickingStats(ctx context.Context, userID int64, since time.Time) (*models.PickingStats, error) {
	query := `
		SELECT
			COUNT(DISTINCT i.shipment_id) FILTER (WHERE t.status <> 'COMPLETED'),
			COALESCE(SUM(i.quantity) FILTER (WHERE t.status <> 'COMPLETED'), 0),
			COUNT(*) FILTER (WHERE t.status = 'COMPLETED' AND t.completed_at >= $2)
		FROM tasks t
		JOIN shipment_items i ON i.id = t.shipment_item_id
		WHERE t.task_type = 'PICKING' AND t.user_id = $1
	`
	stats := &models.PickingStats{}
	if err := r.db.QueryRow(ctx, query, userID, since).Scan(&stats.ActivePickLists, &stats.ItemsToPick, &stats.PickedToday); err != nil {
		return nil, fmt.Errorf("picking stats: %w", err)
	}
	return stats, nil
}

func scanTask(row pgx.Row) (*models.Task, error) {
	task := &models.Task{}
	var plan []byte
	err := row.Scan(&task.ID, &task.UserID, &task.ShipmentItemID, &task.TaskType, &task.Status, &task.SuggestedBinID,
		&task.SuggestedZoneID, &task.SuggestedLocation, &plan, &task.InProgress, &task.CreatedAt, &task.CompletedAt)
	if err != nil {
		return nil, err
	}
	if len(plan) > 0 {
		if err := json.Unmarshal(plan, &task.AllocationPlan); err != nil {
			return nil, fmt.Errorf("decode allocation plan of task %d: %w", task.ID, err)
		}
	}
	return task, nil
}

func encodePlan(plan []models.BinAllocation) (*string, error) {
	if len(plan) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("encode allocation plan: %w", err)
	}
	s := string(data)
	return &s, nil
}
