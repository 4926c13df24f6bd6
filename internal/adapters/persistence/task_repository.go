package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/andrescamacho/mrta-go/internal/domain/task"
)

// GormTaskRepository implements the auction's TaskStore using GORM.
type GormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GORM task repository
func NewGormTaskRepository(db *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{db: db}
}

// Get retrieves a task by id.
func (r *GormTaskRepository) Get(ctx context.Context, taskID string) (*task.Task, error) {
	var model TaskModel
	result := r.db.WithContext(ctx).Where("task_id = ?", taskID).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task not found: %s", taskID)
		}
		return nil, fmt.Errorf("failed to find task: %w", result.Error)
	}
	return r.modelToTask(&model)
}

// Save upserts a task.
func (r *GormTaskRepository) Save(ctx context.Context, t *task.Task) error {
	model, err := r.taskToModel(t)
	if err != nil {
		return fmt.Errorf("failed to convert task to model: %w", err)
	}
	result := r.db.WithContext(ctx).Save(model)
	if result.Error != nil {
		return fmt.Errorf("failed to save task: %w", result.Error)
	}
	return nil
}

// UpdateStatus updates only the status column of an existing task.
func (r *GormTaskRepository) UpdateStatus(ctx context.Context, taskID string, status task.Status) error {
	result := r.db.WithContext(ctx).
		Model(&TaskModel{}).
		Where("task_id = ?", taskID).
		Update("status", string(status))
	if result.Error != nil {
		return fmt.Errorf("failed to update task status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("task not found: %s", taskID)
	}
	return nil
}

// ListByStatus retrieves every task in the given status, oldest first.
func (r *GormTaskRepository) ListByStatus(ctx context.Context, status task.Status) ([]*task.Task, error) {
	var models []TaskModel
	result := r.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("created_at asc").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", result.Error)
	}

	tasks := make([]*task.Task, 0, len(models))
	for i := range models {
		t, err := r.modelToTask(&models[i])
		if err != nil {
			continue // Skip rows with undecodable documents
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (r *GormTaskRepository) modelToTask(model *TaskModel) (*task.Task, error) {
	var req task.TransportationRequest
	if err := json.Unmarshal([]byte(model.Request), &req); err != nil {
		return nil, fmt.Errorf("invalid request document for task %s: %w", model.TaskID, err)
	}
	var constraints task.TemporalConstraints
	if err := json.Unmarshal([]byte(model.Constraints), &constraints); err != nil {
		return nil, fmt.Errorf("invalid constraints document for task %s: %w", model.TaskID, err)
	}
	var robots []string
	if model.AssignedRobots != "" {
		if err := json.Unmarshal([]byte(model.AssignedRobots), &robots); err != nil {
			robots = nil
		}
	}
	return &task.Task{
		TaskID:         model.TaskID,
		Request:        req,
		Constraints:    constraints,
		Status:         task.Status(model.Status),
		AssignedRobots: robots,
	}, nil
}

func (r *GormTaskRepository) taskToModel(t *task.Task) (*TaskModel, error) {
	reqJSON, err := json.Marshal(t.Request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	constraintsJSON, err := json.Marshal(t.Constraints)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal constraints: %w", err)
	}
	robotsJSON := "[]"
	if t.AssignedRobots != nil {
		bytes, err := json.Marshal(t.AssignedRobots)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal assigned robots: %w", err)
		}
		robotsJSON = string(bytes)
	}
	return &TaskModel{
		TaskID:         t.TaskID,
		Status:         string(t.Status),
		Request:        string(reqJSON),
		Constraints:    string(constraintsJSON),
		AssignedRobots: robotsJSON,
	}, nil
}
