package db

import (
	"context"
	"errors"

	"github.com/crewboard/backend/internal/core/ports"
	"github.com/crewboard/backend/internal/domain"
	"github.com/crewboard/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type taskRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepository(db *gorm.DB, log *logger.Logger) ports.TaskRepository {
	return &taskRepository{db: db, log: log}
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		r.log.Errorw("task_repo_create_failed", "task_id", task.TaskID, "error", err)
		return err
	}
	r.log.Infow("task_repo_create_ok", "id", task.ID, "task_id", task.TaskID)
	return nil
}

// GetByTaskID looks a task up by its correlation id. A missing task is
// (nil, nil), not an error; submission uses this to detect replays.
func (r *taskRepository) GetByTaskID(ctx context.Context, taskID string) (*domain.Task, error) {
	var task domain.Task
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorw("task_repo_get_failed", "task_id", taskID, "error", err)
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) GetAll(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := r.db.WithContext(ctx).Order("created_at desc").Find(&tasks).Error; err != nil {
		r.log.Errorw("task_repo_list_failed", "error", err)
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) UpdateStatus(ctx context.Context, taskID string, status domain.TaskStatus) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("task_id = ?", taskID).
		Update("status", status)
	if result.Error != nil {
		r.log.Errorw("task_repo_update_status_failed", "task_id", taskID, "status", status, "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	r.log.Infow("task_repo_update_status_ok", "task_id", taskID, "status", status)
	return nil
}
