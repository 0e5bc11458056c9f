package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"todolist/internal/model"
)

const creationOrder = "creation_datetime ASC, id ASC"

// TodoRepository persists todo items through GORM.
type TodoRepository struct {
	db *gorm.DB
}

func NewTodoRepository(db *gorm.DB) *TodoRepository {
	return &TodoRepository{db: db}
}

func (r *TodoRepository) Create(ctx context.Context, item *model.TodoItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("create todo item: %w", err)
	}
	return nil
}

func (r *TodoRepository) FindByID(ctx context.Context, id uint) (*model.TodoItem, error) {
	var item model.TodoItem
	err := r.db.WithContext(ctx).First(&item, id).Error
	switch {
	case err == nil:
		return &item, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("find todo item %d: %w", id, err)
	}
}

func (r *TodoRepository) Save(ctx context.Context, item *model.TodoItem) error {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return fmt.Errorf("save todo item %d: %w", item.ID, err)
	}
	return nil
}

func (r *TodoRepository) ListAll(ctx context.Context) ([]model.TodoItem, error) {
	items := []model.TodoItem{}
	if err := r.db.WithContext(ctx).Order(creationOrder).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list todo items: %w", err)
	}
	return items, nil
}

func (r *TodoRepository) ListByStatus(ctx context.Context, status model.Status) ([]model.TodoItem, error) {
	items := []model.TodoItem{}
	if err := r.db.WithContext(ctx).Where("status = ?", status).Order(creationOrder).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list %s todo items: %w", status, err)
	}
	return items, nil
}

// MarkPastDue moves every not-done item due before now to past due in one statement.
func (r *TodoRepository) MarkPastDue(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.TodoItem{}).
		Where("status = ? AND due_datetime < ?", model.StatusNotDone, now).
		Update("status", model.StatusPastDue)
	if res.Error != nil {
		return 0, fmt.Errorf("mark past due: %w", res.Error)
	}
	return res.RowsAffected, nil
}
