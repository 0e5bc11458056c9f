package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"todolist/internal/clock"
	"todolist/internal/model"
	"todolist/internal/repository"
)

// TodoStore is the persistence contract the lifecycle service relies on.
// FindByID reports a missing item with repository.ErrNotFound.
type TodoStore interface {
	Create(ctx context.Context, item *model.TodoItem) error
	FindByID(ctx context.Context, id uint) (*model.TodoItem, error)
	Save(ctx context.Context, item *model.TodoItem) error
	ListAll(ctx context.Context) ([]model.TodoItem, error)
	ListByStatus(ctx context.Context, status model.Status) ([]model.TodoItem, error)
	MarkPastDue(ctx context.Context, now time.Time) (int64, error)
}

// TodoInput represents data required to create a todo item.
type TodoInput struct {
	Description string
	DueDatetime time.Time
}

// TodoService owns every status transition of a todo item.
type TodoService struct {
	store  TodoStore
	clock  clock.Clock
	logger *log.Logger
}

func NewTodoService(store TodoStore, clk clock.Clock, logger *log.Logger) *TodoService {
	return &TodoService{store: store, clock: clk, logger: logger.WithPrefix("todo")}
}

func (s *TodoService) CreateItem(ctx context.Context, input TodoInput) (*model.TodoItem, error) {
	if err := validateDescription(input.Description); err != nil {
		return nil, err
	}
	if input.DueDatetime.IsZero() {
		return nil, &ValidationError{Field: "dueDatetime", Message: "must not be null"}
	}

	now := s.now()
	item := model.TodoItem{
		Description:      input.Description,
		Status:           model.StatusNotDone,
		CreationDatetime: now,
		DueDatetime:      normalize(input.DueDatetime),
	}
	s.promoteIfOverdue(&item, now)

	if err := s.store.Create(ctx, &item); err != nil {
		return nil, err
	}
	s.logger.Info("created todo item", "id", item.ID, "status", item.Status)
	return s.reload(ctx, &item)
}

func (s *TodoService) UpdateDescription(ctx context.Context, id uint, description string) (*model.TodoItem, error) {
	if err := validateDescription(description); err != nil {
		return nil, err
	}
	item, _, err := s.loadDoable(ctx, id, "update description")
	if err != nil {
		return nil, err
	}

	item.Description = description
	if err := s.store.Save(ctx, item); err != nil {
		return nil, err
	}
	s.logger.Info("updated description of todo item", "id", id, "description", description)
	return item, nil
}

func (s *TodoService) MarkDone(ctx context.Context, id uint) (*model.TodoItem, error) {
	item, now, err := s.loadDoable(ctx, id, "mark done")
	if err != nil {
		return nil, err
	}

	item.Status = model.StatusDone
	item.DoneDatetime = &now
	if err := s.store.Save(ctx, item); err != nil {
		return nil, err
	}
	s.logger.Info("marked todo item as done", "id", id)
	return item, nil
}

func (s *TodoService) MarkNotDone(ctx context.Context, id uint) (*model.TodoItem, error) {
	item, _, err := s.loadDoable(ctx, id, "mark not done")
	if err != nil {
		return nil, err
	}

	item.Status = model.StatusNotDone
	item.DoneDatetime = nil
	if err := s.store.Save(ctx, item); err != nil {
		return nil, err
	}
	s.logger.Info("marked todo item as not done", "id", id)
	return s.reload(ctx, item)
}

// GetItem returns the item, persisting a past-due promotion if one was due.
func (s *TodoService) GetItem(ctx context.Context, id uint) (*model.TodoItem, error) {
	item, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.promoteIfOverdue(item, s.now()) {
		if err := s.store.Save(ctx, item); err != nil {
			return nil, err
		}
		s.logger.Info("todo item is now past due", "id", id)
	}
	return item, nil
}

// ListItems sweeps first, then returns every item or only the not-done ones,
// oldest first.
func (s *TodoService) ListItems(ctx context.Context, includeAll bool) ([]model.TodoItem, error) {
	if _, err := s.SweepPastDue(ctx); err != nil {
		return nil, err
	}
	if includeAll {
		return s.store.ListAll(ctx)
	}
	return s.store.ListByStatus(ctx, model.StatusNotDone)
}

// SweepPastDue promotes every overdue not-done item in one storage call.
// DoneDatetime is left untouched.
func (s *TodoService) SweepPastDue(ctx context.Context) (int64, error) {
	updated, err := s.store.MarkPastDue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.logger.Info("updated not done todo items that are now past due", "updatedRows", updated)
	return updated, nil
}

// promoteIfOverdue is the single place where past-due status is derived.
func (s *TodoService) promoteIfOverdue(item *model.TodoItem, now time.Time) bool {
	if !item.IsOverdue(now) {
		return false
	}
	item.Status = model.StatusPastDue
	return true
}

// loadDoable loads an item for mutation and rejects it if it is, or has just
// become, past due. Nothing is persisted on rejection.
func (s *TodoService) loadDoable(ctx context.Context, id uint, action string) (*model.TodoItem, time.Time, error) {
	item, err := s.find(ctx, id)
	if err != nil {
		return nil, time.Time{}, err
	}
	now := s.now()
	s.promoteIfOverdue(item, now)
	if item.Status == model.StatusPastDue {
		err := &ItemError{ID: id, Err: ErrPastDue}
		s.logger.Error("cannot "+action, "id", id, "err", err)
		return nil, time.Time{}, err
	}
	return item, now, nil
}

func (s *TodoService) find(ctx context.Context, id uint) (*model.TodoItem, error) {
	item, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("todo item not found", "id", id)
			return nil, &ItemError{ID: id, Err: ErrNotFound}
		}
		return nil, err
	}
	return item, nil
}

// reload re-reads a just-written item, falling back to the in-memory copy.
func (s *TodoService) reload(ctx context.Context, item *model.TodoItem) (*model.TodoItem, error) {
	stored, err := s.store.FindByID(ctx, item.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return item, nil
		}
		return nil, err
	}
	return stored, nil
}

func (s *TodoService) now() time.Time {
	return normalize(s.clock.Now())
}

// normalize keeps instants in UTC at the precision every store can round-trip.
func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func validateDescription(description string) error {
	if strings.TrimSpace(description) == "" {
		return &ValidationError{Field: "description", Message: "must not be blank"}
	}
	return nil
}
