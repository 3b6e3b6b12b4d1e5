package teacher

import (
	"context"
	"errors"

	"github.com/scheduleme/backend/core"
)

var (
	// errors
	ErrNotFound = errors.New("teacher not found")
)

type (
	Repository interface {
		UpsertTeacher(ctx context.Context, t Teacher, exec ...core.DBExecutor) (Teacher, error)
		QueryTeachers(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Teacher, error)
		GetTeacher(ctx context.Context, id string, exec ...core.DBExecutor) (Teacher, error)
		DeleteTeacher(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo      Repository
		listeners core.ChangeListeners
	}
)

func NewService(repo Repository, listeners ...core.ChangeListener) *Service {
	return &Service{repo: repo, listeners: listeners}
}

// Create inserts a new Teacher or overwrites the one with the same ID.
func (svc *Service) Create(ctx context.Context, nt NewTeacher) (Teacher, error) {
	id := nt.ID
	if id == "" {
		id = core.NewID()
	}
	t, err := svc.repo.UpsertTeacher(ctx, Teacher{
		ID:        id,
		FirstName: nt.FirstName,
		LastName:  nt.LastName,
		Color:     nt.Color,
	})
	if err != nil {
		return Teacher{}, err
	}
	svc.listeners.DataChanged(ctx)
	return t, nil
}

// Query returns all teachers, by last name then first name unless ordering says otherwise.
func (svc *Service) Query(ctx context.Context, ordering []core.DBOrdering) ([]Teacher, error) {
	return svc.repo.QueryTeachers(ctx, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, id)
}

func (svc *Service) Exists(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error) {
	if _, err := svc.repo.GetTeacher(ctx, id, exec...); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (svc *Service) Update(ctx context.Context, id string, nt NewTeacher) (Teacher, error) {
	nt.ID = id
	return svc.Create(ctx, nt)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if err := svc.repo.DeleteTeacher(ctx, id); err != nil {
		return err
	}
	svc.listeners.DataChanged(ctx)
	return nil
}
