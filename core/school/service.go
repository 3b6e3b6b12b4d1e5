package school

import (
	"context"
	"errors"

	"github.com/scheduleme/backend/core"
)

var (
	// errors
	ErrNotFound = errors.New("school not found")
)

type (
	Repository interface {
		UpsertSchool(ctx context.Context, s School, exec ...core.DBExecutor) (School, error)
		// QuerySchools defaults to sort_order, then name.
		QuerySchools(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]School, error)
		GetSchool(ctx context.Context, id string, exec ...core.DBExecutor) (School, error)
		DeleteSchool(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo      Repository
		listeners core.ChangeListeners
	}
)

func NewService(repo Repository, listeners ...core.ChangeListener) *Service {
	return &Service{repo: repo, listeners: listeners}
}

func (svc *Service) Create(ctx context.Context, ns NewSchool) (School, error) {
	id := ns.ID
	if id == "" {
		id = core.NewID()
	}
	s, err := svc.repo.UpsertSchool(ctx, School{
		ID:        id,
		Name:      ns.Name,
		Address:   ns.Address,
		SortOrder: ns.SortOrder,
	})
	if err != nil {
		return School{}, err
	}
	svc.listeners.DataChanged(ctx)
	return s, nil
}

func (svc *Service) Query(ctx context.Context, ordering []core.DBOrdering) ([]School, error) {
	return svc.repo.QuerySchools(ctx, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (School, error) {
	return svc.repo.GetSchool(ctx, id)
}

func (svc *Service) Exists(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error) {
	if _, err := svc.repo.GetSchool(ctx, id, exec...); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (svc *Service) Update(ctx context.Context, id string, ns NewSchool) (School, error) {
	ns.ID = id
	return svc.Create(ctx, ns)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if err := svc.repo.DeleteSchool(ctx, id); err != nil {
		return err
	}
	svc.listeners.DataChanged(ctx)
	return nil
}
