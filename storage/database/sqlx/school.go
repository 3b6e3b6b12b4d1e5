package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/scheduleme/backend/core"
	"github.com/scheduleme/backend/core/school"
)

const schoolColumns = "id, name, address, sort_order"

var schoolOrdering = map[string]string{
	"id":        "id",
	"name":      "name",
	"address":   "address",
	"sortOrder": "sort_order",
}

type schoolRepository struct {
	baseRepository
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(exec core.DBExecutor) *schoolRepository {
	return &schoolRepository{baseRepository{exec: exec}}
}

func (repo schoolRepository) UpsertSchool(ctx context.Context, s school.School, exec ...core.DBExecutor) (school.School, error) {
	exe := repo.getExec(exec)
	q := exe.Rebind(`INSERT INTO schools (` + schoolColumns + `) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			address = excluded.address,
			sort_order = excluded.sort_order`)
	if _, err := exe.ExecContext(ctx, q, s.ID, s.Name, s.Address, s.SortOrder); err != nil {
		return school.School{}, errors.Wrap(err, "upserting school")
	}
	return s, nil
}

func (repo schoolRepository) QuerySchools(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]school.School, error) {
	q := "SELECT " + schoolColumns + " FROM schools" +
		orderBy(ordering, schoolOrdering, "sort_order ASC, name ASC")
	schools := make([]school.School, 0)
	if err := sqlxSelect(ctx, repo.getExec(exec), &schools, q); err != nil {
		return nil, errors.Wrap(err, "querying schools")
	}
	return schools, nil
}

func (repo schoolRepository) GetSchool(ctx context.Context, id string, exec ...core.DBExecutor) (school.School, error) {
	exe := repo.getExec(exec)
	var s school.School
	if err := sqlxGet(ctx, exe, &s, exe.Rebind("SELECT "+schoolColumns+" FROM schools WHERE id = ?"), id); err != nil {
		return school.School{}, trapNoRowsErr(err, school.ErrNotFound, "finding school")
	}
	return s, nil
}

func (repo schoolRepository) DeleteSchool(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return deleteByID(ctx, repo.getExec(exec), "schools", id, school.ErrNotFound)
}
