package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/scheduleme/backend/core"
	"github.com/scheduleme/backend/core/teacher"
)

const teacherColumns = "id, first_name, last_name, color"

var teacherOrdering = map[string]string{
	"id":        "id",
	"firstName": "first_name",
	"lastName":  "last_name",
	"color":     "color",
}

type teacherRepository struct {
	baseRepository
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(exec core.DBExecutor) *teacherRepository {
	return &teacherRepository{baseRepository{exec: exec}}
}

func (repo teacherRepository) UpsertTeacher(ctx context.Context, t teacher.Teacher, exec ...core.DBExecutor) (teacher.Teacher, error) {
	exe := repo.getExec(exec)
	q := exe.Rebind(`INSERT INTO teachers (` + teacherColumns + `) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			color = excluded.color`)
	if _, err := exe.ExecContext(ctx, q, t.ID, t.FirstName, t.LastName, t.Color); err != nil {
		return teacher.Teacher{}, errors.Wrap(err, "upserting teacher")
	}
	return t, nil
}

func (repo teacherRepository) QueryTeachers(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]teacher.Teacher, error) {
	exe := repo.getExec(exec)
	q := "SELECT " + teacherColumns + " FROM teachers" +
		orderBy(ordering, teacherOrdering, "last_name ASC, first_name ASC")
	teachers := make([]teacher.Teacher, 0)
	if err := sqlxSelect(ctx, exe, &teachers, q); err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}
	return teachers, nil
}

func (repo teacherRepository) GetTeacher(ctx context.Context, id string, exec ...core.DBExecutor) (teacher.Teacher, error) {
	exe := repo.getExec(exec)
	var t teacher.Teacher
	q := exe.Rebind("SELECT " + teacherColumns + " FROM teachers WHERE id = ?")
	if err := sqlxGet(ctx, exe, &t, q, id); err != nil {
		return teacher.Teacher{}, trapNoRowsErr(err, teacher.ErrNotFound, "finding teacher")
	}
	return t, nil
}

func (repo teacherRepository) DeleteTeacher(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return deleteByID(ctx, repo.getExec(exec), "teachers", id, teacher.ErrNotFound)
}
