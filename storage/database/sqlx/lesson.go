package sqlxrepos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/scheduleme/backend/core"
	"github.com/scheduleme/backend/core/lesson"
)

const lessonColumns = "id, subject, grade, teacher_id, school_id, date, start_time, end_time, room, status, topic, notes"

var lessonOrdering = map[string]string{
	"id":        "id",
	"subject":   "subject",
	"grade":     "grade",
	"teacherId": "teacher_id",
	"schoolId":  "school_id",
	"date":      "date",
	"startTime": "start_time",
	"endTime":   "end_time",
	"room":      "room",
	"status":    "status",
}

type lessonRepository struct {
	baseRepository
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(exec core.DBExecutor) *lessonRepository {
	return &lessonRepository{baseRepository{exec: exec}}
}

func (repo lessonRepository) UpsertLesson(ctx context.Context, l lesson.Lesson, exec ...core.DBExecutor) (lesson.Lesson, error) {
	exe := repo.getExec(exec)
	q := exe.Rebind(`INSERT INTO lessons (` + lessonColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			subject = excluded.subject,
			grade = excluded.grade,
			teacher_id = excluded.teacher_id,
			school_id = excluded.school_id,
			date = excluded.date,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			room = excluded.room,
			status = excluded.status,
			topic = excluded.topic,
			notes = excluded.notes`)
	_, err := exe.ExecContext(ctx, q,
		l.ID, l.Subject, l.Grade, l.TeacherID, l.SchoolID, l.Date, l.StartTime, l.EndTime, l.Room, l.Status, l.Topic, l.Notes)
	if err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "upserting lesson")
	}
	return l, nil
}

func (repo lessonRepository) QueryLessons(ctx context.Context, filter *lesson.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]lesson.Lesson, error) {
	exe := repo.getExec(exec)

	var (
		where []string
		args  []interface{}
	)
	if filter != nil {
		if filter.DateFrom != "" {
			where = append(where, "date >= ?")
			args = append(args, filter.DateFrom)
		}
		if filter.DateTo != "" {
			where = append(where, "date <= ?")
			args = append(args, filter.DateTo)
		}
		if len(filter.Dates) > 0 {
			where = append(where, "date IN (?)")
			args = append(args, filter.Dates)
		}
		if filter.TeacherID != "" {
			where = append(where, "teacher_id = ?")
			args = append(args, filter.TeacherID)
		}
		if filter.SchoolID != "" {
			where = append(where, "school_id = ?")
			args = append(args, filter.SchoolID)
		}
		if filter.Status != "" {
			where = append(where, "status = ?")
			args = append(args, filter.Status)
		}
	}

	q := "SELECT " + lessonColumns + " FROM lessons"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += orderBy(ordering, lessonOrdering, "date ASC, start_time ASC")

	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "building lessons query")
	}
	lessons := make([]lesson.Lesson, 0)
	if err = sqlxSelect(ctx, exe, &lessons, exe.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	return lessons, nil
}

func (repo lessonRepository) GetLesson(ctx context.Context, id string, exec ...core.DBExecutor) (lesson.Lesson, error) {
	exe := repo.getExec(exec)
	var l lesson.Lesson
	if err := sqlxGet(ctx, exe, &l, exe.Rebind("SELECT "+lessonColumns+" FROM lessons WHERE id = ?"), id); err != nil {
		return lesson.Lesson{}, trapNoRowsErr(err, lesson.ErrNotFound, "finding lesson")
	}
	return l, nil
}

func (repo lessonRepository) DeleteLesson(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return deleteByID(ctx, repo.getExec(exec), "lessons", id, lesson.ErrNotFound)
}
