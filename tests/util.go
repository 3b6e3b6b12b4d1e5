package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/volatiletech/null/v8"

	"github.com/scheduleme/backend/core"
	"github.com/scheduleme/backend/core/lesson"
	"github.com/scheduleme/backend/core/school"
	"github.com/scheduleme/backend/core/teacher"
	"github.com/scheduleme/backend/core/user"
	"github.com/scheduleme/backend/storage/database"
)

// PrepareDB opens a fresh, migrated in-memory sqlite3 database, closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	goose.SetLogger(log.New(io.Discard, "", 0))

	db, err := database.Open(core.NewTestConfig())
	if err != nil {
		t.Fatalf("PrepareDB() failed to open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed to migrate: %v", err)
	}
	return db
}

func CreateTeacher(t *testing.T, repo teacher.Repository, firstName, lastName string) teacher.Teacher {
	t.Helper()
	tchr, err := repo.UpsertTeacher(context.Background(), teacher.Teacher{
		ID:        core.NewID(),
		FirstName: firstName,
		LastName:  lastName,
		Color:     teacher.DefaultColor,
	})
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return tchr
}

func CreateSchool(t *testing.T, repo school.Repository, name string, sortOrder int) school.School {
	t.Helper()
	sch, err := repo.UpsertSchool(context.Background(), school.School{
		ID:        core.NewID(),
		Name:      name,
		SortOrder: sortOrder,
	})
	if err != nil {
		t.Fatalf("CreateSchool() failed: %v", err)
	}
	return sch
}

// CreateLesson inserts an upcoming English lesson; room and grade may be empty.
func CreateLesson(
	t *testing.T,
	repo lesson.Repository,
	teacherID, schoolID, date, start, end string,
	room string,
	status ...string,
) lesson.Lesson {
	t.Helper()
	st := lesson.StatusUpcoming
	if len(status) > 0 {
		st = status[0]
	}
	l, err := repo.UpsertLesson(context.Background(), lesson.Lesson{
		ID:        core.NewID(),
		Subject:   lesson.DefaultSubject,
		Grade:     "5",
		TeacherID: teacherID,
		SchoolID:  schoolID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Room:      room,
		Status:    st,
	})
	if err != nil {
		t.Fatalf("CreateLesson() failed: %v", err)
	}
	return l
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	email, pwd, role string,
	teacherID string,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC().Truncate(time.Second)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        core.NewID(),
		Email:     email,
		Role:      role,
		TeacherID: null.NewString(teacherID, teacherID != ""),
		CreatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	// reload to pick the joined teacher names
	if usr, err = repo.GetUserByID(context.Background(), usr.ID); err != nil {
		t.Fatalf("CreateUser() failed to reload: %v", err)
	}
	return usr
}
