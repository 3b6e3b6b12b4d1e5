package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/scheduleme/backend/core"
	"github.com/scheduleme/backend/core/user"
)

const userSelect = `SELECT u.id, u.email, u.role, u.teacher_id,
		t.first_name AS teacher_first_name, t.last_name AS teacher_last_name,
		u.password_hash, u.created_at, u.last_login
	FROM app_users u
	LEFT JOIN teachers t ON t.id = u.teacher_id`

var userOrdering = map[string]string{
	"id":        "u.id",
	"email":     "u.email",
	"role":      "u.role",
	"teacherId": "u.teacher_id",
	"createdAt": "u.created_at",
	"lastLogin": "u.last_login",
}

type userRepository struct {
	baseRepository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{baseRepository{exec: exec}}
}

// trapUniqueErr maps a violated unique email constraint to user.ErrEmailExists.
func trapUniqueErr(err error, msg string) error {
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "unique") || strings.Contains(s, "duplicate") {
		return core.NewValidationError(user.ErrEmailExists, core.FieldError{Field: "email", Error: user.ErrEmailExists.Error()})
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	exe := repo.getExec(exec)
	q := exe.Rebind(`INSERT INTO app_users (id, email, role, teacher_id, password_hash, created_at, last_login)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := exe.ExecContext(ctx, q,
		usr.ID, usr.Email, usr.Role, usr.TeacherID, usr.PasswordHash, usr.CreatedAt.UTC(), usr.LastLogin)
	if err != nil {
		return user.User{}, trapUniqueErr(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	exe := repo.getExec(exec)
	q := exe.Rebind(`UPDATE app_users SET email = ?, role = ?, teacher_id = ?, password_hash = ? WHERE id = ?`)
	res, err := exe.ExecContext(ctx, q, usr.Email, usr.Role, usr.TeacherID, usr.PasswordHash, usr.ID)
	if err != nil {
		return user.User{}, trapUniqueErr(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string, exec ...core.DBExecutor) (user.User, error) {
	exe := repo.getExec(exec)
	var usr user.User
	if err := sqlxGet(ctx, exe, &usr, exe.Rebind(userSelect+" WHERE u.id = ?"), id); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by ID")
	}
	return usr, nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (user.User, error) {
	exe := repo.getExec(exec)
	var usr user.User
	if err := sqlxGet(ctx, exe, &usr, exe.Rebind(userSelect+" WHERE u.email = ?"), email); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by email")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	exe := repo.getExec(exec)

	var (
		where []string
		args  []interface{}
	)
	if filter != nil {
		// users with email or teacher name matching the search keyword
		if filter.Search != "" {
			val := "%" + strings.ToLower(filter.Search) + "%"
			where = append(where, "(LOWER(u.email) LIKE ? OR LOWER(t.first_name) LIKE ? OR LOWER(t.last_name) LIKE ?)")
			args = append(args, val, val, val)
		}
		if filter.Role != "" {
			where = append(where, "u.role = ?")
			args = append(args, filter.Role)
		}
	}

	q := userSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += orderBy(ordering, userOrdering, "u.email ASC")

	users := make([]user.User, 0)
	if err := sqlxSelect(ctx, exe, &users, exe.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo userRepository) DeleteUser(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return deleteByID(ctx, repo.getExec(exec), "app_users", id, user.ErrNotFound)
}

func (repo userRepository) SetLastLogin(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	if _, err := exe.ExecContext(ctx, exe.Rebind("UPDATE app_users SET last_login = ? WHERE id = ?"), at.UTC(), id); err != nil {
		return errors.Wrap(err, "setting last login")
	}
	return nil
}
