package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/scheduleme/backend/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleViewer  = "viewer"
)

var AllRoles = []string{RoleAdmin, RoleTeacher, RoleViewer}

type User struct {
	ID               string      `json:"id" db:"id"`
	Email            string      `json:"email" db:"email"`
	Role             string      `json:"role" db:"role"`
	TeacherID        null.String `json:"teacherId" db:"teacher_id"`
	TeacherFirstName null.String `json:"teacherFirstName" db:"teacher_first_name"`
	TeacherLastName  null.String `json:"teacherLastName" db:"teacher_last_name"`
	PasswordHash     string      `json:"-" db:"password_hash"`
	CreatedAt        time.Time   `json:"createdAt" db:"created_at"` // UTC
	LastLogin        null.Time   `json:"lastLogin" db:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	if u.PasswordHash == "" {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(pwd))
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NewUser contains information needed to create a User, or to update the one with the same email.
type NewUser struct {
	ID        string `json:"id"`
	Email     string `json:"email" validate:"required,email"`
	Role      string `json:"role" validate:"required,userrole"`
	TeacherID string `json:"teacherId"`
	Password  string `json:"password"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.ID = core.CleanString(nu.ID)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	nu.TeacherID = core.CleanString(nu.TeacherID)
	if nu.Role == "" {
		nu.Role = RoleViewer
	}
	return validate.Struct(nu)
}

// UpdateUser defines what information may be provided to modify an existing User.
// An empty teacherId unlinks the teacher.
type UpdateUser struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	Role      *string `json:"role" validate:"omitempty,userrole"`
	TeacherID *string `json:"teacherId"`
	Password  *string `json:"password"`

	// set by Validate
	email string
}

func (uu *UpdateUser) IsEmpty() bool {
	return uu.Email == nil && uu.Role == nil && uu.TeacherID == nil && uu.Password == nil
}

func (uu *UpdateUser) Validate(orig User, validate *validator.Validate) error {
	if uu.IsEmpty() {
		return core.NewValidationError(ErrNoFieldsToUpdate)
	}
	clean := func(s *string, lower bool) {
		if s != nil {
			*s = core.CleanString(*s, lower)
		}
	}
	clean(uu.Email, true)
	clean(uu.Role, true)
	clean(uu.TeacherID, false)

	uu.email = orig.Email
	if uu.Email != nil {
		uu.email = *uu.Email
	}
	return validate.Struct(uu)
}

type QueryFilter struct {
	Search string `query:"search"`
	Role   string `query:"role"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search, true /* lower */)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
