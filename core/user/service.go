package user

import (
	"context"
	"errors"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/scheduleme/backend/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrNoFieldsToUpdate   = errors.New("no valid fields to update")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDeleteDefaultAdmin = errors.New("cannot delete default admin user")
	ErrChangeAdminEmail   = errors.New("cannot change email of default admin user")
	ErrDemoteDefaultAdmin = errors.New("default admin user must keep the admin role")
	errNoTeacher          = "teacher not found"
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		// UpdateUser saves email, role, teacher_id & password_hash.
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUserByID(ctx context.Context, id string, exec ...core.DBExecutor) (User, error)
		GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on the email or the linked teacher's name.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		DeleteUser(ctx context.Context, id string, exec ...core.DBExecutor) error
		SetLastLogin(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) error
	}

	TeacherChecker interface {
		Exists(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error)
	}

	Service struct {
		repo              Repository
		teachers          TeacherChecker
		defaultAdminEmail string

		NowFunc func() time.Time
	}
)

func NewService(repo Repository, teachers TeacherChecker, conf *core.Config) *Service {
	return &Service{
		repo:              repo,
		teachers:          teachers,
		defaultAdminEmail: conf.DefaultAdminEmail,
		NowFunc:           time.Now,
	}
}

func (svc *Service) now() time.Time {
	return svc.NowFunc().UTC().Truncate(time.Second)
}

func (svc *Service) IsDefaultAdmin(usr User) bool {
	return svc.defaultAdminEmail != "" && usr.Email == svc.defaultAdminEmail
}

func (svc *Service) checkTeacher(ctx context.Context, teacherID string) error {
	if teacherID == "" {
		return nil
	}
	ok, err := svc.teachers.Exists(ctx, teacherID)
	if err != nil {
		return err
	}
	if !ok {
		return core.NewFieldValidationError("teacherId", errNoTeacher)
	}
	return nil
}

// Create inserts a new User, or updates the role, teacher & password of the user with the same email.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := svc.checkTeacher(ctx, nu.TeacherID); err != nil {
		return User{}, err
	}

	usr, err := svc.repo.GetUserByEmail(ctx, nu.Email)
	switch {
	case err == nil:
		if svc.IsDefaultAdmin(usr) && nu.Role != RoleAdmin {
			return User{}, core.NewValidationError(ErrDemoteDefaultAdmin, core.FieldError{Field: "role", Error: ErrDemoteDefaultAdmin.Error()})
		}
		usr.Role = nu.Role
		usr.TeacherID = null.NewString(nu.TeacherID, nu.TeacherID != "")
		if nu.Password != "" {
			if err = usr.SetPassword(nu.Password); err != nil {
				return User{}, err
			}
		}
		if _, err = svc.repo.UpdateUser(ctx, usr); err != nil {
			return User{}, err
		}
		return svc.repo.GetUserByID(ctx, usr.ID)

	case errors.Is(err, ErrNotFound):
		id := nu.ID
		if id == "" {
			id = core.NewID()
		}
		usr = User{
			ID:        id,
			Email:     nu.Email,
			Role:      nu.Role,
			TeacherID: null.NewString(nu.TeacherID, nu.TeacherID != ""),
			CreatedAt: svc.now(),
		}
		if nu.Password != "" {
			if err = usr.SetPassword(nu.Password); err != nil {
				return User{}, err
			}
		}
		if _, err = svc.repo.CreateUser(ctx, usr); err != nil {
			return User{}, err
		}
		return svc.repo.GetUserByID(ctx, usr.ID)

	default:
		return User{}, err
	}
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// Update applies the (validated) changes in uu to the user with the given id.
func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	if uu.Email != nil && *uu.Email != usr.Email {
		if svc.IsDefaultAdmin(usr) {
			return User{}, core.NewValidationError(ErrChangeAdminEmail, core.FieldError{Field: "email", Error: ErrChangeAdminEmail.Error()})
		}
		other, err := svc.repo.GetUserByEmail(ctx, *uu.Email)
		if err == nil && other.ID != usr.ID {
			return User{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			return User{}, err
		}
		usr.Email = *uu.Email
	}
	if uu.Role != nil {
		if svc.IsDefaultAdmin(usr) && *uu.Role != RoleAdmin {
			return User{}, core.NewValidationError(ErrDemoteDefaultAdmin, core.FieldError{Field: "role", Error: ErrDemoteDefaultAdmin.Error()})
		}
		usr.Role = *uu.Role
	}
	if uu.TeacherID != nil {
		if err = svc.checkTeacher(ctx, *uu.TeacherID); err != nil {
			return User{}, err
		}
		usr.TeacherID = null.NewString(*uu.TeacherID, *uu.TeacherID != "")
	}
	if uu.Password != nil {
		if err = usr.SetPassword(*uu.Password); err != nil {
			return User{}, err
		}
	}

	if _, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return User{}, err
	}
	return svc.repo.GetUserByID(ctx, usr.ID)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if svc.IsDefaultAdmin(usr) {
		return core.NewValidationError(ErrDeleteDefaultAdmin)
	}
	return svc.repo.DeleteUser(ctx, id)
}

// EnsureDefaultAdmin creates the default admin user (without a password) when missing,
// and restores its admin role when it was lost.
func (svc *Service) EnsureDefaultAdmin(ctx context.Context) (User, error) {
	if svc.defaultAdminEmail == "" {
		return User{}, nil
	}
	usr, err := svc.repo.GetUserByEmail(ctx, svc.defaultAdminEmail)
	switch {
	case err == nil:
		if usr.Role == RoleAdmin {
			return usr, nil
		}
		usr.Role = RoleAdmin
		return svc.repo.UpdateUser(ctx, usr)
	case errors.Is(err, ErrNotFound):
		return svc.repo.CreateUser(ctx, User{
			ID:        core.NewID(),
			Email:     svc.defaultAdminEmail,
			Role:      RoleAdmin,
			CreatedAt: svc.now(),
		})
	default:
		return User{}, err
	}
}

// Authenticate checks the credentials and records the login time.
// Users without a password cannot log in.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if err = svc.SetLastLogin(ctx, &usr); err != nil {
		return User{}, err
	}
	return usr, nil
}

func (svc *Service) SetLastLogin(ctx context.Context, usr *User) error {
	now := svc.now()
	if err := svc.repo.SetLastLogin(ctx, usr.ID, now); err != nil {
		return err
	}
	usr.LastLogin = null.TimeFrom(now)
	return nil
}
