package teacher

import (
	"github.com/go-playground/validator/v10"

	"github.com/scheduleme/backend/core"
)

const DefaultColor = "#6366f1"

type Teacher struct {
	ID        string `json:"id" db:"id"`
	FirstName string `json:"firstName" db:"first_name"`
	LastName  string `json:"lastName" db:"last_name"`
	Color     string `json:"color" db:"color"`
}

// FullName is how teachers are displayed on timetables & reports.
func (t Teacher) FullName() string {
	return core.CleanString(t.FirstName + " " + t.LastName)
}

// NewTeacher contains information needed to create (or overwrite) a Teacher.
type NewTeacher struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Color     string `json:"color" validate:"omitempty,hexcolor"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.ID = core.CleanString(nt.ID)
	nt.FirstName = core.CleanString(nt.FirstName)
	nt.LastName = core.CleanString(nt.LastName)
	nt.Color = core.CleanString(nt.Color, true /* lower */)
	if nt.Color == "" {
		nt.Color = DefaultColor
	}
	return validate.Struct(nt)
}

// UpdateTeacher defines what information may be provided to modify an existing Teacher.
type UpdateTeacher struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Color     *string `json:"color"`
}

// Validate merges the provided fields into orig and validates the result.
func (ut UpdateTeacher) Validate(orig Teacher, validate *validator.Validate) (NewTeacher, error) {
	nt := NewTeacher{
		ID:        orig.ID,
		FirstName: orig.FirstName,
		LastName:  orig.LastName,
		Color:     orig.Color,
	}
	if ut.FirstName != nil {
		nt.FirstName = *ut.FirstName
	}
	if ut.LastName != nil {
		nt.LastName = *ut.LastName
	}
	if ut.Color != nil {
		nt.Color = *ut.Color
	}
	return nt, nt.Validate(validate)
}
