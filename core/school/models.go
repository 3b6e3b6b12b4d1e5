package school

import (
	"github.com/go-playground/validator/v10"

	"github.com/scheduleme/backend/core"
)

type School struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Address   string `json:"address" db:"address"`
	SortOrder int    `json:"sortOrder" db:"sort_order"`
}

// NewSchool contains information needed to create (or overwrite) a School.
type NewSchool struct {
	ID        string `json:"id"`
	Name      string `json:"name" validate:"required"`
	Address   string `json:"address"`
	SortOrder int    `json:"sortOrder"`
}

func (ns *NewSchool) Validate(validate *validator.Validate) error {
	ns.ID = core.CleanString(ns.ID)
	ns.Name = core.CleanString(ns.Name)
	ns.Address = core.CleanString(ns.Address)
	return validate.Struct(ns)
}

// UpdateSchool defines what information may be provided to modify an existing School.
type UpdateSchool struct {
	Name      *string `json:"name"`
	Address   *string `json:"address"`
	SortOrder *int    `json:"sortOrder"`
}

// Validate merges the provided fields into orig and validates the result.
func (us UpdateSchool) Validate(orig School, validate *validator.Validate) (NewSchool, error) {
	ns := NewSchool{
		ID:        orig.ID,
		Name:      orig.Name,
		Address:   orig.Address,
		SortOrder: orig.SortOrder,
	}
	if us.Name != nil {
		ns.Name = *us.Name
	}
	if us.Address != nil {
		ns.Address = *us.Address
	}
	if us.SortOrder != nil {
		ns.SortOrder = *us.SortOrder
	}
	return ns, ns.Validate(validate)
}
