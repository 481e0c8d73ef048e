package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/examsurveil/backend/core"
)

// Roles
const (
	RoleProctor  = "proctor"
	RoleExaminee = "examinee"
)

var AllRoles = []string{RoleProctor, RoleExaminee}

type User struct {
	ID          int64       `json:"id" db:"id"`
	Email       string      `json:"username" db:"email"` // identity key, normalized
	Role        string      `json:"role" db:"role"`
	DisplayName null.String `json:"display_name" db:"display_name"`
	ClassName   null.String `json:"class_name" db:"class_name"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

func (u User) IsProctor() bool  { return u.Role == RoleProctor }
func (u User) IsExaminee() bool { return u.Role == RoleExaminee }

// Name returns the display name, falling back to the email.
func (u User) Name() string {
	if u.DisplayName.Valid && u.DisplayName.String != "" {
		return u.DisplayName.String
	}
	return u.Email
}

// clean enforces the model invariants before saving.
func (u *User) clean() {
	u.Email = core.CleanString(u.Email, true /* lower */)
	if u.IsProctor() {
		u.ClassName = null.String{}
	}
}

// Me is the minimal identity view of the current user.
type Me struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Profile is the self-service view of a User.
type Profile struct {
	Username    string      `json:"username"`
	Role        string      `json:"role"`
	DisplayName null.String `json:"display_name"`
	ClassName   null.String `json:"class_name"`
}

func (u User) Me() Me { return Me{Username: u.Email, Role: u.Role} }

func (u User) Profile() Profile {
	return Profile{
		Username:    u.Email,
		Role:        u.Role,
		DisplayName: u.DisplayName,
		ClassName:   u.ClassName,
	}
}

// ProfileUpdate defines what a User may change on their own profile.
type ProfileUpdate struct {
	DisplayName string `json:"display_name" validate:"notblank,max=255"`
	ClassName   string `json:"class_name" validate:"max=255"`
}

// Validate cleans the input; examinees must provide a class name.
func (pu *ProfileUpdate) Validate(validate *validator.Validate, role string) error {
	pu.DisplayName = core.CleanString(pu.DisplayName)
	pu.ClassName = core.CleanString(pu.ClassName)

	if err := validate.Struct(pu); err != nil {
		return err
	}
	if role == RoleExaminee && pu.ClassName == "" {
		return core.NewValidationError(errClassRequired, core.FieldError{Field: "class_name", Error: errClassRequired.Error()})
	}
	return nil
}

// Invitation contains information needed to invite a new User.
type Invitation struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Role  string `json:"role" validate:"required,role"`
}

func (inv *Invitation) Validate(validate *validator.Validate) error {
	inv.Email = core.CleanString(inv.Email, true /* lower */)
	inv.Role = core.CleanString(inv.Role, true /* lower */)
	return validate.Struct(inv)
}

// InvitationResult is returned once a User has been invited.
type InvitationResult struct {
	OK       bool   `json:"ok"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// UpdateUser defines what a proctor may change on any account.
// An empty ClassName clears it.
type UpdateUser struct {
	Role      *string `json:"role" validate:"omitempty,role"`
	ClassName *string `json:"class_name" validate:"omitempty,max=255"`
}

func (uu *UpdateUser) Validate(validate *validator.Validate) error {
	if uu.Role != nil {
		role := core.CleanString(*uu.Role, true /* lower */)
		uu.Role = &role
	}
	if uu.ClassName != nil {
		class := core.CleanString(*uu.ClassName)
		uu.ClassName = &class
	}
	return validate.Struct(uu)
}
