package membership

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// RegisterInput is the already-decoded registration payload.
type RegisterInput struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Phone         string `json:"phone"`
	AssociationID string `json:"association_id"`
}

// Validate enforces field constraints before any storage work happens.
func (r RegisterInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 254), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 128)),
		validation.Field(&r.Phone, validation.Length(7, 15), is.Digit),
		validation.Field(&r.AssociationID, validation.Required),
	)
}

// LoginInput is the already-decoded login payload. AssociationID is optional;
// only super_admin accounts may omit it.
type LoginInput struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	AssociationID string `json:"association_id"`
}

// Validate enforces field constraints on a login attempt.
func (l LoginInput) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Email, validation.Required, is.Email),
		validation.Field(&l.Password, validation.Required),
	)
}

// ChangePasswordInput carries a password rotation request.
type ChangePasswordInput struct {
	UserID          string `json:"-"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Validate enforces the same password policy as registration.
func (c ChangePasswordInput) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.CurrentPassword, validation.Required),
		validation.Field(&c.NewPassword, validation.Required, validation.Length(8, 128)),
	)
}
