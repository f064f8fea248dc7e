package membership

import (
	"time"

	"amicus.org/internal/auth"
)

// AssociationStatus gates whether a tenant accepts registrations and logins.
type AssociationStatus string

const (
	AssociationActive   AssociationStatus = "active"
	AssociationInactive AssociationStatus = "inactive"
)

// Association is the tenant boundary. Its identifier is immutable once
// created.
type Association struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Code      string            `json:"code"`
	Status    AssociationStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// User is the identity record. Email uniqueness is global and
// case-insensitive, not per association. AssociationID is empty only for
// super_admin accounts.
type User struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	PasswordHash  string     `json:"-"`
	Role          auth.Role  `json:"role"`
	AssociationID string     `json:"association_id,omitempty"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Actor converts the stored identity into the security context used for
// authorization and tenant scoping.
func (u *User) Actor() auth.Actor {
	return auth.Actor{
		UserID:        u.ID,
		Email:         u.Email,
		Role:          u.Role,
		AssociationID: u.AssociationID,
	}
}

// MemberStatus is the approval-workflow state of a member profile.
type MemberStatus string

const (
	MemberPending   MemberStatus = "pending"
	MemberActive    MemberStatus = "active"
	MemberInactive  MemberStatus = "inactive"
	MemberSuspended MemberStatus = "suspended"
)

// ParseMemberStatus normalizes a raw status value.
func ParseMemberStatus(raw string) (MemberStatus, bool) {
	switch MemberStatus(raw) {
	case MemberPending, MemberActive, MemberInactive, MemberSuspended:
		return MemberStatus(raw), true
	default:
		return "", false
	}
}

// memberTransitions encodes the legal workflow edges:
// pending->active, active<->inactive, active|inactive->suspended.
var memberTransitions = map[MemberStatus][]MemberStatus{
	MemberPending:  {MemberActive},
	MemberActive:   {MemberInactive, MemberSuspended},
	MemberInactive: {MemberActive, MemberSuspended},
}

// CanTransition reports whether the workflow permits moving from one member
// status to another.
func CanTransition(from, to MemberStatus) bool {
	for _, next := range memberTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Member is the per-tenant profile record, tied 1:1 to a User in the same
// association.
type Member struct {
	ID            string       `json:"id"`
	UserID        string       `json:"user_id"`
	AssociationID string       `json:"association_id"`
	Code          string       `json:"code"`
	Status        MemberStatus `json:"status"`
	Name          string       `json:"name"`
	Email         string       `json:"email"`
	Phone         string       `json:"phone,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Stats are per-status member counts for one association.
type Stats struct {
	Pending   int `json:"pending"`
	Active    int `json:"active"`
	Inactive  int `json:"inactive"`
	Suspended int `json:"suspended"`
	Total     int `json:"total"`
}
