package membership

import (
	"context"
	"time"

	"amicus.org/internal/auth"
)

// MemberFilter narrows ListMembers results. AssociationID is forced to the
// caller's association for non-super_admin actors before the store sees it.
type MemberFilter struct {
	AssociationID string
	Status        MemberStatus
	Search        string
	Page          int
	Limit         int
}

// Store is the tenant-scoped data gateway contract. Methods taking an
// auth.Actor bind that identity to the underlying connection for the duration
// of the operation, so storage-level row-visibility policies can act as a
// second line of defense behind Authorize. Implementations must run every
// multi-statement mutation inside one transaction and be safe for concurrent
// use.
type Store interface {
	CreateAssociation(ctx context.Context, assoc *Association) error
	GetAssociation(ctx context.Context, id string) (*Association, error)
	ListAssociations(ctx context.Context) ([]*Association, error)

	// FindUserByEmail matches case-insensitively. Pre-session lookup: no actor.
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)

	// CreateAccount inserts the User and its Member profile atomically.
	// Either both rows exist afterwards or neither does.
	CreateAccount(ctx context.Context, user *User, member *Member) error

	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	GetMember(ctx context.Context, actor auth.Actor, memberID string) (*Member, error)
	GetMemberByUser(ctx context.Context, actor auth.Actor, userID string) (*Member, error)
	ListMembers(ctx context.Context, actor auth.Actor, filter MemberFilter) ([]*Member, int, error)

	// TransitionMember moves a member from one workflow status to another,
	// holding a row lock so concurrent calls never double-transition. It
	// returns ErrStatusConflict when the member is no longer in `from`.
	TransitionMember(ctx context.Context, actor auth.Actor, memberID string, from, to MemberStatus) (*Member, error)

	MemberStats(ctx context.Context, actor auth.Actor, associationID string) (Stats, error)
}

// Notifier delivers best-effort notifications. Failures are logged by the
// caller and never fail the operation they are attached to.
type Notifier interface {
	SendWelcome(ctx context.Context, member *Member, assoc *Association) error
	SendApproval(ctx context.Context, member *Member, assoc *Association) error
}

// StatsCache is an optional read-through cache for MemberStats.
type StatsCache interface {
	GetStats(ctx context.Context, associationID string) (Stats, bool)
	SetStats(ctx context.Context, associationID string, stats Stats)
}
