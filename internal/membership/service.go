package membership

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"amicus.org/internal/auth"
	"amicus.org/internal/ids"
	"amicus.org/internal/obs"
)

const notifyTimeout = 5 * time.Second

// Service owns the registration -> pending -> active workflow and the
// session-facing operations around it. All invariants live here; the HTTP
// layer is a thin dispatcher on top.
type Service struct {
	store    Store
	tokens   *auth.TokenService
	notifier Notifier
	cache    StatsCache
	hashCost int
	now      func() time.Time

	// syncNotify makes notification dispatch synchronous; tests only.
	syncNotify bool
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithNotifier attaches the best-effort notifier.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// WithStatsCache attaches an optional member-stats cache.
func WithStatsCache(c StatsCache) ServiceOption {
	return func(s *Service) { s.cache = c }
}

// WithHashCost overrides the bcrypt work factor.
func WithHashCost(cost int) ServiceOption {
	return func(s *Service) {
		if cost > 0 {
			s.hashCost = cost
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the lifecycle service.
func NewService(store Store, tokens *auth.TokenService, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("membership: store is required")
	}
	if tokens == nil {
		return nil, errors.New("membership: token service is required")
	}
	svc := &Service{
		store:    store,
		tokens:   tokens,
		hashCost: auth.DefaultHashCost,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RegisterResult identifies the account pair created by Register.
type RegisterResult struct {
	UserID     string `json:"user_id"`
	MemberID   string `json:"member_id"`
	MemberCode string `json:"member_code"`
}

// Register creates a User and its pending Member profile atomically, then
// sends a best-effort welcome notification.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	email := normalizeEmail(input.Email)

	assoc, err := s.store.GetAssociation(ctx, strings.TrimSpace(input.AssociationID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidAssociation
		}
		return nil, err
	}
	if assoc.Status != AssociationActive {
		return nil, ErrInvalidAssociation
	}

	// Cheap pre-check; the unique index still catches concurrent registrations.
	if _, err := s.store.FindUserByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateAccount
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.hashCost)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &User{
		ID:            ids.New(),
		Email:         email,
		Name:          strings.TrimSpace(input.Name),
		PasswordHash:  hash,
		Role:          auth.RoleMember,
		AssociationID: assoc.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	member := &Member{
		ID:            ids.New(),
		UserID:        user.ID,
		AssociationID: assoc.ID,
		Code:          ids.MemberCode(assoc.Code),
		Status:        MemberPending,
		Name:          user.Name,
		Email:         email,
		Phone:         strings.TrimSpace(input.Phone),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateAccount(ctx, user, member); err != nil {
		return nil, err
	}

	s.dispatch(func(ctx context.Context) error {
		return s.notifier.SendWelcome(ctx, member, assoc)
	}, "welcome", member.ID)

	return &RegisterResult{UserID: user.ID, MemberID: member.ID, MemberCode: member.Code}, nil
}

// Session is the outcome of a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// Login verifies credentials and issues a session token. The association
// filter may be omitted only by super_admin accounts; every other mismatch or
// miss collapses into ErrInvalidCredentials so accounts cannot be enumerated.
func (s *Service) Login(ctx context.Context, input LoginInput) (*Session, error) {
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	user, err := s.store.FindUserByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	filter := strings.TrimSpace(input.AssociationID)
	switch {
	case filter != "":
		if user.AssociationID != filter {
			return nil, ErrInvalidCredentials
		}
	case user.Role != auth.RoleSuperAdmin:
		return nil, ErrInvalidCredentials
	}

	if user.Role != auth.RoleSuperAdmin {
		assoc, err := s.store.GetAssociation(ctx, user.AssociationID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, ErrInvalidCredentials
			}
			return nil, err
		}
		if assoc.Status != AssociationActive {
			return nil, ErrInvalidCredentials
		}
	}

	if !auth.VerifyPassword(user.PasswordHash, input.Password) {
		return nil, ErrInvalidCredentials
	}

	if user.Role == auth.RoleMember {
		member, err := s.store.GetMemberByUser(ctx, user.Actor(), user.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, ErrInvalidCredentials
			}
			return nil, err
		}
		if member.Status != MemberActive {
			return nil, ErrPendingApproval
		}
	}

	now := s.now().UTC()
	if err := s.store.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	token, expiresAt, err := s.tokens.Issue(user.Actor())
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Authenticate recovers verified claims from a bearer token. Validity is a
// pure function of signature and expiry; there is no session table to check.
func (s *Service) Authenticate(token string) (*auth.Claims, error) {
	return s.tokens.Verify(token)
}

// ChangePassword rotates a user's credential after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, actor auth.Actor, input ChangePasswordInput) error {
	if err := input.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	user, err := s.store.GetUser(ctx, input.UserID)
	if err != nil {
		return err
	}
	target := auth.Target{AssociationID: user.AssociationID, OwnerUserID: user.ID}
	if d := auth.Authorize(actor, auth.ActionChangePassword, target); !d.Allowed {
		return fmt.Errorf("%w: %s", ErrDenied, d.Reason)
	}
	if !auth.VerifyPassword(user.PasswordHash, input.CurrentPassword) {
		return ErrWrongPassword
	}
	hash, err := auth.HashPassword(input.NewPassword, s.hashCost)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, user.ID, hash)
}

// MemberPage is one page of association-scoped member listings.
type MemberPage struct {
	Items []*Member `json:"items"`
	Total int       `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

// ListMembers returns members visible to the actor. Non-super_admin callers
// are always pinned to their own association regardless of the filter.
func (s *Service) ListMembers(ctx context.Context, actor auth.Actor, filter MemberFilter) (*MemberPage, error) {
	if actor.Role != auth.RoleSuperAdmin {
		filter.AssociationID = actor.AssociationID
	}
	target := auth.Target{AssociationID: filter.AssociationID}
	if d := auth.Authorize(actor, auth.ActionListMembers, target); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrDenied, d.Reason)
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Status != "" {
		if _, ok := ParseMemberStatus(string(filter.Status)); !ok {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, filter.Status)
		}
	}
	items, total, err := s.store.ListMembers(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	return &MemberPage{Items: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// GetMember returns one member record; self-access or an administrative role
// in the member's association is required.
func (s *Service) GetMember(ctx context.Context, actor auth.Actor, memberID string) (*Member, error) {
	member, err := s.store.GetMember(ctx, actor, memberID)
	if err != nil {
		return nil, err
	}
	target := auth.Target{AssociationID: member.AssociationID, OwnerUserID: member.UserID}
	if d := auth.Authorize(actor, auth.ActionReadMember, target); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrDenied, d.Reason)
	}
	return member, nil
}

// ApproveMember transitions a pending member to active. Calling it again
// reports ErrAlreadyApproved; the row lock in the store guarantees the
// transition happens at most once even under concurrent approvals.
func (s *Service) ApproveMember(ctx context.Context, actor auth.Actor, memberID string) (*Member, error) {
	member, err := s.store.GetMember(ctx, actor, memberID)
	if err != nil {
		return nil, err
	}
	target := auth.Target{AssociationID: member.AssociationID, OwnerUserID: member.UserID}
	if d := auth.Authorize(actor, auth.ActionApproveMember, target); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrDenied, d.Reason)
	}
	switch member.Status {
	case MemberPending:
	case MemberActive:
		return nil, ErrAlreadyApproved
	default:
		return nil, fmt.Errorf("%w: cannot approve %s member", ErrStatusConflict, member.Status)
	}

	approved, err := s.store.TransitionMember(ctx, actor, memberID, MemberPending, MemberActive)
	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			// Lost the race against another approval.
			return nil, ErrAlreadyApproved
		}
		return nil, err
	}

	s.dispatch(func(ctx context.Context) error {
		assoc, err := s.store.GetAssociation(ctx, approved.AssociationID)
		if err != nil {
			return err
		}
		return s.notifier.SendApproval(ctx, approved, assoc)
	}, "approval", approved.ID)

	return approved, nil
}

// SetMemberStatus applies an administrative transition (deactivate,
// reactivate, suspend) subject to the workflow table.
func (s *Service) SetMemberStatus(ctx context.Context, actor auth.Actor, memberID string, to MemberStatus) (*Member, error) {
	if _, ok := ParseMemberStatus(string(to)); !ok {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, to)
	}
	member, err := s.store.GetMember(ctx, actor, memberID)
	if err != nil {
		return nil, err
	}
	target := auth.Target{AssociationID: member.AssociationID, OwnerUserID: member.UserID}
	if d := auth.Authorize(actor, auth.ActionSetMemberStatus, target); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrDenied, d.Reason)
	}
	if !CanTransition(member.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrStatusConflict, member.Status, to)
	}
	return s.store.TransitionMember(ctx, actor, memberID, member.Status, to)
}

// MemberStats returns per-status counts for one association, cached briefly
// when a cache is configured.
func (s *Service) MemberStats(ctx context.Context, actor auth.Actor, associationID string) (Stats, error) {
	if actor.Role != auth.RoleSuperAdmin {
		associationID = actor.AssociationID
	}
	if associationID == "" {
		return Stats{}, fmt.Errorf("%w: association_id is required", ErrValidation)
	}
	target := auth.Target{AssociationID: associationID}
	if d := auth.Authorize(actor, auth.ActionViewStats, target); !d.Allowed {
		return Stats{}, fmt.Errorf("%w: %s", ErrDenied, d.Reason)
	}
	if s.cache != nil {
		if stats, ok := s.cache.GetStats(ctx, associationID); ok {
			return stats, nil
		}
	}
	stats, err := s.store.MemberStats(ctx, actor, associationID)
	if err != nil {
		return Stats{}, err
	}
	if s.cache != nil {
		s.cache.SetStats(ctx, associationID, stats)
	}
	return stats, nil
}

// CreateAssociation provisions a new tenant. Reserved for super_admin.
func (s *Service) CreateAssociation(ctx context.Context, actor auth.Actor, name, code string) (*Association, error) {
	if d := auth.Authorize(actor, auth.ActionManageAssociations, auth.Target{}); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrDenied, d.Reason)
	}
	name = strings.TrimSpace(name)
	code = strings.ToUpper(strings.TrimSpace(code))
	if name == "" || code == "" {
		return nil, fmt.Errorf("%w: name and code are required", ErrValidation)
	}
	now := s.now().UTC()
	assoc := &Association{
		ID:        ids.New(),
		Name:      name,
		Code:      code,
		Status:    AssociationActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateAssociation(ctx, assoc); err != nil {
		return nil, err
	}
	return assoc, nil
}

// ListAssociations enumerates tenants. Reserved for super_admin.
func (s *Service) ListAssociations(ctx context.Context, actor auth.Actor) ([]*Association, error) {
	if d := auth.Authorize(actor, auth.ActionManageAssociations, auth.Target{}); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrDenied, d.Reason)
	}
	return s.store.ListAssociations(ctx)
}

// dispatch runs a notification outside the caller's transaction and request
// lifetime. Failures are logged and never reach the operation's outcome.
func (s *Service) dispatch(fn func(ctx context.Context) error, kind, memberID string) {
	if s.notifier == nil {
		return
	}
	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			obs.LogEvent(map[string]any{
				"ts":        time.Now().UTC().Format(time.RFC3339Nano),
				"level":     "warn",
				"msg":       "notification failed",
				"kind":      kind,
				"member_id": memberID,
				"error":     err.Error(),
			})
		}
	}
	if s.syncNotify {
		run()
		return
	}
	go run()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
