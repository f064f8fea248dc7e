package membership

import "errors"

var (
	// ErrValidation marks malformed input, surfaced verbatim and recoverable
	// by resubmission.
	ErrValidation = errors.New("membership: invalid input")

	// ErrInvalidCredentials is deliberately generic. It covers unknown email,
	// wrong password and wrong association alike so accounts cannot be
	// enumerated.
	ErrInvalidCredentials = errors.New("membership: invalid credentials")

	// ErrPendingApproval means the credentials were valid but the member has
	// not been approved yet. Distinct from ErrInvalidCredentials on purpose:
	// the account is real, just not usable.
	ErrPendingApproval = errors.New("membership: account pending approval")

	// ErrDenied means the caller is authenticated but not permitted.
	ErrDenied = errors.New("membership: operation not permitted")

	ErrDuplicateAccount   = errors.New("membership: email already registered")
	ErrDuplicateCode      = errors.New("membership: association code already in use")
	ErrInvalidAssociation = errors.New("membership: association unavailable")
	ErrAlreadyApproved    = errors.New("membership: member already approved")
	ErrStatusConflict     = errors.New("membership: illegal status transition")
	ErrWrongPassword      = errors.New("membership: current password is incorrect")
	ErrNotFound           = errors.New("membership: not found")

	// ErrResourceExhausted surfaces connection pool exhaustion or acquisition
	// timeouts as an explicit failure instead of unbounded latency.
	ErrResourceExhausted = errors.New("membership: resources exhausted")
)
