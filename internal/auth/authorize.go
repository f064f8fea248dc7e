package auth

// Action identifies an operation subject to access control.
type Action string

const (
	ActionListMembers        Action = "members.list"
	ActionApproveMember      Action = "member.approve"
	ActionSetMemberStatus    Action = "member.set_status"
	ActionReadMember         Action = "member.read"
	ActionUpdateMember       Action = "member.update"
	ActionChangePassword     Action = "user.change_password"
	ActionViewStats          Action = "members.stats"
	ActionManageAssociations Action = "associations.manage"
)

// Target describes the resource an action operates on. AssociationID is empty
// for tenant-less resources; OwnerUserID is the user owning the record, when
// the resource belongs to one.
type Target struct {
	AssociationID string
	OwnerUserID   string
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// superOnly actions cross tenant boundaries and are reserved for rule 1.
var superOnly = map[Action]bool{
	ActionManageAssociations: true,
}

// roleGated actions require an administrative role within the target
// association. Reading and updating member records is gated too; the
// self-access exception below is checked first so it is never masked.
var roleGated = map[Action]bool{
	ActionListMembers:     true,
	ActionApproveMember:   true,
	ActionSetMemberStatus: true,
	ActionReadMember:      true,
	ActionUpdateMember:    true,
	ActionViewStats:       true,
}

// selfService actions are always permitted on the caller's own records.
var selfService = map[Action]bool{
	ActionReadMember:     true,
	ActionUpdateMember:   true,
	ActionChangePassword: true,
}

// Authorize decides whether the actor may perform action on target. It is a
// pure function over one ordered rule table; the first matching rule wins:
//
//  1. super_admin may do anything, in any association.
//  2. association mismatch denies, even for admins.
//  3. tenant management is reserved for super_admin.
//  4. the caller may always read/update their own records.
//  5. role-gated actions require an administrator.
//  6. default deny.
func Authorize(actor Actor, action Action, target Target) Decision {
	if actor.Role == RoleSuperAdmin {
		return allow()
	}
	if actor.Zero() {
		return deny("unauthenticated")
	}
	if target.AssociationID != "" && target.AssociationID != actor.AssociationID {
		return deny("association mismatch")
	}
	if superOnly[action] {
		return deny("requires super administrator role")
	}
	if selfService[action] && target.OwnerUserID != "" && target.OwnerUserID == actor.UserID {
		return allow()
	}
	if roleGated[action] {
		if actor.Role == RoleAdmin {
			return allow()
		}
		return deny("requires administrator role")
	}
	return deny("not permitted")
}
