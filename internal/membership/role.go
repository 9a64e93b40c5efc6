package membership

import "fmt"

// Permission is the strength of a team membership row. The team owner has no
// row and therefore no Permission.
type Permission int16

const (
	PermissionPending   Permission = 0
	PermissionMember    Permission = 1
	PermissionModerator Permission = 2
)

// Valid reports whether p can be stored in team_members
func (p Permission) Valid() bool {
	return p >= PermissionPending && p <= PermissionModerator
}

// Accepted reports whether the invitee has accepted the membership
func (p Permission) Accepted() bool {
	return p > PermissionPending
}

func (p Permission) String() string {
	switch p {
	case PermissionPending:
		return "pending"
	case PermissionMember:
		return "member"
	case PermissionModerator:
		return "moderator"
	default:
		return fmt.Sprintf("permission(%d)", int16(p))
	}
}

// Tier is a threshold a Role is checked against
type Tier int

const (
	TierMember Tier = iota + 1
	TierModerator
	TierOwner
)

// TierAdmin is the project-side name for the owner tier: the creator or the
// owner of the project's team.
const TierAdmin = TierOwner

func (t Tier) String() string {
	switch t {
	case TierMember:
		return "member"
	case TierModerator:
		return "moderator"
	case TierOwner:
		return "owner"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Role is either Owner or Membership(permission). The zero value is a
// pending membership.
type Role struct {
	owner      bool
	permission Permission
}

// OwnerRole is held by the team owner, or by a project's creator or team owner
func OwnerRole() Role {
	return Role{owner: true}
}

// MemberRole wraps a team_members row
func MemberRole(p Permission) Role {
	return Role{permission: p}
}

// IsOwner reports whether r is the owner variant
func (r Role) IsOwner() bool {
	return r.owner
}

// Permission returns the row permission; ok is false for the owner
func (r Role) Permission() (p Permission, ok bool) {
	if r.owner {
		return 0, false
	}
	return r.permission, true
}

// Satisfies reports whether r meets tier t. The owner check comes first
// because an owner has no membership row.
func (r Role) Satisfies(t Tier) bool {
	if r.owner {
		return true
	}
	switch t {
	case TierMember:
		return r.permission.Accepted()
	case TierModerator:
		return r.permission == PermissionModerator
	default:
		return false
	}
}

func (r Role) String() string {
	if r.owner {
		return "owner"
	}
	return r.permission.String()
}
