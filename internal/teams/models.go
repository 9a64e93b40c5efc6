package teams

import (
	"time"

	"github.com/aliuyar1234/taskboard/internal/membership"
	"github.com/aliuyar1234/taskboard/internal/users"
)

// Team is a stored team
type Team struct {
	ID        int64     `json:"team_id"`
	Name      string    `json:"name"`
	OwnerID   int64     `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary is a team as listed to one of its members
type Summary struct {
	ID           int64      `json:"team_id"`
	Name         string     `json:"name"`
	Owner        users.User `json:"owner"`
	MembersCount int        `json:"members_count"`
}

// Member is one participant of a team. The owner is reported first with no
// permission.
type Member struct {
	users.User
	Role       string                 `json:"role"`
	Permission *membership.Permission `json:"permission"`
}

// MembershipRow is a team_members row as returned by mutations
type MembershipRow struct {
	TeamID     int64                 `json:"team_id"`
	UserID     int64                 `json:"user_id"`
	Permission membership.Permission `json:"permission"`
}

// DeleteResult reports what deleting a team detached
type DeleteResult struct {
	TeamID           int64 `json:"team_id"`
	ProjectsDetached int64 `json:"projects_detached"`
	MembersRemoved   int64 `json:"members_removed"`
}
