package projects

import (
	"time"
)

// OwnerType says whether a project belongs to its creator or to a team
type OwnerType string

const (
	OwnerUser OwnerType = "user"
	OwnerTeam OwnerType = "team"
)

// Project represents a project owned by a user or a team
type Project struct {
	ID          int64     `json:"project_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Open        bool      `json:"open"`
	OwnerType   OwnerType `json:"owner_type"`
	CreatorID   int64     `json:"creator_id"`
	TeamID      *int64    `json:"team_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewProject holds the fields of a project to create. A nil TeamID makes a
// user-owned project.
type NewProject struct {
	Name        string
	Description string
	TeamID      *int64
}

// CheckOwner enforces that team projects name a team and user projects do not
func CheckOwner(ownerType OwnerType, teamID *int64) error {
	switch ownerType {
	case OwnerTeam:
		if teamID == nil {
			return ErrInvalidOwner
		}
	case OwnerUser:
		if teamID != nil {
			return ErrInvalidOwner
		}
	default:
		return ErrInvalidOwner
	}
	return nil
}

// OwnerTypeFor derives the owner type from an optional team
func OwnerTypeFor(teamID *int64) OwnerType {
	if teamID == nil {
		return OwnerUser
	}
	return OwnerTeam
}
