package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Workspace struct {
	ID          int
	UUID        uuid.UUID
	Name        string `validate:"required,min=2,max=255"`
	Description string
	OwnerUUID   uuid.UUID
	Members     []uuid.UUID
	Private     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewDefaultWorkspace builds the workspace every self-registered user starts
// with. The owner is always the first member.
func NewDefaultWorkspace(owner *User) Workspace {
	now := time.Now()

	return Workspace{
		UUID:        uuid.New(),
		Name:        fmt.Sprintf("%s's Workspace", owner.Username),
		Description: fmt.Sprintf("Workspace created for %s", owner.Username),
		OwnerUUID:   owner.UUID,
		Members:     []uuid.UUID{owner.UUID},
		Private:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (w *Workspace) IsMember(userUUID uuid.UUID) bool {
	if w.OwnerUUID == userUUID {
		return true
	}

	for _, m := range w.Members {
		if m == userUUID {
			return true
		}
	}

	return false
}
