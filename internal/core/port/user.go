package port

import (
	"context"

	"github.com/google/uuid"

	"taskhive/internal/core/domain"
)

// ErrDuplicateEmail is returned by CreateWithWorkspace when the email is
// already registered; the check runs inside the same transaction as the
// writes so two concurrent registrations of one email cannot both commit.
var ErrDuplicateEmail = domain.Conflict("user already exists")

type UserRepository interface {
	GetByUUID(ctx context.Context, uid uuid.UUID) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	// CreateWithWorkspace persists the identity and its default workspace as
	// one atomic unit and attaches the workspace to the identity. Either all
	// three writes commit or none are observable.
	CreateWithWorkspace(ctx context.Context, user domain.User, workspace domain.Workspace) (domain.User, error)
	Save(ctx context.Context, user domain.User) (domain.User, error)
}
