package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"taskhive/internal/core/domain"
	"taskhive/internal/core/port"
)

// UserRepository is a map-backed implementation used by service tests. The
// mutex gives CreateWithWorkspace the same all-or-nothing visibility as a
// database transaction.
type UserRepository struct {
	mu         sync.Mutex
	users      map[uuid.UUID]domain.User
	emails     map[string]uuid.UUID
	workspaces map[uuid.UUID]domain.Workspace

	// WorkspaceHook, when set, runs between the identity and workspace
	// writes; returning an error aborts the unit, leaving no user behind.
	WorkspaceHook func(workspace domain.Workspace) error
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:      make(map[uuid.UUID]domain.User),
		emails:     make(map[string]uuid.UUID),
		workspaces: make(map[uuid.UUID]domain.Workspace),
	}
}

func (ur *UserRepository) GetByUUID(ctx context.Context, uid uuid.UUID) (domain.User, error) {
	ur.mu.Lock()
	defer ur.mu.Unlock()

	user, ok := ur.users[uid]

	if !ok {
		return domain.User{}, domain.NotFound("user not found")
	}

	return user, nil
}

func (ur *UserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	ur.mu.Lock()
	defer ur.mu.Unlock()

	uid, ok := ur.emails[email]

	if !ok {
		return domain.User{}, domain.NotFound("user not found")
	}

	return ur.users[uid], nil
}

func (ur *UserRepository) CreateWithWorkspace(ctx context.Context, user domain.User, workspace domain.Workspace) (domain.User, error) {
	ur.mu.Lock()
	defer ur.mu.Unlock()

	if _, exists := ur.emails[user.Email]; exists {
		return domain.User{}, port.ErrDuplicateEmail
	}

	if ur.WorkspaceHook != nil {
		if err := ur.WorkspaceHook(workspace); err != nil {
			return domain.User{}, err
		}
	}

	user.ID = len(ur.users) + 1
	user.Workspaces = []uuid.UUID{workspace.UUID}

	ur.users[user.UUID] = user
	ur.emails[user.Email] = user.UUID
	ur.workspaces[workspace.UUID] = workspace

	return user, nil
}

func (ur *UserRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	ur.mu.Lock()
	defer ur.mu.Unlock()

	existing, ok := ur.users[user.UUID]

	if !ok {
		return domain.User{}, domain.NotFound("user not found")
	}

	if existing.Email != user.Email {
		delete(ur.emails, existing.Email)
		ur.emails[user.Email] = user.UUID
	}

	ur.users[user.UUID] = user

	return user, nil
}

// GetWorkspace exposes stored workspaces to tests.
func (ur *UserRepository) GetWorkspace(uid uuid.UUID) (domain.Workspace, bool) {
	ur.mu.Lock()
	defer ur.mu.Unlock()

	ws, ok := ur.workspaces[uid]
	return ws, ok
}
