package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	sqlite "taskhive/internal/adapter/database/sqlite"
	"taskhive/internal/core/domain"
	"taskhive/internal/core/port"
	"taskhive/pkg/test"
	"taskhive/pkg/test/factory"
)

type UserRepositorySuite struct {
	suite.Suite
	db   *sqlite.DB
	repo port.UserRepository
}

func (s *UserRepositorySuite) SetupTest() {
	s.db = test.InitTestDB()
	s.repo = NewUserRepository(s.db)
}

func (s *UserRepositorySuite) TearDownTest() {
	test.TeardownTestDB(s.T(), s.db)
}

func TestUserRepositorySuite(t *testing.T) {
	suite.Run(t, new(UserRepositorySuite))
}

func testUser(email string) domain.User {
	now := time.Now().UTC().Truncate(time.Second)

	return factory.NewUser[domain.User](map[string]any{
		"UUID":         uuid.New(),
		"Username":     "user-" + email,
		"Email":        email,
		"Role":         domain.Member,
		"Active":       true,
		"Preferences":  domain.DefaultPreferences(),
		"LastActiveAt": now,
		"CreatedAt":    now,
		"UpdatedAt":    now,
	})
}

func (s *UserRepositorySuite) createUser(email string) domain.User {
	user := testUser(email)
	workspace := domain.NewDefaultWorkspace(&user)

	created, err := s.repo.CreateWithWorkspace(context.Background(), user, workspace)
	assert.NoError(s.T(), err)

	return created
}

func (s *UserRepositorySuite) TestCreateWithWorkspace() {
	ctx := context.Background()

	user := testUser("alice@example.com")
	workspace := domain.NewDefaultWorkspace(&user)

	created, err := s.repo.CreateWithWorkspace(ctx, user, workspace)

	assert.NoError(s.T(), err)
	assert.NotZero(s.T(), created.ID)
	assert.Equal(s.T(), []uuid.UUID{workspace.UUID}, created.Workspaces)
}

func (s *UserRepositorySuite) TestGetByUUID() {
	ctx := context.Background()

	created := s.createUser("alice@example.com")

	found, err := s.repo.GetByUUID(ctx, created.UUID)

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), created.Email, found.Email)
	assert.Equal(s.T(), created.Workspaces, found.Workspaces)
	assert.Nil(s.T(), found.EmailVerified)
	assert.Nil(s.T(), found.DeletedAt)
}

func (s *UserRepositorySuite) TestGetByUUIDNotFound() {
	_, err := s.repo.GetByUUID(context.Background(), uuid.New())

	assert.True(s.T(), domain.IsKind(err, domain.KindNotFound))
}

func (s *UserRepositorySuite) TestGetByEmail() {
	ctx := context.Background()

	created := s.createUser("alice@example.com")

	found, err := s.repo.GetByEmail(ctx, "alice@example.com")

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), created.UUID, found.UUID)
}

func (s *UserRepositorySuite) TestDuplicateEmailRejected() {
	ctx := context.Background()

	s.createUser("alice@example.com")

	dup := testUser("alice@example.com")
	workspace := domain.NewDefaultWorkspace(&dup)

	_, err := s.repo.CreateWithWorkspace(ctx, dup, workspace)

	assert.ErrorIs(s.T(), err, port.ErrDuplicateEmail)
	assert.True(s.T(), domain.IsKind(err, domain.KindConflict))
}

func (s *UserRepositorySuite) TestDuplicateUsernameMapsToConflict() {
	ctx := context.Background()

	first := s.createUser("alice@example.com")

	// Different email, same username: only the unique index catches this one.
	dup := testUser("alice2@example.com")
	dup.Username = first.Username
	workspace := domain.NewDefaultWorkspace(&dup)

	_, err := s.repo.CreateWithWorkspace(ctx, dup, workspace)

	assert.ErrorIs(s.T(), err, port.ErrDuplicateEmail)
}

func (s *UserRepositorySuite) TestCreateIsAtomic() {
	ctx := context.Background()

	user := testUser("alice@example.com")
	workspace := domain.NewDefaultWorkspace(&user)

	// Occupy the workspace uuid so the second insert of the unit fails.
	_, err := s.db.Exec(
		"INSERT INTO workspaces (uuid, name, description, owner_uuid, private, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		workspace.UUID.String(), "squatter", "", uuid.NewString(), true, time.Now(), time.Now(),
	)
	assert.NoError(s.T(), err)

	_, err = s.repo.CreateWithWorkspace(ctx, user, workspace)
	assert.Error(s.T(), err)

	// The rolled-back unit must not leave the identity behind.
	_, err = s.repo.GetByEmail(ctx, "alice@example.com")
	assert.True(s.T(), domain.IsKind(err, domain.KindNotFound))
}

func (s *UserRepositorySuite) TestSave() {
	ctx := context.Background()

	created := s.createUser("alice@example.com")

	verified := true
	created.EmailVerified = &verified
	created.Profile.FirstName = "Alice"
	created.Preferences.Theme = "dark"
	created.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	_, err := s.repo.Save(ctx, created)
	assert.NoError(s.T(), err)

	found, err := s.repo.GetByUUID(ctx, created.UUID)
	assert.NoError(s.T(), err)
	assert.NotNil(s.T(), found.EmailVerified)
	assert.True(s.T(), *found.EmailVerified)
	assert.Equal(s.T(), "Alice", found.Profile.FirstName)
	assert.Equal(s.T(), "dark", found.Preferences.Theme)
}

func (s *UserRepositorySuite) TestSaveUnknownUser() {
	user := testUser("ghost@example.com")

	_, err := s.repo.Save(context.Background(), user)

	assert.True(s.T(), domain.IsKind(err, domain.KindNotFound))
}

// TestConcurrentDuplicateEmail needs real cross-connection locking, so it runs
// on a file-backed database instead of the suite's in-memory one.
func TestConcurrentDuplicateEmail(t *testing.T) {
	db := test.InitFileTestDB(t)
	defer db.Close()

	repo := NewUserRepository(db)

	for i := 0; i < 5; i++ {
		email := fmt.Sprintf("alice%d@example.com", i)

		first := testUser(email)
		second := testUser(email)
		second.Username = "rival-" + email

		errs := make(chan error, 2)

		for _, user := range []domain.User{first, second} {
			user := user
			go func() {
				_, err := repo.CreateWithWorkspace(context.Background(), user, domain.NewDefaultWorkspace(&user))
				errs <- err
			}()
		}

		var failures []error

		for j := 0; j < 2; j++ {
			if err := <-errs; err != nil {
				failures = append(failures, err)
			}
		}

		// Exactly one registration wins; the loser sees a conflict, never a
		// raw driver error.
		assert.Len(t, failures, 1)
		assert.True(t, domain.IsKind(failures[0], domain.KindConflict), "loser error: %v", failures[0])
	}
}

func (s *UserRepositorySuite) TestWorkspacesOrderedByJoin() {
	ctx := context.Background()

	created := s.createUser("alice@example.com")

	second := uuid.New()
	_, err := s.db.Exec(
		"INSERT INTO workspaces (uuid, name, description, owner_uuid, private, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		second.String(), "Shared", "", uuid.NewString(), false, time.Now(), time.Now(),
	)
	assert.NoError(s.T(), err)

	_, err = s.db.Exec(
		"INSERT INTO workspace_members (workspace_uuid, user_uuid, joined_at) VALUES (?, ?, ?)",
		second.String(), created.UUID.String(), time.Now().Add(time.Hour),
	)
	assert.NoError(s.T(), err)

	found, err := s.repo.GetByUUID(ctx, created.UUID)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), []uuid.UUID{created.Workspaces[0], second}, found.Workspaces)
}
