package repository

import (
	"context"
	"errors"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	database "taskhive/internal/adapter/database/postgres"
	"taskhive/internal/core/domain"
	"taskhive/internal/core/port"
	"taskhive/pkg/tracing"
)

var userColumns = []string{
	"id", "uuid", "username", "email", "password_hash", "role", "active",
	"email_verified", "first_name", "last_name", "avatar", "timezone",
	"notifications", "theme", "last_active_at", "created_at", "updated_at",
	"deleted_at",
}

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) port.UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var data domain.User

	err := row.Scan(
		&data.ID,
		&data.UUID,
		&data.Username,
		&data.Email,
		&data.PasswordHash,
		&data.Role,
		&data.Active,
		&data.EmailVerified,
		&data.Profile.FirstName,
		&data.Profile.LastName,
		&data.Profile.Avatar,
		&data.Profile.Timezone,
		&data.Preferences.Notifications,
		&data.Preferences.Theme,
		&data.LastActiveAt,
		&data.CreatedAt,
		&data.UpdatedAt,
		&data.DeletedAt,
	)

	return data, err
}

func (ur *UserRepository) getBy(ctx context.Context, pred sq.Eq) (domain.User, error) {
	query := ur.db.QueryBuilder.Select(userColumns...).
		From("users").
		Where(pred).
		Limit(1)

	stmt, args, err := query.ToSql()

	if err != nil {
		return domain.User{}, err
	}

	data, err := scanUser(ur.db.QueryRow(ctx, stmt, args...))

	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.NotFound("user not found")
	}

	if err != nil {
		return domain.User{}, err
	}

	workspaces, err := ur.loadWorkspaces(ctx, data.UUID)

	if err != nil {
		return domain.User{}, err
	}

	data.Workspaces = workspaces

	return data, nil
}

func (ur *UserRepository) loadWorkspaces(ctx context.Context, userUUID uuid.UUID) ([]uuid.UUID, error) {
	stmt, args, err := ur.db.QueryBuilder.Select("workspace_uuid").
		From("workspace_members").
		Where(sq.Eq{"user_uuid": userUUID.String()}).
		OrderBy("joined_at ASC").
		ToSql()

	if err != nil {
		return nil, err
	}

	rows, err := ur.db.Query(ctx, stmt, args...)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var workspaces []uuid.UUID

	for rows.Next() {
		var id uuid.UUID

		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		workspaces = append(workspaces, id)
	}

	return workspaces, rows.Err()
}

func (ur *UserRepository) GetByUUID(ctx context.Context, uid uuid.UUID) (domain.User, error) {
	return ur.getBy(ctx, sq.Eq{"uuid": uid.String()})
}

func (ur *UserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return ur.getBy(ctx, sq.Eq{"email": email})
}

// CreateWithWorkspace runs the duplicate-email check and all three writes in
// one transaction. A failure at any step leaves no trace of either record.
func (ur *UserRepository) CreateWithWorkspace(ctx context.Context, user domain.User, workspace domain.Workspace) (domain.User, error) {
	var saved domain.User

	err := tracing.DatabaseSpanWrapper(ctx, "users", "create_with_workspace", func(ctx context.Context) error {
		tx, err := ur.db.Begin(ctx)

		if err != nil {
			return err
		}

		defer tx.Rollback(ctx)

		stmt, args, err := ur.db.QueryBuilder.Select("id").
			From("users").
			Where(sq.Eq{"email": user.Email}).
			ToSql()

		if err != nil {
			return err
		}

		var existing int
		err = tx.QueryRow(ctx, stmt, args...).Scan(&existing)

		if err == nil {
			return port.ErrDuplicateEmail
		}

		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		stmt, args, err = ur.db.QueryBuilder.Insert("users").
			Columns("uuid", "username", "email", "password_hash", "role", "active",
				"email_verified", "first_name", "last_name", "avatar", "timezone",
				"notifications", "theme", "last_active_at", "created_at", "updated_at").
			Values(user.UUID.String(), user.Username, user.Email, user.PasswordHash,
				user.Role, user.Active, user.EmailVerified, user.Profile.FirstName,
				user.Profile.LastName, user.Profile.Avatar, user.Profile.Timezone,
				user.Preferences.Notifications, user.Preferences.Theme,
				user.LastActiveAt, user.CreatedAt, user.UpdatedAt).
			Suffix("RETURNING id").
			ToSql()

		if err != nil {
			return err
		}

		if err := tx.QueryRow(ctx, stmt, args...).Scan(&user.ID); err != nil {
			// A racing registration can slip past the pre-check SELECT; the
			// unique index is the authority.
			if isUniqueViolation(err) {
				return port.ErrDuplicateEmail
			}
			return err
		}

		stmt, args, err = ur.db.QueryBuilder.Insert("workspaces").
			Columns("uuid", "name", "description", "owner_uuid", "private",
				"created_at", "updated_at").
			Values(workspace.UUID.String(), workspace.Name, workspace.Description,
				workspace.OwnerUUID.String(), workspace.Private,
				workspace.CreatedAt, workspace.UpdatedAt).
			ToSql()

		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, stmt, args...); err != nil {
			return err
		}

		stmt, args, err = ur.db.QueryBuilder.Insert("workspace_members").
			Columns("workspace_uuid", "user_uuid", "joined_at").
			Values(workspace.UUID.String(), user.UUID.String(), workspace.CreatedAt).
			ToSql()

		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, stmt, args...); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		user.Workspaces = []uuid.UUID{workspace.UUID}
		saved = user

		return nil
	})

	if err != nil {
		if !errors.Is(err, port.ErrDuplicateEmail) {
			slog.Error("error creating user with workspace", "error", err)
		}
		return domain.User{}, err
	}

	return saved, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (ur *UserRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	stmt, args, err := ur.db.QueryBuilder.Update("users").
		Set("username", user.Username).
		Set("email", user.Email).
		Set("password_hash", user.PasswordHash).
		Set("role", user.Role).
		Set("active", user.Active).
		Set("email_verified", user.EmailVerified).
		Set("first_name", user.Profile.FirstName).
		Set("last_name", user.Profile.LastName).
		Set("avatar", user.Profile.Avatar).
		Set("timezone", user.Profile.Timezone).
		Set("notifications", user.Preferences.Notifications).
		Set("theme", user.Preferences.Theme).
		Set("last_active_at", user.LastActiveAt).
		Set("updated_at", user.UpdatedAt).
		Where(sq.Eq{"uuid": user.UUID.String()}).
		ToSql()

	if err != nil {
		return domain.User{}, err
	}

	tag, err := ur.db.Exec(ctx, stmt, args...)

	if err != nil {
		slog.Error("error saving user", "error", err)
		return domain.User{}, err
	}

	if tag.RowsAffected() == 0 {
		return domain.User{}, domain.NotFound("user not found")
	}

	return user, nil
}
