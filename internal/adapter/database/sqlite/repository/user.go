package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	database "taskhive/internal/adapter/database/sqlite"
	"taskhive/internal/core/domain"
	"taskhive/internal/core/port"
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

	data, err := scanUser(ur.db.QueryRowContext(ctx, stmt, args...))

	if errors.Is(err, sql.ErrNoRows) {
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

	rows, err := ur.db.QueryContext(ctx, stmt, args...)

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
// one transaction so a failure at any step leaves nothing behind.
func (ur *UserRepository) CreateWithWorkspace(ctx context.Context, user domain.User, workspace domain.Workspace) (domain.User, error) {
	tx, err := ur.db.BeginTx(ctx, nil)

	if err != nil {
		return domain.User{}, err
	}

	defer tx.Rollback()

	stmt, args, err := ur.db.QueryBuilder.Select("id").
		From("users").
		Where(sq.Eq{"email": user.Email}).
		ToSql()

	if err != nil {
		return domain.User{}, err
	}

	var existing int
	err = tx.QueryRowContext(ctx, stmt, args...).Scan(&existing)

	if err == nil {
		return domain.User{}, port.ErrDuplicateEmail
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, err
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
		ToSql()

	if err != nil {
		return domain.User{}, err
	}

	result, err := tx.ExecContext(ctx, stmt, args...)

	if err != nil {
		// A racing registration can slip past the pre-check SELECT; the
		// unique index is the authority.
		if isUniqueViolation(err) {
			return domain.User{}, port.ErrDuplicateEmail
		}
		slog.Error("error creating user", "error", err)
		return domain.User{}, err
	}

	id, err := result.LastInsertId()

	if err != nil {
		return domain.User{}, err
	}

	user.ID = int(id)

	stmt, args, err = ur.db.QueryBuilder.Insert("workspaces").
		Columns("uuid", "name", "description", "owner_uuid", "private",
			"created_at", "updated_at").
		Values(workspace.UUID.String(), workspace.Name, workspace.Description,
			workspace.OwnerUUID.String(), workspace.Private,
			workspace.CreatedAt, workspace.UpdatedAt).
		ToSql()

	if err != nil {
		return domain.User{}, err
	}

	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		slog.Error("error creating workspace", "error", err)
		return domain.User{}, err
	}

	stmt, args, err = ur.db.QueryBuilder.Insert("workspace_members").
		Columns("workspace_uuid", "user_uuid", "joined_at").
		Values(workspace.UUID.String(), user.UUID.String(), workspace.CreatedAt).
		ToSql()

	if err != nil {
		return domain.User{}, err
	}

	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return domain.User{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}

	user.Workspaces = []uuid.UUID{workspace.UUID}

	return user, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error

	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return false
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

	result, err := ur.db.ExecContext(ctx, stmt, args...)

	if err != nil {
		slog.Error("error saving user", "error", err)
		return domain.User{}, err
	}

	affected, err := result.RowsAffected()

	if err != nil {
		return domain.User{}, err
	}

	if affected == 0 {
		return domain.User{}, domain.NotFound("user not found")
	}

	return user, nil
}
