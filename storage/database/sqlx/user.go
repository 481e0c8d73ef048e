package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/examsurveil/backend/core"
	"github.com/examsurveil/backend/core/user"
)

const userColumns = "id, email, role, display_name, class_name, created_at, updated_at"

// userOrderingFields maps the public ordering names to columns.
var userOrderingFields = map[string]string{
	"id":         "id",
	"username":   "email",
	"email":      "email",
	"role":       "role",
	"created_at": "created_at",
}

type userRepository struct {
	baseRepository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{baseRepository{exec: exec}}
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	q := `INSERT INTO users (email, role, display_name, class_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING ` + userColumns

	var created user.User
	err := repo.getExec(exec).QueryRowxContext(
		ctx, q, usr.Email, usr.Role, usr.DisplayName, usr.ClassName, usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(),
	).StructScan(&created)
	if err != nil {
		return user.User{}, trapUniqueErr(err, user.ErrEmailExists, "inserting user")
	}
	return created, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id int64, exec ...core.DBExecutor) (user.User, error) {
	var usr user.User
	err := repo.getExec(exec).GetContext(ctx, &usr, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "selecting user by id")
	}
	return usr, nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (user.User, error) {
	var usr user.User
	err := repo.getExec(exec).GetContext(ctx, &usr, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "selecting user by email")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	orderBy := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if col, ok := userOrderingFields[ord.Field]; ok {
			orderBy = append(orderBy, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	orderBy = append(orderBy, "id ASC")

	users := make([]user.User, 0)
	q := `SELECT ` + userColumns + ` FROM users ORDER BY ` + strings.Join(orderBy, ", ")
	if err := repo.getExec(exec).SelectContext(ctx, &users, q); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	return users, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	q := `UPDATE users SET email = $2, role = $3, display_name = $4, class_name = $5, updated_at = $6
		WHERE id = $1 RETURNING ` + userColumns

	var updated user.User
	err := repo.getExec(exec).QueryRowxContext(
		ctx, q, usr.ID, usr.Email, usr.Role, usr.DisplayName, usr.ClassName, usr.UpdatedAt.UTC(),
	).StructScan(&updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, trapUniqueErr(err, user.ErrEmailExists, "updating user")
	}
	return updated, nil
}

func (repo userRepository) DeleteUser(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo userRepository) HasScheduledMeetings(ctx context.Context, id int64, exec ...core.DBExecutor) (bool, error) {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM scheduled_meetings WHERE created_by_user_id = $1)`
	if err := repo.getExec(exec).GetContext(ctx, &exists, q, id); err != nil {
		return false, errors.Wrap(err, "checking scheduled meetings")
	}
	return exists, nil
}
