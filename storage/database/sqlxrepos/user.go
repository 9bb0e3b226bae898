package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/user"
)

const userColumns = "id, name, email, role, is_active, password_hash, created_at, updated_at, last_login"

type userRepository struct{}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository() *userRepository {
	return &userRepository{}
}

func (repo userRepository) getUser(ctx context.Context, exec core.DBExecutor, where string, arg interface{}) (user.User, error) {
	var usr user.User
	q := exec.Rebind("SELECT " + userColumns + " FROM users WHERE " + where)
	if err := exec.GetContext(ctx, &usr, q, arg); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return usr, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, exec core.DBExecutor, id int64) (user.User, error) {
	return repo.getUser(ctx, exec, "id = ?", id)
}

func (repo userRepository) GetUserByEmail(ctx context.Context, exec core.DBExecutor, email string) (user.User, error) {
	return repo.getUser(ctx, exec, "email = ?", email)
}

func (repo userRepository) CreateUser(ctx context.Context, exec core.DBExecutor, usr user.User) (user.User, error) {
	q := exec.Rebind(`
		INSERT INTO users (name, email, role, is_active, password_hash, created_at, updated_at, last_login)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)
	err := exec.GetContext(
		ctx, &usr.ID, q,
		usr.Name, usr.Email, string(usr.Role), usr.IsActive, usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt, usr.LastLogin,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, exec core.DBExecutor, usr user.User) (user.User, error) {
	q := exec.Rebind(`
		UPDATE users
		SET name = ?, email = ?, role = ?, is_active = ?, password_hash = ?, updated_at = ?
		WHERE id = ?`)
	res, err := exec.ExecContext(ctx, q, usr.Name, usr.Email, string(usr.Role), usr.IsActive, usr.PasswordHash, usr.UpdatedAt, usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) SetLastLogin(ctx context.Context, exec core.DBExecutor, id int64, at time.Time) error {
	_, err := exec.ExecContext(ctx, exec.Rebind("UPDATE users SET last_login = ? WHERE id = ?"), at, id)
	return errors.Wrap(err, "setting last login")
}
