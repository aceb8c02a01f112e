package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/stakeplay/tictactoe-arena/internal/apperror"
	"github.com/stakeplay/tictactoe-arena/internal/entity"
)

type UserRepository interface {
	Save(ctx context.Context, user *entity.User) error
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByID(ctx context.Context, id string) (*entity.User, error)
}

type userRepository struct {
	conn *sql.DB
}

func NewUserRepository(conn *sql.DB) UserRepository {
	return &userRepository{
		conn: conn,
	}
}

func (that *userRepository) Save(ctx context.Context, user *entity.User) error {
	query := `INSERT INTO users (id, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`

	_, err := that.conn.ExecContext(ctx, query, user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("can't save user: %w", err)
	}

	return nil
}

func (that *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `SELECT id, username, email, password_hash, created_at FROM users WHERE email = ?`

	return that.scanUser(that.conn.QueryRowContext(ctx, query, email))
}

func (that *userRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	query := `SELECT id, username, email, password_hash, created_at FROM users WHERE id = ?`

	return that.scanUser(that.conn.QueryRowContext(ctx, query, id))
}

func (that *userRepository) scanUser(row *sql.Row) (*entity.User, error) {
	var user entity.User

	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't find user: %w", err)
	}

	return &user, nil
}
