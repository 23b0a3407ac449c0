package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	users "github.com/vbondar/survivor-pool/internal/user"
)

type UserStore struct {
	db *sqlx.DB
}

const (
	getUserQuery     = "SELECT * FROM users WHERE id = ?"
	getUserByTgQuery = "SELECT * FROM users WHERE tg_id = ?"

	getUserByProviderQuery = `
        SELECT * FROM users
        WHERE provider = ?
        AND provider_id = ?
    `
	createUserQuery = `
		INSERT INTO users (id, tg_id, username, email, is_admin, provider, provider_id, avatar_url) VALUES
		(:id, :tg_id, :username, :email, :is_admin, :provider, :provider_id, :avatar_url)
	`
	updateUserNameAndAvatarQuery = `
		UPDATE users SET
		username = :username,
		avatar_url = :avatar_url
		WHERE id = :id
	`
)

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	var user users.User
	err := s.db.GetContext(ctx, &user, getUserQuery, id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) GetUserByTelegramID(ctx context.Context, tgID int64) (*users.User, error) {
	var user users.User
	err := s.db.GetContext(ctx, &user, getUserByTgQuery, tgID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) GetUserByProvider(ctx context.Context, provider string, providerID string) (*users.User, error) {
	var user users.User
	err := s.db.GetContext(ctx, &user, getUserByProviderQuery, provider, providerID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) CreateUser(ctx context.Context, user *users.User) error {
	_, err := s.db.NamedExecContext(ctx, createUserQuery, user)
	return err
}

func (s *UserStore) UpdateUserNameAndAvatar(ctx context.Context, user *users.User) error {
	_, err := s.db.NamedExecContext(ctx, updateUserNameAndAvatarQuery, user)
	return err
}
