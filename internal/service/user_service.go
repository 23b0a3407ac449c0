package service

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/markbates/goth"
	"github.com/vbondar/survivor-pool/internal/store"
	users "github.com/vbondar/survivor-pool/internal/user"
	"github.com/vbondar/survivor-pool/internal/utils"
)

// AdminConfig names who gets the admin flag on first sign-in: the
// Telegram account running the pool and/or the dashboard owner's email.
type AdminConfig struct {
	TgID  int64
	Email string
}

type UserService struct {
	db     *sqlx.DB
	store  *store.UserStore
	admins AdminConfig
}

func NewUserService(db *sqlx.DB, store *store.UserStore, admins AdminConfig) *UserService {
	return &UserService{db: db, store: store, admins: admins}
}

// FindOrCreateTelegramUser registers Mini App users on first contact,
// keyed by their Telegram id.
func (s *UserService) FindOrCreateTelegramUser(ctx context.Context, tgID int64, username string) (*users.User, error) {
	user, err := s.store.GetUserByTelegramID(ctx, tgID)
	if err == nil {
		return user, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	newUser := &users.User{
		ID:       uuid.New(),
		TgID:     utils.Ptr(tgID),
		Username: username,
		IsAdmin:  s.admins.TgID != 0 && tgID == s.admins.TgID,
	}
	if err := s.store.CreateUser(ctx, newUser); err != nil {
		return nil, err
	}
	return newUser, nil
}

func (s *UserService) FindOrCreateUserByProvider(ctx context.Context, gothUser goth.User) (*users.User, error) {
	user, err := s.store.GetUserByProvider(ctx, gothUser.Provider, gothUser.UserID)

	if err == nil {
		if utils.OrZero(user.AvatarURL) != gothUser.AvatarURL || user.Username != gothUser.NickName {
			user.Username = gothUser.NickName
			user.AvatarURL = utils.StringOrNil(gothUser.AvatarURL)
			s.store.UpdateUserNameAndAvatar(ctx, user)
		}
		return user, nil
	}

	if err == sql.ErrNoRows {
		newUser := &users.User{
			ID:         uuid.New(),
			Email:      gothUser.Email,
			Username:   gothUser.Name,
			IsAdmin:    s.admins.Email != "" && gothUser.Email == s.admins.Email,
			Provider:   &gothUser.Provider,
			ProviderID: &gothUser.UserID,
			AvatarURL:  utils.StringOrNil(gothUser.AvatarURL),
		}
		err := s.store.CreateUser(ctx, newUser)
		return newUser, err
	}

	return nil, err
}
