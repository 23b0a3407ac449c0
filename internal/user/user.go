package users

import (
	"time"

	"github.com/google/uuid"
)

type ContextKey string

const UserKey ContextKey = "user"

// User is an identity the engine sees only as an opaque id. Telegram
// players carry a TgID; dashboard admins sign in through an OAuth
// provider instead, so both groups share one table.
type User struct {
	ID         uuid.UUID `db:"id"`
	TgID       *int64    `db:"tg_id"`
	Username   string    `db:"username"`
	Email      string    `db:"email"`
	IsAdmin    bool      `db:"is_admin"`
	Provider   *string   `db:"provider"`
	ProviderID *string   `db:"provider_id"`
	AvatarURL  *string   `db:"avatar_url"`
	CreatedAt  time.Time `db:"created_at"`
}
