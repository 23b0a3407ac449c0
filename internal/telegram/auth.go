// Package telegram verifies Telegram Mini App initData so handlers see
// a resolved user before the engine is invoked.
// See https://core.telegram.org/bots/webapps#validating-data-received-via-the-mini-app
package telegram

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/vbondar/survivor-pool/internal/middleware"
	"github.com/vbondar/survivor-pool/internal/service"
	users "github.com/vbondar/survivor-pool/internal/user"
)

var ErrInvalidInitData = errors.New("invalid telegram init data")

type TgUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// ValidateInitData checks the HMAC-SHA256 signature Telegram attaches
// to Mini App requests and returns the parsed fields.
func ValidateInitData(initData, botToken string) (url.Values, error) {
	if initData == "" || botToken == "" {
		return nil, ErrInvalidInitData
	}

	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, ErrInvalidInitData
	}

	gotHash := values.Get("hash")
	if gotHash == "" {
		return nil, ErrInvalidInitData
	}
	values.Del("hash")

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	checkString := strings.Join(pairs, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString))
	computed := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(computed), []byte(gotHash)) {
		return nil, ErrInvalidInitData
	}
	return values, nil
}

func UserFromInitData(initData, botToken string) (*TgUser, error) {
	values, err := ValidateInitData(initData, botToken)
	if err != nil {
		return nil, err
	}

	userJSON := values.Get("user")
	if userJSON == "" {
		return nil, ErrInvalidInitData
	}

	var tgUser TgUser
	if err := json.Unmarshal([]byte(userJSON), &tgUser); err != nil {
		return nil, ErrInvalidInitData
	}
	if tgUser.ID == 0 {
		return nil, ErrInvalidInitData
	}
	return &tgUser, nil
}

// RequireUser authenticates Mini App calls via initData in the
// "init_data" query param or the X-Telegram-Init-Data header, creating
// the user record on first contact.
func RequireUser(botToken string, userService *service.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			initData := r.URL.Query().Get("init_data")
			if initData == "" {
				initData = r.Header.Get("X-Telegram-Init-Data")
			}

			tgUser, err := UserFromInitData(initData, botToken)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			username := tgUser.Username
			if username == "" {
				username = tgUser.FirstName
			}

			user, err := userService.FindOrCreateTelegramUser(r.Context(), tgUser.ID, username)
			if err != nil {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), middleware.UserIDKey, user.ID)
			ctx = context.WithValue(ctx, users.UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
