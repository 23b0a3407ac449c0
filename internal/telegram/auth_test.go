package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBotToken = "12345:test-token"

// signInitData builds initData the way Telegram does: all fields sorted,
// joined with newlines, signed with HMAC-SHA256 over a derived key.
func signInitData(t *testing.T, values url.Values) string {
	t.Helper()

	checkString := ""
	for i, k := range sortedKeys(values) {
		if i > 0 {
			checkString += "\n"
		}
		checkString += k + "=" + values.Get(k)
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(testBotToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString))

	values.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return values.Encode()
}

func sortedKeys(values url.Values) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestValidateInitData(t *testing.T) {
	values := url.Values{}
	values.Set("auth_date", "1700000000")
	values.Set("user", `{"id":42,"username":"pat","first_name":"Pat"}`)

	initData := signInitData(t, values)

	parsed, err := ValidateInitData(initData, testBotToken)
	require.NoError(t, err)
	assert.Equal(t, "1700000000", parsed.Get("auth_date"))
}

func TestValidateInitDataRejectsTampering(t *testing.T) {
	values := url.Values{}
	values.Set("auth_date", "1700000000")
	values.Set("user", `{"id":42,"username":"pat","first_name":"Pat"}`)

	initData := signInitData(t, values)

	tampered, err := url.ParseQuery(initData)
	require.NoError(t, err)
	tampered.Set("user", `{"id":43,"username":"eve","first_name":"Eve"}`)

	_, err = ValidateInitData(tampered.Encode(), testBotToken)
	assert.ErrorIs(t, err, ErrInvalidInitData)

	_, err = ValidateInitData(initData, "other-token")
	assert.ErrorIs(t, err, ErrInvalidInitData)

	_, err = ValidateInitData("", testBotToken)
	assert.ErrorIs(t, err, ErrInvalidInitData)
}

func TestUserFromInitData(t *testing.T) {
	values := url.Values{}
	values.Set("auth_date", "1700000000")
	values.Set("user", `{"id":42,"username":"pat","first_name":"Pat"}`)

	tgUser, err := UserFromInitData(signInitData(t, values), testBotToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), tgUser.ID)
	assert.Equal(t, "pat", tgUser.Username)

	noUser := url.Values{}
	noUser.Set("auth_date", "1700000000")
	_, err = UserFromInitData(signInitData(t, noUser), testBotToken)
	assert.ErrorIs(t, err, ErrInvalidInitData)
}
