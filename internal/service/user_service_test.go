package service

import (
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"fpiersk/config"
	"fpiersk/internal/store"
	"fpiersk/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserFixture(t *testing.T) (*UserService, *store.UserStore) {
	t.Helper()
	st := store.NewUserStore(filepath.Join(t.TempDir(), "users.json"))
	jwtSvc := jwt.NewJWTService(config.JWTConfig{
		Secret:     "test-secret",
		ExpireTime: time.Hour,
		Issuer:     "fpiersk",
	})
	return NewUserService(st, jwtSvc), st
}

func TestRegister(t *testing.T) {
	svc, st := newUserFixture(t)

	user, err := svc.Register("alice@example.com", "secret", "Alice")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^Alice#\d{4}$`), user.Nick)
	// 密码按原样入表
	assert.Equal(t, "secret", user.Password)

	persisted := st.Load()
	require.Contains(t, persisted, "alice@example.com")
	assert.Equal(t, user.Nick, persisted["alice@example.com"].Nick)
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newUserFixture(t)

	_, err := svc.Register("", "pw", "Alice")
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = svc.Register("not-an-email", "pw", "Alice")
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newUserFixture(t)

	_, err := svc.Register("alice@example.com", "secret", "Alice")
	require.NoError(t, err)

	_, err = svc.Register("alice@example.com", "other", "Alice2")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	svc, _ := newUserFixture(t)

	registered, err := svc.Register("alice@example.com", "secret", "Alice")
	require.NoError(t, err)

	user, token, err := svc.Login("alice@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, registered.Nick, user.Nick)
	assert.NotEmpty(t, token)
}

func TestLogin_BadCredentials(t *testing.T) {
	svc, _ := newUserFixture(t)

	_, err := svc.Register("alice@example.com", "secret", "Alice")
	require.NoError(t, err)

	// 逐字比较：大小写或空白差异都算失败
	_, _, err = svc.Login("alice@example.com", "Secret")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, _, err = svc.Login("alice@example.com", "secret ")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, _, err = svc.Login("ghost@example.com", "secret")
	assert.ErrorIs(t, err, ErrBadCredentials)
}
