package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Yoseph1994/adventurehub/internal/model"
	"github.com/Yoseph1994/adventurehub/internal/utils"
)

func TestBuildUserUpdateHashesPassword(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	pwd := "Bb2@bbbb"

	set, args, err := buildUserUpdate(model.UserUpdate{Password: &pwd}, 4, now)
	require.NoError(t, err)
	require.Equal(t, []string{"password_hash=?", "password_changed_at=?"}, set)

	hash, ok := args[0].(string)
	require.True(t, ok)
	require.NotEqual(t, pwd, hash)
	require.True(t, utils.VerifyPassword(hash, pwd))
	require.Equal(t, now.Add(-time.Second), args[1])
}

func TestBuildUserUpdateTokens(t *testing.T) {
	exp := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)
	set, args, err := buildUserUpdate(model.UserUpdate{
		VerificationToken: &model.TokenField{Hash: "abc", Expires: exp},
		ResetToken:        &model.TokenField{},
	}, 4, time.Now())
	require.NoError(t, err)
	require.Equal(t, []string{
		"email_verification_token=?", "email_verification_expires=?",
		"password_reset_token=?", "password_reset_expires=?",
	}, set)
	require.Equal(t, []any{"abc", exp, nil, nil}, args)
}

func TestBuildUserUpdateNormalizes(t *testing.T) {
	email := "  Mixed@Example.COM "
	active := false
	role := model.RoleGuide
	set, args, err := buildUserUpdate(model.UserUpdate{Email: &email, IsActive: &active, Role: &role}, 4, time.Now())
	require.NoError(t, err)
	require.Equal(t, []string{"email=?", "role=?", "is_active=?"}, set)
	require.Equal(t, []any{"mixed@example.com", "guide", false}, args)

	set, _, err = buildUserUpdate(model.UserUpdate{}, 4, time.Now())
	require.NoError(t, err)
	require.Empty(t, set)
}
