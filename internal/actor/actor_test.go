package actor

import (
	"context"
	"errors"
	"testing"

	"github.com/router-for-me/CloudAccountsBusiness/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoleDefaultsToUser(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("admin"))
	assert.Equal(t, RoleAdmin, ParseRole(" Admin "))
	assert.Equal(t, RoleUser, ParseRole(""))
	assert.Equal(t, RoleUser, ParseRole("superuser"))
}

func TestRequire(t *testing.T) {
	admin := Actor{ID: "a-1", Role: RoleAdmin}
	user := Actor{ID: "u-1", Role: RoleUser}

	require.NoError(t, Require(admin, RoleAdmin))
	require.NoError(t, Require(user, RoleUser))

	err := Require(user, RoleAdmin)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrPermissionDenied))

	err = Require(Actor{}, RoleUser)
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))

	err = Require(Actor{Role: RoleAdmin}, RoleAdmin)
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
	assert.False(t, errors.Is(err, apperr.ErrPermissionDenied))
}

func TestOwns(t *testing.T) {
	user := Actor{ID: "u-1", Role: RoleUser}
	assert.True(t, user.Owns("u-1"))
	assert.False(t, user.Owns("u-2"))
	assert.False(t, Actor{Role: RoleUser}.Owns(""))
	assert.True(t, System().Owns("anyone"))
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithContext(context.Background(), Actor{ID: "u-1", Role: RoleUser})
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u-1", got.ID)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}
