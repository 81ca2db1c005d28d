package tkscot_test

import (
	"fmt"
	"github.com/slack-go/slack"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teamkill/tkscot"
	"github.com/teamkill/tkscot/config"
	"log"
	"strings"
	"testing"
)

type userInfoFinder struct {
	fail  bool
	loads int
	users map[string]slack.User
}

func (u *userInfoFinder) GetUserInfo(userID string) (user *slack.User, err error) {
	u.loads++
	if u.fail {
		return nil, fmt.Errorf("Error loading user [%s]", userID)
	}

	if found, ok := u.users[userID]; ok {
		return &found, nil
	}

	return &slack.User{ID: userID, Name: "Daniel Quinn"}, nil
}

func newTestLogger(logBuilder *strings.Builder) tkscot.SLogger {
	return tkscot.NewSLogger(log.New(logBuilder, "", 0), true)
}

func TestGetUserWithCacheDisabled(t *testing.T) {
	v := viper.New()
	v.Set(config.UserInfoCacheSizeKey, 0)

	loader := userInfoFinder{}
	var logBuilder strings.Builder

	uf, err := tkscot.NewCachingUserInfoFinder(v, &loader, newTestLogger(&logBuilder))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		user, err := uf.GetUserInfo("little-blue")
		require.NoError(t, err)
		assert.Equal(t, slack.User{ID: "little-blue", Name: "Daniel Quinn"}, *user)
	}

	assert.Equal(t, 2, loader.loads)
	assert.Contains(t, logBuilder.String(), "Cache disabled, loading user info for [little-blue]")
}

func TestGetUserWithNegativeCacheSizeDisablesCaching(t *testing.T) {
	v := viper.New()
	v.Set(config.UserInfoCacheSizeKey, -1)

	loader := userInfoFinder{}
	var logBuilder strings.Builder

	uf, err := tkscot.NewCachingUserInfoFinder(v, &loader, newTestLogger(&logBuilder))
	require.NoError(t, err)

	_, err = uf.GetUserInfo("little-blue")
	require.NoError(t, err)
	assert.Contains(t, logBuilder.String(), "Cache disabled")
}

func TestGetUserFromCache(t *testing.T) {
	v := viper.New()
	v.Set(config.UserInfoCacheSizeKey, 10)

	loader := userInfoFinder{}
	var logBuilder strings.Builder

	uf, err := tkscot.NewCachingUserInfoFinder(v, &loader, newTestLogger(&logBuilder))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		user, err := uf.GetUserInfo("little-blue")
		require.NoError(t, err)
		assert.Equal(t, "little-blue", user.ID)
	}

	assert.Equal(t, 1, loader.loads)
	assert.Contains(t, logBuilder.String(), "User info in cache [little-blue] so using that")
}

func TestGetUserFailToLoad(t *testing.T) {
	v := viper.New()
	v.Set(config.UserInfoCacheSizeKey, 1)

	loader := userInfoFinder{fail: true}
	var logBuilder strings.Builder

	uf, err := tkscot.NewCachingUserInfoFinder(v, &loader, newTestLogger(&logBuilder))
	require.NoError(t, err)

	_, err = uf.GetUserInfo("little-blue")
	assert.EqualError(t, err, "Error loading user [little-blue]")
}

func TestAdminCheckerWithConfiguredAdmins(t *testing.T) {
	loader := userInfoFinder{users: map[string]slack.User{"U2": {ID: "U2", IsAdmin: true}}}
	var logBuilder strings.Builder

	ac := tkscot.NewAdminChecker([]string{"U1"}, &loader, newTestLogger(&logBuilder))

	assert.True(t, ac.IsAdmin("U1"))
	assert.False(t, ac.IsAdmin("U2"))
	assert.Equal(t, 0, loader.loads)
}

func TestAdminCheckerFallsBackToSlackRoles(t *testing.T) {
	loader := userInfoFinder{users: map[string]slack.User{
		"UADMIN": {ID: "UADMIN", IsAdmin: true},
		"UOWNER": {ID: "UOWNER", IsOwner: true},
	}}
	var logBuilder strings.Builder

	ac := tkscot.NewAdminChecker(nil, &loader, newTestLogger(&logBuilder))

	assert.True(t, ac.IsAdmin("UADMIN"))
	assert.True(t, ac.IsAdmin("UOWNER"))
	assert.False(t, ac.IsAdmin("UMEMBER"))
}

func TestAdminCheckerDeniesOnLookupFailure(t *testing.T) {
	loader := userInfoFinder{fail: true}
	var logBuilder strings.Builder

	ac := tkscot.NewAdminChecker([]string{}, &loader, newTestLogger(&logBuilder))

	assert.False(t, ac.IsAdmin("U1"))
	assert.Contains(t, logBuilder.String(), "Error looking up user [U1] for admin check, denying")
}
