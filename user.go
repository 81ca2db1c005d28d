package tkscot

import (
	"fmt"
	"github.com/hashicorp/golang-lru"
	"github.com/slack-go/slack"
	"github.com/spf13/viper"
	"github.com/teamkill/tkscot/config"
)

const (
	userInfoCacheSizeDisabledValue = 0
)

// UserInfoFinder defines the interface for finding a slack user's info
type UserInfoFinder interface {
	GetUserInfo(userID string) (user *slack.User, err error)
}

// AdminChecker tells whether a user may run admin commands
type AdminChecker interface {
	IsAdmin(userID string) (admin bool)
}

// cachingUserInfoFinder holds a cache and a loading UserInfoFinder to implement the UserInfoFinder loading entries from cache
type cachingUserInfoFinder struct {
	loader           UserInfoFinder
	logger           SLogger
	userProfileCache *lru.ARCCache
}

// NewCachingUserInfoFinder creates a new user info service with caching if enabled via config.UserInfoCacheSizeKey. It requires an implementation
// of the interface that will do the actual loading when not in cache
func NewCachingUserInfoFinder(v *viper.Viper, loader UserInfoFinder, logger SLogger) (uf UserInfoFinder, err error) {
	cuf := new(cachingUserInfoFinder)

	cs := v.GetInt(config.UserInfoCacheSizeKey)

	if cs > userInfoCacheSizeDisabledValue {
		cuf.userProfileCache, err = lru.NewARC(cs)
		if err != nil {
			return nil, err
		}
	}

	cuf.loader = loader
	cuf.logger = logger

	return cuf, nil
}

// GetUserInfo gets the user info or returns an error and a nil user is not found or
// an error occurred during retrieval
func (c cachingUserInfoFinder) GetUserInfo(userID string) (u *slack.User, err error) {
	if c.userProfileCache == nil {
		c.logger.Debugf("Cache disabled, loading user info for [%s] from slack instead", userID)
		return c.loader.GetUserInfo(userID)
	}

	if userProfile, exists := c.userProfileCache.Get(userID); exists {
		c.logger.Debugf("User info in cache [%s] so using that", userID)

		userProfile, ok := userProfile.(slack.User)
		if !ok {
			return nil, fmt.Errorf("Error converting cached value for user id [%s]", userID)
		}

		return &userProfile, nil
	}

	c.logger.Debugf("User info for [%s] not found in cache, retrieving from slack and saving", userID)
	u, err = c.loader.GetUserInfo(userID)
	if err != nil {
		return nil, err
	}

	c.userProfileCache.Add(userID, *u)

	return u, nil
}

// adminChecker grants admin rights to a fixed set of user ids or, when that set is empty,
// to slack workspace admins and owners
type adminChecker struct {
	admins         map[string]bool
	userInfoFinder UserInfoFinder
	logger         SLogger
}

// NewAdminChecker returns an AdminChecker for the given admin user ids. When admins is empty, the
// slack IsAdmin/IsOwner flags of the user (looked up with userInfoFinder) decide
func NewAdminChecker(admins []string, userInfoFinder UserInfoFinder, logger SLogger) (ac AdminChecker) {
	c := new(adminChecker)
	c.admins = make(map[string]bool)
	for _, a := range admins {
		c.admins[a] = true
	}
	c.userInfoFinder = userInfoFinder
	c.logger = logger

	return c
}

// IsAdmin returns true if the user is allowed to run admin commands. Lookup failures deny access
func (c *adminChecker) IsAdmin(userID string) (admin bool) {
	if len(c.admins) > 0 {
		return c.admins[userID]
	}

	u, err := c.userInfoFinder.GetUserInfo(userID)
	if err != nil {
		c.logger.Printf("Error looking up user [%s] for admin check, denying: %v", userID, err)
		return false
	}

	return u.IsAdmin || u.IsOwner
}
