package rbac

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// RoleSource resolves the roles relevant to one user and company. An empty
// membership role means the user is not a member.
type RoleSource interface {
	AccessRoles(ctx context.Context, userID, companyID string) (globalRole, membershipRole string, err error)
}

// Cache stores access decisions. found is false on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (allowed, found bool, err error)
	Set(ctx context.Context, key string, allowed bool) error
}

// Checker answers per-company capability checks.
type Checker struct {
	roles  RoleSource
	cache  Cache
	logger *zap.Logger
}

// NewChecker builds a Checker. cache may be nil.
func NewChecker(roles RoleSource, cache Cache, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{roles: roles, cache: cache, logger: logger.Named("rbac")}
}

func CacheKey(userID, companyID string, action Action) string {
	return "access:" + userID + ":" + companyID + ":" + string(action)
}

// CanAccess reports whether userID may perform action on companyID. Global
// admins pass every check; everyone else needs a membership whose role
// permits the action.
func (c *Checker) CanAccess(ctx context.Context, userID, companyID string, action Action) (bool, error) {
	userID = strings.TrimSpace(userID)
	companyID = strings.TrimSpace(companyID)
	if userID == "" || companyID == "" {
		return false, nil
	}

	key := CacheKey(userID, companyID, action)
	if c.cache != nil {
		allowed, found, err := c.cache.Get(ctx, key)
		if err != nil {
			c.logger.Warn("access cache read failed", zap.String("key", key), zap.Error(err))
		} else if found {
			return allowed, nil
		}
	}

	globalRole, membershipRole, err := c.roles.AccessRoles(ctx, userID, companyID)
	if err != nil {
		return false, err
	}
	allowed := false
	switch {
	case Normalize(globalRole) == RoleAdmin:
		allowed = true
	case membershipRole != "":
		allowed = Can(Normalize(membershipRole), action)
	}

	// Only grants are cached: a new membership takes effect on the next
	// request, while a revocation lags by at most the cache TTL.
	if allowed && c.cache != nil {
		if err := c.cache.Set(ctx, key, allowed); err != nil {
			c.logger.Warn("access cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return allowed, nil
}
