package utils

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const blacklistPrefix = "jwt:revoked:"

var (
	// revoked maps token ids to their expiry when Redis is not configured.
	revoked   = map[string]time.Time{}
	revokedMu sync.Mutex
)

// BlacklistToken revokes the token with the given id (the JWT "jti") until it
// would have expired anyway. Redis holds the entry when configured, memory otherwise.
func BlacklistToken(tokenID string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if tokenID == "" || ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, blacklistPrefix+tokenID, "1", ttl).Err(); err != nil {
			Logger.Warn("token revoke failed", zap.String("jti", tokenID), zap.Error(err))
		}
		return
	}
	revokedMu.Lock()
	revoked[tokenID] = expiresAt
	revokedMu.Unlock()
}

// IsTokenBlacklisted reports whether the token id was revoked. Redis errors fail open.
func IsTokenBlacklisted(tokenID string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, blacklistPrefix+tokenID).Result()
		if err != nil {
			Logger.Warn("token blacklist lookup failed", zap.String("jti", tokenID), zap.Error(err))
			return false
		}
		return n > 0
	}

	revokedMu.Lock()
	defer revokedMu.Unlock()
	now := time.Now()
	for id, exp := range revoked {
		if now.After(exp) {
			delete(revoked, id)
		}
	}
	_, ok := revoked[tokenID]
	return ok
}
