package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"campusnet/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	ProfileKeyPrefix = "profile:%s"
)

const (
	ProfileTTL = 5 * time.Minute
)

func ProfileKey(userID string) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateProfile(ctx context.Context, userIDs ...string) {
	for _, id := range userIDs {
		Invalidate(ctx, ProfileKey(id))
	}
}

// Aside loads key into dest, calling fetch on a miss and storing its result for ttl.
// fetch must populate dest. Redis failures degrade to calling fetch directly.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if client == nil {
		return fetch()
	}

	raw, err := client.Get(ctx, key).Bytes()
	if err == nil {
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			observability.CacheLookupsTotal.WithLabelValues("hit").Inc()
			return nil
		}
	} else if !errors.Is(err, redis.Nil) {
		observability.CacheLookupsTotal.WithLabelValues("error").Inc()
		return fetch()
	}

	observability.CacheLookupsTotal.WithLabelValues("miss").Inc()
	if err := fetch(); err != nil {
		return err
	}

	payload, err := json.Marshal(dest)
	if err != nil {
		return nil
	}
	client.Set(ctx, key, payload, ttl)
	return nil
}
