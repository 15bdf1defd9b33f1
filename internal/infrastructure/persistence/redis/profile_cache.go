package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/studyhub/study-hub/internal/domain/leaderboard"
	"github.com/studyhub/study-hub/pkg/circuitbreaker"
	"github.com/studyhub/study-hub/pkg/logger"
)

// Hash fields of a cached profile. A profile cached with found=0 records
// that the store had no row for the user.
const (
	fieldName  = "name"
	fieldBio   = "bio"
	fieldFound = "found"
)

// CacheObserver receives hit/miss results.
type CacheObserver interface {
	ProfileCacheRead(hit bool)
}

// ProfileCache is a read-through cache in front of a leaderboard.ProfileLookup.
// Redis failures are logged and the wrapped lookup answers instead; after
// repeated failures a circuit breaker skips Redis entirely for a cool-down.
type ProfileCache struct {
	client   *redis.Client
	next     leaderboard.ProfileLookup
	ttl      time.Duration
	observer CacheObserver
	breaker  *circuitbreaker.CircuitBreaker
	log      *logger.Logger
}

// NewProfileCache wraps next. A non-positive ttl uses TTLProfile.
func NewProfileCache(client *redis.Client, next leaderboard.ProfileLookup, ttl time.Duration, observer CacheObserver, log *logger.Logger) *ProfileCache {
	if ttl <= 0 {
		ttl = TTLProfile
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.Component("profile_cache"))
	return &ProfileCache{
		client:   client,
		next:     next,
		ttl:      ttl,
		observer: observer,
		breaker: circuitbreaker.New("profile_cache",
			circuitbreaker.WithFailureThreshold(3),
			circuitbreaker.WithCooldown(15*time.Second),
			circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
				log.Warn("circuit state changed",
					logger.String("from", from.String()), logger.String("to", to.String()))
			}),
		),
		log: log,
	}
}

var _ leaderboard.ProfileLookup = (*ProfileCache)(nil)

// FetchDisplayProfiles serves cached profiles and loads the rest from the
// wrapped lookup, caching what it returns.
func (c *ProfileCache) FetchDisplayProfiles(ctx context.Context, userIDs []string) (map[string]leaderboard.Profile, error) {
	profiles := make(map[string]leaderboard.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return profiles, nil
	}

	var missing []string
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		missing, err = c.readCached(ctx, userIDs, profiles)
		return err
	})
	if err != nil {
		if !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			c.log.Warn("profile cache read failed", logger.Err(err))
		}
		return c.next.FetchDisplayProfiles(ctx, userIDs)
	}
	if len(missing) == 0 {
		return profiles, nil
	}

	loaded, err := c.next.FetchDisplayProfiles(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, p := range loaded {
		profiles[id] = p
	}

	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.write(ctx, missing, loaded)
	})
	if err != nil && !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		c.log.Warn("profile cache write failed", logger.Int("ids", len(missing)), logger.Err(err))
	}
	return profiles, nil
}

func (c *ProfileCache) readCached(ctx context.Context, userIDs []string, into map[string]leaderboard.Profile) ([]string, error) {
	pipe := c.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(userIDs))
	for i, id := range userIDs {
		cmds[i] = pipe.HGetAll(ctx, ProfileKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	var missing []string
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			missing = append(missing, userIDs[i])
			c.observe(false)
			continue
		}
		c.observe(true)
		if fields[fieldFound] == "1" {
			into[userIDs[i]] = leaderboard.Profile{Name: fields[fieldName], Bio: fields[fieldBio]}
		}
	}
	return missing, nil
}

func (c *ProfileCache) write(ctx context.Context, ids []string, loaded map[string]leaderboard.Profile) error {
	pipe := c.client.Pipeline()
	for _, id := range ids {
		key := ProfileKey(id)
		if p, ok := loaded[id]; ok {
			pipe.HSet(ctx, key, fieldName, p.Name, fieldBio, p.Bio, fieldFound, "1")
		} else {
			pipe.HSet(ctx, key, fieldFound, "0")
		}
		pipe.Expire(ctx, key, c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *ProfileCache) observe(hit bool) {
	if c.observer != nil {
		c.observer.ProfileCacheRead(hit)
	}
}
