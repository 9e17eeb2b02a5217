package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"salonagent/internal/metrics"
)

const cacheKeyPrefix = "freebusy:"

type cacheEntry struct {
	busy    map[string][]Interval
	expires time.Time
}

// CachedProvider memoizes busy lookups for a short TTL. Windows are widened
// to whole days so that repeated suggestions on the same days share entries.
// An optional Redis tier shares entries between processes.
type CachedProvider struct {
	next   BusyProvider
	ttl    time.Duration
	logger *zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry

	redis *redis.Client
}

// NewCachedProvider wraps next. A non-positive ttl disables caching.
func NewCachedProvider(next BusyProvider, ttl time.Duration, logger *zerolog.Logger) *CachedProvider {
	l := logger.With().Str("component", "freebusy_cache").Logger()
	return &CachedProvider{
		next:    next,
		ttl:     ttl,
		logger:  &l,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// UseRedis adds a shared Redis tier behind the in-memory one.
func (c *CachedProvider) UseRedis(client *redis.Client) {
	c.redis = client
}

// Busy implements BusyProvider.
func (c *CachedProvider) Busy(ctx context.Context, calendarIDs []string, window Interval) (map[string][]Interval, error) {
	if c.ttl <= 0 {
		return c.next.Busy(ctx, calendarIDs, window)
	}
	ids := uniqueIDs(calendarIDs)
	sort.Strings(ids)
	wide := widen(window)
	key := cacheKey(ids, wide)

	if busy, ok := c.readMemory(key); ok {
		metrics.IncCalendarCache("hit")
		return clip(busy, window), nil
	}
	if busy, ok := c.readRedis(ctx, key); ok {
		metrics.IncCalendarCache("redis_hit")
		c.writeMemory(key, busy)
		return clip(busy, window), nil
	}
	metrics.IncCalendarCache("miss")

	busy, err := c.next.Busy(ctx, ids, wide)
	if err != nil {
		return nil, err
	}
	c.writeMemory(key, busy)
	c.writeRedis(ctx, key, busy)
	return clip(busy, window), nil
}

// Purge drops every cached entry, e.g. after a booking changed a calendar.
func (c *CachedProvider) Purge(ctx context.Context) {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()

	if c.redis == nil {
		return
	}
	iter := c.redis.Scan(ctx, 0, cacheKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn().Err(err).Msg("scan cached free/busy keys")
		return
	}
	if len(keys) > 0 {
		if err := c.redis.Del(ctx, keys...).Err(); err != nil {
			c.logger.Warn().Err(err).Msg("purge cached free/busy keys")
		}
	}
}

func (c *CachedProvider) readMemory(key string) (map[string][]Interval, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.busy, true
}

func (c *CachedProvider) writeMemory(key string, busy map[string][]Interval) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{busy: busy, expires: c.now().Add(c.ttl)}
}

func (c *CachedProvider) readRedis(ctx context.Context, key string) (map[string][]Interval, bool) {
	if c.redis == nil {
		return nil, false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	var busy map[string][]Interval
	if err := json.Unmarshal([]byte(val), &busy); err != nil {
		return nil, false
	}
	return busy, true
}

func (c *CachedProvider) writeRedis(ctx context.Context, key string, busy map[string][]Interval) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(busy)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Debug().Err(err).Msg("write free/busy to redis")
	}
}

func cacheKey(sortedIDs []string, window Interval) string {
	return fmt.Sprintf("%s%s:%d-%d", cacheKeyPrefix, strings.Join(sortedIDs, ","), window.Start.Unix(), window.End.Unix())
}

// widen extends a window to midnight before its start and midnight after
// its end, in the start's location.
func widen(w Interval) Interval {
	loc := w.Start.Location()
	y, m, d := w.Start.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	end := w.End.In(loc)
	ey, em, ed := end.Date()
	endDay := time.Date(ey, em, ed, 0, 0, 0, 0, loc)
	if end.After(endDay) {
		endDay = time.Date(ey, em, ed+1, 0, 0, 0, 0, loc)
	}
	return Interval{Start: start, End: endDay}
}

// clip keeps the busy periods that touch window.
func clip(busy map[string][]Interval, window Interval) map[string][]Interval {
	out := make(map[string][]Interval, len(busy))
	for id, periods := range busy {
		kept := make([]Interval, 0, len(periods))
		for _, p := range periods {
			if p.Overlaps(window.Start, window.End) {
				kept = append(kept, p)
			}
		}
		out[id] = kept
	}
	return out
}
