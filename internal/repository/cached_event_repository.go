package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prohmpiriya/greenloop-event-service/internal/domain"
	"github.com/prohmpiriya/greenloop-event-service/pkg/logger"
	pkgredis "github.com/prohmpiriya/greenloop-event-service/pkg/redis"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	cacheKeyPrefix       = "event-svc:"
	qrTokenKeyPrefix     = cacheKeyPrefix + "qr:"
	statsKeyPrefix       = cacheKeyPrefix + "stats:"
	statsGenerationKey   = cacheKeyPrefix + "stats-gen"
	defaultCacheTTL      = 5 * time.Minute
	statOpenEvents       = "open"
	statOpenParticipants = "open-participants"
)

// Cache is the subset of the Redis client used for read-through caching
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedEventRepository decorates an EventRepository with Redis caching.
// Only the QR token to event id mapping and the aggregates are cached. Event
// rows, statuses included, are always read from the underlying store.
// Cache failures fall back to the store.
type CachedEventRepository struct {
	EventRepository
	cache Cache
	ttl   time.Duration
}

// NewCachedEventRepository wraps repo with cache
func NewCachedEventRepository(repo EventRepository, cache Cache, ttl time.Duration) *CachedEventRepository {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedEventRepository{
		EventRepository: repo,
		cache:           cache,
		ttl:             ttl,
	}
}

// GetByQRToken resolves the token through the cached id mapping
func (r *CachedEventRepository) GetByQRToken(ctx context.Context, token string) (*domain.Event, error) {
	key := qrTokenKeyPrefix + token

	var eventID string
	err := r.cache.GetJSON(ctx, key, &eventID)
	if err == nil {
		event, err := r.EventRepository.GetByID(ctx, eventID)
		if err != nil {
			return nil, err
		}
		// The token may have been regenerated by another instance
		if event != nil && event.QRToken == token {
			return event, nil
		}
		r.invalidate(ctx, key)
	} else if !errors.Is(err, pkgredis.ErrCacheMiss) {
		logger.Get().Warn("qr token cache read failed", zap.Error(err))
	}

	event, err := r.EventRepository.GetByQRToken(ctx, token)
	if err != nil || event == nil {
		return event, err
	}
	if err := r.cache.SetJSON(ctx, key, event.ID, r.ttl); err != nil {
		logger.Get().Warn("qr token cache write failed", zap.Error(err))
	}
	return event, nil
}

// UpdateQRToken replaces the token and drops the old mapping
func (r *CachedEventRepository) UpdateQRToken(ctx context.Context, id, token string, generatedAt time.Time) error {
	old, err := r.EventRepository.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.EventRepository.UpdateQRToken(ctx, id, token, generatedAt); err != nil {
		return err
	}
	if old != nil {
		r.invalidate(ctx, qrTokenKeyPrefix+old.QRToken)
	}
	return nil
}

// Create creates the event and drops cached aggregates
func (r *CachedEventRepository) Create(ctx context.Context, event *domain.Event) error {
	if err := r.EventRepository.Create(ctx, event); err != nil {
		return err
	}
	r.invalidateStats(ctx)
	return nil
}

// Update updates the event and drops cached aggregates
func (r *CachedEventRepository) Update(ctx context.Context, event *domain.Event) error {
	if err := r.EventRepository.Update(ctx, event); err != nil {
		return err
	}
	r.invalidateStats(ctx)
	return nil
}

// Delete deletes the event, its token mapping and cached aggregates
func (r *CachedEventRepository) Delete(ctx context.Context, id string) error {
	old, err := r.EventRepository.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.EventRepository.Delete(ctx, id); err != nil {
		return err
	}
	if old != nil {
		r.invalidate(ctx, qrTokenKeyPrefix+old.QRToken)
	}
	r.invalidateStats(ctx)
	return nil
}

// UpdateStatus forwards the conditional update and drops cached aggregates
// when a row changed
func (r *CachedEventRepository) UpdateStatus(ctx context.Context, id string, from []domain.EventStatus, to domain.EventStatus) (bool, error) {
	changed, err := r.EventRepository.UpdateStatus(ctx, id, from, to)
	if err != nil {
		return false, err
	}
	if changed {
		r.invalidateStats(ctx)
	}
	return changed, nil
}

// CountByStatus caches the count per status
func (r *CachedEventRepository) CountByStatus(ctx context.Context, status domain.EventStatus) (int, error) {
	return r.cachedCount(ctx, statOpenEvents+":"+string(status), func() (int, error) {
		return r.EventRepository.CountByStatus(ctx, status)
	})
}

// CountStartingBetween caches the count per day window
func (r *CachedEventRepository) CountStartingBetween(ctx context.Context, from, to time.Time) (int, error) {
	key := fmt.Sprintf("starting:%s:%s", from.UTC().Format("2006-01-02"), to.UTC().Format("2006-01-02"))
	return r.cachedCount(ctx, key, func() (int, error) {
		return r.EventRepository.CountStartingBetween(ctx, from, to)
	})
}

// CountAttendeesByStatus caches the participant count per status
func (r *CachedEventRepository) CountAttendeesByStatus(ctx context.Context, status domain.EventStatus) (int, error) {
	return r.cachedCount(ctx, statOpenParticipants+":"+string(status), func() (int, error) {
		return r.EventRepository.CountAttendeesByStatus(ctx, status)
	})
}

// InvalidateStats drops cached aggregates. Registration writes call it since
// they change participant counts without passing through this repository.
func (r *CachedEventRepository) InvalidateStats(ctx context.Context) {
	r.invalidateStats(ctx)
}

func (r *CachedEventRepository) cachedCount(ctx context.Context, name string, load func() (int, error)) (int, error) {
	gen, ok := r.statsGeneration(ctx)
	if !ok {
		return load()
	}
	key := fmt.Sprintf("%s%d:%s", statsKeyPrefix, gen, name)

	var count int
	err := r.cache.GetJSON(ctx, key, &count)
	if err == nil {
		return count, nil
	}
	if !errors.Is(err, pkgredis.ErrCacheMiss) {
		logger.Get().Warn("stats cache read failed", zap.String("key", key), zap.Error(err))
	}

	count, err = load()
	if err != nil {
		return 0, err
	}
	if err := r.cache.SetJSON(ctx, key, count, r.ttl); err != nil {
		logger.Get().Warn("stats cache write failed", zap.String("key", key), zap.Error(err))
	}
	return count, nil
}

// statsGeneration returns the generation every stats key is written under.
// A missing generation is initialized, orphaning whatever was cached before.
func (r *CachedEventRepository) statsGeneration(ctx context.Context) (int64, bool) {
	var gen int64
	err := r.cache.GetJSON(ctx, statsGenerationKey, &gen)
	if err == nil {
		return gen, true
	}
	if !errors.Is(err, pkgredis.ErrCacheMiss) {
		logger.Get().Warn("stats generation read failed", zap.Error(err))
		return 0, false
	}
	return r.bumpStatsGeneration(ctx, 0)
}

// invalidateStats moves to a new generation. Keys of the old one, whatever
// their status or day window, are never read again and expire with their TTL.
func (r *CachedEventRepository) invalidateStats(ctx context.Context) {
	var gen int64
	if err := r.cache.GetJSON(ctx, statsGenerationKey, &gen); err != nil && !errors.Is(err, pkgredis.ErrCacheMiss) {
		logger.Get().Warn("stats generation read failed", zap.Error(err))
	}
	r.bumpStatsGeneration(ctx, gen)
}

func (r *CachedEventRepository) bumpStatsGeneration(ctx context.Context, current int64) (int64, bool) {
	next := time.Now().UnixNano()
	if next <= current {
		next = current + 1
	}
	if err := r.cache.SetJSON(ctx, statsGenerationKey, next, 0); err != nil {
		logger.Get().Warn("stats invalidation failed", zap.Error(err))
		return 0, false
	}
	return next, true
}

func (r *CachedEventRepository) invalidate(ctx context.Context, keys ...string) {
	if err := r.cache.Del(ctx, keys...).Err(); err != nil {
		logger.Get().Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
