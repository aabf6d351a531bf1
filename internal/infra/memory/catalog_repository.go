package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"clip-trivia-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// LevelLoader fetches a level's questions from a backing store (CSV file, Postgres).
type LevelLoader interface {
	LoadLevel(ctx context.Context, level int) (domain.Level, error)
}

// CatalogRepository caches levels to avoid repeated loads. A zero TTL keeps
// entries forever, which suits the immutable catalog.
type CatalogRepository struct {
	loader LevelLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[int]cachedLevel
}

type cachedLevel struct {
	level     domain.Level
	expiresAt time.Time
}

func NewCatalogRepository(loader LevelLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int]cachedLevel),
	}
}

func (r *CatalogRepository) GetLevel(ctx context.Context, level int) (domain.Level, error) {
	if cached, ok := r.lookup(level); ok {
		return cached, nil
	}

	result, err, _ := r.sf.Do(levelKey(level), func() (interface{}, error) {
		if cached, ok := r.lookup(level); ok {
			return cached, nil
		}

		loaded, err := r.loader.LoadLevel(ctx, level)
		if err != nil {
			return domain.Level{}, err
		}

		entry := cachedLevel{level: loaded}
		if ttl := r.ttlWithJitter(); ttl > 0 {
			entry.expiresAt = r.clock().Add(ttl)
		}
		r.mu.Lock()
		r.cache[level] = entry
		r.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return domain.Level{}, err
	}
	return result.(domain.Level), nil
}

func (r *CatalogRepository) lookup(level int) (domain.Level, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[level]
	if !ok {
		return domain.Level{}, false
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(r.clock()) {
		return domain.Level{}, false
	}
	return entry.level, true
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticCatalogLoader is a loader backed by an in-memory map (useful for tests/demos).
type StaticCatalogLoader struct {
	levels map[int]domain.Level
}

func NewStaticCatalogLoader(levels map[int]domain.Level) *StaticCatalogLoader {
	return &StaticCatalogLoader{levels: levels}
}

func (l *StaticCatalogLoader) LoadLevel(_ context.Context, level int) (domain.Level, error) {
	if questions, ok := l.levels[level]; ok && len(questions.Questions) > 0 {
		return questions, nil
	}
	return domain.Level{}, domain.ErrLevelNotFound
}

func levelKey(level int) string {
	return "level:" + strconv.Itoa(level)
}
