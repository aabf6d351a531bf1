package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"clip-trivia-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// LevelLoader fetches a level from a backing store (CSV file, Postgres).
type LevelLoader interface {
	LoadLevel(ctx context.Context, level int) (domain.Level, error)
}

// CatalogRepository caches levels in Redis (hash per level) and falls back to a loader on cache miss.
// Questions are stored as: HSET trivia:catalog:{level} {number} {question JSON}
type CatalogRepository struct {
	client *redis.Client
	loader LevelLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCatalogRepository(client *redis.Client, loader LevelLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) GetLevel(ctx context.Context, level int) (domain.Level, error) {
	key := r.levelKey(level)

	if cached, ok := r.fromCache(ctx, key, level); ok {
		return cached, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if cached, ok := r.fromCache(ctx, key, level); ok {
			return cached, nil
		}

		loaded, err := r.loader.LoadLevel(ctx, level)
		if err != nil {
			return domain.Level{}, err
		}

		pipe := r.client.Pipeline()
		for _, q := range loaded.Questions {
			raw, err := json.Marshal(q)
			if err != nil {
				return domain.Level{}, err
			}
			pipe.HSet(ctx, key, strconv.Itoa(q.Number), raw)
		}
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			log.Warn().Err(err).Int("level", level).Msg("redis catalog fill failed")
		}

		return loaded, nil
	})
	if err != nil {
		return domain.Level{}, err
	}
	return result.(domain.Level), nil
}

func (r *CatalogRepository) fromCache(ctx context.Context, key string, level int) (domain.Level, bool) {
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil || len(fields) == 0 {
		return domain.Level{}, false
	}
	cached, err := buildLevelFromCache(level, fields)
	if err != nil {
		log.Warn().Err(err).Int("level", level).Msg("discarding malformed cached level")
		return domain.Level{}, false
	}
	return cached, true
}

func (r *CatalogRepository) levelKey(level int) string {
	return "trivia:catalog:" + strconv.Itoa(level)
}

func buildLevelFromCache(level int, fields map[string]string) (domain.Level, error) {
	questions := make([]domain.Question, 0, len(fields))
	for _, raw := range fields {
		var q domain.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return domain.Level{}, err
		}
		questions = append(questions, q)
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].Number < questions[j].Number })
	for i, q := range questions {
		if q.Number != i+1 {
			return domain.Level{}, domain.ErrInvalidCatalog
		}
	}
	return domain.Level{Number: level, Questions: questions}, nil
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
