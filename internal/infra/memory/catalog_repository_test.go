package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clip-trivia-service/internal/domain"
)

func TestCatalogRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		LevelLoader: NewStaticCatalogLoader(map[int]domain.Level{
			1: sampleLevel(),
		}),
	}
	repo := NewCatalogRepository(loader, time.Minute)

	if _, err := repo.GetLevel(context.Background(), 1); err != nil {
		t.Fatalf("get level: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader once, got %d", loader.count())
	}

	level, err := repo.GetLevel(context.Background(), 1)
	if err != nil {
		t.Fatalf("get level 2: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.count())
	}
	if level.TotalQuestions() != 2 {
		t.Fatalf("expected 2 questions, got %d", level.TotalQuestions())
	}
}

func TestCatalogRepositoryExpires(t *testing.T) {
	loader := &countingLoader{
		LevelLoader: NewStaticCatalogLoader(map[int]domain.Level{1: sampleLevel()}),
	}
	repo := NewCatalogRepository(loader, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetLevel(context.Background(), 1)
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetLevel(context.Background(), 1)

	if loader.count() != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.count())
	}
}

func TestCatalogRepositoryUnknownLevel(t *testing.T) {
	repo := NewCatalogRepository(NewStaticCatalogLoader(nil), 0)

	_, err := repo.GetLevel(context.Background(), 9)
	if !errors.Is(err, domain.ErrLevelNotFound) {
		t.Fatalf("expected level not found, got %v", err)
	}
}

type countingLoader struct {
	LevelLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadLevel(ctx context.Context, level int) (domain.Level, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.LevelLoader.LoadLevel(ctx, level)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleLevel() domain.Level {
	return domain.Level{
		Number: 1,
		Questions: []domain.Question{
			{Number: 1, VideoRef: "/movies/a.mp4", PosterRef: "/posters/a.jpg", CorrectAnswer: 2},
			{Number: 2, VideoRef: "/movies/b.mp4", PosterRef: "/posters/b.jpg", CorrectAnswer: 1},
		},
	}
}
