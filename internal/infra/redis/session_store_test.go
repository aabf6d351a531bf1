package redis

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"clip-trivia-service/internal/app"
	"clip-trivia-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)
	session := app.NewSession(4321, sampleLevel(), domain.DefaultDelays(), nil)

	if !store.Insert(4321, session) {
		t.Fatalf("expected insert to succeed")
	}
	if !mr.Exists("trivia:session:4321") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("trivia:session:4321"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %s", ttl)
	}

	store.Delete(4321, session)
	if mr.Exists("trivia:session:4321") {
		t.Fatalf("expected redis key to be removed")
	}
	if n := len(store.List()); n != 0 {
		t.Fatalf("expected empty store, got %d", n)
	}
}

func TestSessionStoreRejectsReservedCode(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	if err := mr.Set("trivia:session:5555", "1"); err != nil {
		t.Fatalf("seed key: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	if store.Insert(5555, app.NewSession(5555, sampleLevel(), domain.DefaultDelays(), nil)) {
		t.Fatalf("expected reserved code to be rejected")
	}
	if _, ok := store.Get(5555); ok {
		t.Fatalf("expected no local session for reserved code")
	}
}

func TestSessionStoreFallsBackWhenRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	mr.Close()

	store := NewSessionStore(client, time.Minute)
	if !store.Insert(1111, app.NewSession(1111, sampleLevel(), domain.DefaultDelays(), nil)) {
		t.Fatalf("expected local insert despite redis failure")
	}
}

func TestSessionStoreGetDoesNotWaitOnRedis(t *testing.T) {
	dialing := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	client := redis.NewClient(&redis.Options{
		Addr:       "127.0.0.1:0",
		MaxRetries: -1,
		Dialer: func(ctx context.Context, network, addr string) (net.Conn, error) {
			once.Do(func() { close(dialing) })
			<-release
			return nil, errors.New("redis unreachable")
		},
	})
	defer client.Close()

	store := NewSessionStore(client, time.Minute)
	live := app.NewSession(1111, sampleLevel(), domain.DefaultDelays(), nil)
	store.sessions[1111] = live

	inserted := make(chan bool, 1)
	go func() {
		inserted <- store.Insert(2222, app.NewSession(2222, sampleLevel(), domain.DefaultDelays(), nil))
	}()

	select {
	case <-dialing:
	case <-time.After(5 * time.Second):
		t.Fatalf("insert never reached redis")
	}

	got := make(chan *app.Session, 1)
	go func() {
		session, _ := store.Get(1111)
		got <- session
	}()
	select {
	case session := <-got:
		if session != live {
			t.Fatalf("expected live session from local map")
		}
	case <-time.After(time.Second):
		t.Fatalf("get blocked while redis was stalled")
	}
	if n := len(store.List()); n != 1 {
		t.Fatalf("expected list to answer during the stall, got %d sessions", n)
	}

	close(release)
	select {
	case ok := <-inserted:
		if !ok {
			t.Fatalf("expected local insert after redis failure")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("insert did not finish")
	}
}

func TestSessionStoreDeleteReleasesKeyAfterUnlock(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	session := app.NewSession(3333, sampleLevel(), domain.DefaultDelays(), nil)
	if !store.Insert(3333, session) {
		t.Fatalf("expected insert")
	}

	other := app.NewSession(3333, sampleLevel(), domain.DefaultDelays(), nil)
	store.Delete(3333, other)
	if !mr.Exists("trivia:session:3333") {
		t.Fatalf("deleting a different session must keep the reservation")
	}

	store.Delete(3333, session)
	if mr.Exists("trivia:session:3333") {
		t.Fatalf("expected reservation released")
	}
	if !store.Insert(3333, other) {
		t.Fatalf("expected code to be reusable after release")
	}
}
