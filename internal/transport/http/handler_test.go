package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clip-trivia-service/internal/app"
	"clip-trivia-service/internal/domain"
	"clip-trivia-service/internal/infra/memory"
)

func TestPollingFlowOverHTTP(t *testing.T) {
	server := httptest.NewServer(NewRouter(newTestService(), RouterOptions{}))
	defer server.Close()

	var created domain.JoinResult
	doJSON(t, http.MethodPost, server.URL+"/games?level=1", http.StatusCreated, &created)
	if created.Code != 4321 || created.Player != 1 {
		t.Fatalf("unexpected create result %+v", created)
	}

	var joined domain.JoinResult
	doJSON(t, http.MethodPost, fmt.Sprintf("%s/games/%d/players", server.URL, created.Code), http.StatusCreated, &joined)
	if joined.Player != 2 {
		t.Fatalf("expected player 2, got %+v", joined)
	}

	var suggested suggestPayload
	doJSON(t, http.MethodGet, server.URL+"/games/suggest", http.StatusOK, &suggested)
	if suggested.Code != created.Code {
		t.Fatalf("expected suggestion %d, got %d", created.Code, suggested.Code)
	}

	var poll domain.QuestionPoll
	doJSON(t, http.MethodPost, fmt.Sprintf("%s/games/%d/players/1/start", server.URL, created.Code), http.StatusOK, &poll)
	if poll.Question == nil || poll.Question.QuestionInfo != "question 1 out of 1" {
		t.Fatalf("unexpected poll %+v", poll)
	}

	var lobby domain.SessionSummary
	doJSON(t, http.MethodGet, fmt.Sprintf("%s/games/%d", server.URL, created.Code), http.StatusOK, &lobby)
	if !lobby.Running || lobby.Players != 2 || lobby.CurrentQuestion != 1 {
		t.Fatalf("unexpected lobby %+v", lobby)
	}

	var status domain.AnswerStatus
	doJSON(t, http.MethodPost, fmt.Sprintf("%s/games/%d/players/1/questions/1/answers/3", server.URL, created.Code), http.StatusOK, &status)
	if status.Due || status.Wait == nil || status.Wait.PlayersAnsweredSoFar != 1 {
		t.Fatalf("expected wait view, got %+v", status)
	}

	doJSON(t, http.MethodPost, fmt.Sprintf("%s/games/%d/players/2/questions/1/answers/1", server.URL, created.Code), http.StatusOK, &status)
	doJSON(t, http.MethodGet, fmt.Sprintf("%s/games/%d/players/1/answer", server.URL, created.Code), http.StatusOK, &status)
	if !status.Due || status.Reveal == nil || !status.Reveal.SelfWasCorrect {
		t.Fatalf("expected reveal view, got %+v", status)
	}

	doJSON(t, http.MethodGet, fmt.Sprintf("%s/games/%d/players/1/question", server.URL, created.Code), http.StatusOK, &poll)
	if poll.Summary == nil {
		t.Fatalf("expected summary after final question, got %+v", poll)
	}

	var summary domain.SummaryView
	doJSON(t, http.MethodGet, fmt.Sprintf("%s/games/%d/players/2/summary", server.URL, created.Code), http.StatusOK, &summary)
	if summary.WinnerSummary != "Top score, with 1 correct answers: PLAYER 1" {
		t.Fatalf("unexpected summary %+v", summary)
	}

	var home homePayload
	doJSON(t, http.MethodGet, server.URL+"/", http.StatusOK, &home)
	if home.ActiveGames != 0 {
		t.Fatalf("expected no running games, got %d", home.ActiveGames)
	}
}

func TestErrorStatuses(t *testing.T) {
	server := httptest.NewServer(NewRouter(newTestService(), RouterOptions{}))
	defer server.Close()

	var failure errorPayload
	doJSON(t, http.MethodGet, server.URL+"/games/1111", http.StatusNotFound, &failure)
	doJSON(t, http.MethodPost, server.URL+"/games?level=abc", http.StatusBadRequest, &failure)
	doJSON(t, http.MethodPost, server.URL+"/games?level=9", http.StatusNotFound, &failure)

	var created domain.JoinResult
	doJSON(t, http.MethodPost, server.URL+"/games?level=1", http.StatusCreated, &created)
	doJSON(t, http.MethodGet, fmt.Sprintf("%s/games/%d/players/1/question", server.URL, created.Code), http.StatusConflict, &failure)
	doJSON(t, http.MethodGet, fmt.Sprintf("%s/games/%d/players/7/summary", server.URL, created.Code), http.StatusBadRequest, &failure)
}

func TestRequestIDHeader(t *testing.T) {
	server := httptest.NewServer(NewRouter(newTestService(), RouterOptions{}))
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.Header.Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestStatusFor(t *testing.T) {
	if got := StatusFor(fmt.Errorf("wrapped: %w", domain.ErrSessionNotFound)); got != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", got)
	}
	if got := StatusFor(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", got)
	}
}

func doJSON(t *testing.T, method, url string, wantStatus int, out any) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected status %d, got %d", method, url, wantStatus, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func newTestService() *app.GameService {
	registry := app.NewRegistry(memory.NewSessionStore(), domain.DefaultDelays(),
		app.WithCodeSource(func() int { return 4321 }))
	catalog := memory.NewCatalogRepository(memory.NewStaticCatalogLoader(sampleLevels()), time.Minute)
	return app.NewGameService(registry, catalog, nil)
}

func sampleLevels() map[int]domain.Level {
	return map[int]domain.Level{
		1: {
			Number: 1,
			Questions: []domain.Question{
				{Number: 1, VideoRef: "/movies/jaws.mp4", PosterRef: "/posters/jaws.jpg", CorrectAnswer: 3},
			},
		},
	}
}
