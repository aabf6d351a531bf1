package app

import (
	"context"
	"errors"
	"fmt"

	"clip-trivia-service/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// CatalogRepository loads question sets (from cache/backing store).
type CatalogRepository interface {
	GetLevel(ctx context.Context, level int) (domain.Level, error)
}

// EventPublisher announces session lifecycle transitions.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.SessionEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.SessionEvent) error { return nil }

// GameService contains the use cases the presentation layer calls on every poll.
type GameService struct {
	registry *Registry
	catalog  CatalogRepository
	events   EventPublisher
	clock    clockwork.Clock
}

func NewGameService(registry *Registry, catalog CatalogRepository, events EventPublisher) *GameService {
	if events == nil {
		events = NopPublisher{}
	}
	s := &GameService{
		registry: registry,
		catalog:  catalog,
		events:   events,
		clock:    registry.clock,
	}
	if registry.onEvict == nil {
		registry.onEvict = s.evicted
	}
	return s
}

// CreateGame opens a session for a level and joins the creator as player 1.
func (s *GameService) CreateGame(ctx context.Context, level int) (domain.JoinResult, error) {
	questions, err := s.catalog.GetLevel(ctx, level)
	if err != nil {
		return domain.JoinResult{}, err
	}

	session, err := s.registry.Create(questions)
	if err != nil {
		return domain.JoinResult{}, err
	}
	player := session.Join()

	log.Info().Int("code", session.Code()).Int("level", level).Msg("game created")
	s.publish(ctx, domain.EventSessionCreated, session.Snapshot())

	return domain.JoinResult{Code: session.Code(), Player: player, Players: player}, nil
}

// Join hands out the next player slot of a session.
func (s *GameService) Join(_ context.Context, code int) (domain.JoinResult, error) {
	session, err := s.registry.Lookup(code)
	if err != nil {
		return domain.JoinResult{}, err
	}
	player := session.Join()
	log.Info().Int("code", code).Int("player", player).Msg("player joined")
	return domain.JoinResult{Code: code, Player: player, Players: player}, nil
}

// Lobby returns the session summary polled while waiting for players or start.
func (s *GameService) Lobby(_ context.Context, code int) (domain.SessionSummary, error) {
	session, err := s.registry.Lookup(code)
	if err != nil {
		return domain.SessionSummary{}, err
	}
	return session.Snapshot(), nil
}

// Start begins the game and returns the first question for the starting player.
func (s *GameService) Start(ctx context.Context, code, player int) (domain.QuestionPoll, error) {
	session, err := s.registry.Lookup(code)
	if err != nil {
		return domain.QuestionPoll{}, err
	}
	if summary := session.Snapshot(); player < 1 || player > summary.Players {
		return domain.QuestionPoll{}, fmt.Errorf("player %d of %d: %w", player, summary.Players, domain.ErrInvalidPlayer)
	}
	if session.Start() {
		log.Info().Int("code", code).Int("player", player).Msg("game started")
		s.publish(ctx, domain.EventSessionStarted, session.Snapshot())
	}
	return s.requestQuestion(ctx, session, player)
}

// RequestQuestion serves the current question, advancing or ending the game
// when this player is the first to ask after finishing a question.
func (s *GameService) RequestQuestion(ctx context.Context, code, player int) (domain.QuestionPoll, error) {
	session, err := s.registry.Lookup(code)
	if err != nil {
		return domain.QuestionPoll{}, err
	}
	return s.requestQuestion(ctx, session, player)
}

func (s *GameService) requestQuestion(ctx context.Context, session *Session, player int) (domain.QuestionPoll, error) {
	poll, ended, err := session.RequestQuestion(player)
	if err != nil {
		return domain.QuestionPoll{}, err
	}
	if ended {
		log.Info().Int("code", session.Code()).Int("player", player).Msg("game ended")
		s.publish(ctx, domain.EventSessionEnded, session.Snapshot())
	}
	return poll, nil
}

// SubmitAnswer records an answer for the current question and returns the
// answer status. Repeated submissions keep the first answer.
func (s *GameService) SubmitAnswer(_ context.Context, code, player, question, answer int) (domain.AnswerStatus, error) {
	session, err := s.registry.Lookup(code)
	if err != nil {
		return domain.AnswerStatus{}, err
	}
	if err := session.RecordAnswer(player, question, answer); err != nil {
		if !errors.Is(err, domain.ErrDuplicateAnswer) {
			return domain.AnswerStatus{}, err
		}
		log.Debug().Int("code", code).Int("player", player).Int("question", question).Msg("duplicate answer ignored")
	}
	return session.AnswerStatus(player)
}

// AnswerStatus is polled by players waiting for the others to answer.
func (s *GameService) AnswerStatus(_ context.Context, code, player int) (domain.AnswerStatus, error) {
	session, err := s.registry.Lookup(code)
	if err != nil {
		return domain.AnswerStatus{}, err
	}
	return session.AnswerStatus(player)
}

// Summary returns the score screen for a player.
func (s *GameService) Summary(_ context.Context, code, player int) (domain.SummaryView, error) {
	session, err := s.registry.Lookup(code)
	if err != nil {
		return domain.SummaryView{}, err
	}
	return session.Summary(player)
}

// ActiveGames counts sessions that were created and have not ended yet.
func (s *GameService) ActiveGames() int {
	_, active := s.registry.Stats()
	return active
}

// SuggestCode returns a code players can join, or 0.
func (s *GameService) SuggestCode() int {
	return s.registry.SuggestCode()
}

func (s *GameService) evicted(summary domain.SessionSummary) {
	log.Info().Int("code", summary.Code).Str("state", string(summary.State)).Msg("game evicted")
	s.publish(context.Background(), domain.EventSessionEvicted, summary)
}

func (s *GameService) publish(ctx context.Context, kind domain.EventKind, summary domain.SessionSummary) {
	event := domain.SessionEvent{
		Kind:       kind,
		Code:       summary.Code,
		Level:      summary.Level,
		Players:    summary.Players,
		OccurredAt: s.clock.Now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Int("code", summary.Code).Str("kind", string(kind)).Msg("publish session event failed")
	}
}
