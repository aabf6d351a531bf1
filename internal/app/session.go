package app

import (
	"fmt"
	"sync"
	"time"

	"clip-trivia-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Session is the state machine of one game. All progression is driven by
// player polls; every check-and-transition happens under mu.
type Session struct {
	code   int
	level  domain.Level
	delays domain.Delays
	clock  clockwork.Clock

	mu               sync.Mutex
	state            domain.State
	players          int
	createdAt        time.Time
	startedAt        time.Time
	current          int
	currentStartedAt time.Time
	answers          *AnswerTracker
	scored           bool
	scores           []domain.ScoreEntry
	winner           string
}

// NewSession creates a session in the joining state.
func NewSession(code int, level domain.Level, delays domain.Delays, clock clockwork.Clock) *Session {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Session{
		code:      code,
		level:     level,
		delays:    delays,
		clock:     clock,
		state:     domain.StateJoining,
		createdAt: clock.Now(),
		answers:   NewAnswerTracker(),
	}
}

// Code returns the game code. It never changes.
func (s *Session) Code() int {
	return s.code
}

// Join allocates the next 1-based player slot. Joining is allowed in any state.
func (s *Session) Join() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players++
	return s.players
}

// Start moves a joining session to in-progress. It reports whether the
// transition happened; later calls leave the start time untouched.
func (s *Session) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateJoining {
		return false
	}
	now := s.clock.Now()
	s.state = domain.StateInProgress
	s.startedAt = now
	s.currentStartedAt = now
	return true
}

// RequestQuestion returns the question the player should see now. A player
// who already answered the current question advances the game for everyone;
// a player who answered the final question ends it. The returned bool is true
// only for the call that ended the game.
func (s *Session) RequestQuestion(player int) (domain.QuestionPoll, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkPlayerLocked(player); err != nil {
		return domain.QuestionPoll{}, false, err
	}
	if s.state == domain.StateJoining {
		return domain.QuestionPoll{}, false, domain.ErrSessionNotStarted
	}

	last := s.answers.LastAnswered(player)
	ended := false
	if s.state == domain.StateInProgress && last == s.level.TotalQuestions() {
		s.state = domain.StateEnded
		ended = true
	}
	if s.state == domain.StateEnded {
		summary := s.summaryLocked(player)
		return domain.QuestionPoll{Summary: &summary}, ended, nil
	}

	if last == s.current {
		s.current++
		s.currentStartedAt = s.clock.Now()
	}

	question, ok := s.level.QuestionAt(s.current)
	if !ok {
		return domain.QuestionPoll{}, false, fmt.Errorf("question %d of level %d: %w", s.current, s.level.Number, domain.ErrInvalidCatalog)
	}
	return domain.QuestionPoll{Question: &domain.QuestionView{
		Number:          question.Number,
		VideoRef:        question.VideoRef,
		QuestionInfo:    fmt.Sprintf("question %d out of %d", s.current, s.level.TotalQuestions()),
		QuestionSeconds: int(s.delays.Question / time.Second),
	}}, false, nil
}

// RecordAnswer stores a player's answer for the current question. Only the
// first answer per player and question is kept.
func (s *Session) RecordAnswer(player, question, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkPlayerLocked(player); err != nil {
		return err
	}
	switch s.state {
	case domain.StateJoining:
		return domain.ErrSessionNotStarted
	case domain.StateEnded:
		return domain.ErrSessionNotRunning
	}
	if question != s.current || s.current == 0 {
		return domain.ErrStaleQuestion
	}
	q, _ := s.level.QuestionAt(question)
	return s.answers.Record(player, question, value, value == q.CorrectAnswer)
}

// AnswerStatus tells a player that answered the current question whether to
// reveal the answer or keep waiting for the others.
func (s *Session) AnswerStatus(player int) (domain.AnswerStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkPlayerLocked(player); err != nil {
		return domain.AnswerStatus{}, err
	}
	if s.state == domain.StateJoining || s.current == 0 {
		return domain.AnswerStatus{}, domain.ErrSessionNotStarted
	}

	now := s.clock.Now()
	answer, answered := s.answers.Lookup(player, s.current)
	due := s.answers.IsDue(s.current, s.players, s.currentStartedAt, s.delays.Question, s.delays.Comm, now)
	if due || (answered && answer.Value == domain.NoAnswer) {
		question, _ := s.level.QuestionAt(s.current)
		selfCorrect := answered && answer.Correct
		others := s.answers.CorrectCount(s.current, s.players)
		if selfCorrect {
			others--
		}
		return domain.AnswerStatus{Due: true, Reveal: &domain.RevealView{
			PosterRef:          question.PosterRef,
			SelfWasCorrect:     selfCorrect,
			OthersCorrectCount: others,
			ShowOthers:         s.players > 1,
			AnswerSeconds:      int(s.delays.Answer / time.Second),
		}}, nil
	}

	remaining := int((s.delays.Question - now.Sub(s.currentStartedAt)) / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	return domain.AnswerStatus{Wait: &domain.WaitView{
		SecondsRemaining:     remaining,
		PlayersAnsweredSoFar: s.answers.CountAnswered(s.current, s.players),
	}}, nil
}

// Summary returns the score screen for a player. Scores are frozen the first
// time they are computed after the game ended.
func (s *Session) Summary(player int) (domain.SummaryView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkPlayerLocked(player); err != nil {
		return domain.SummaryView{}, err
	}
	if s.state == domain.StateJoining {
		return domain.SummaryView{}, domain.ErrSessionNotStarted
	}
	return s.summaryLocked(player), nil
}

// Snapshot returns the presentation-facing session summary.
func (s *Session) Snapshot() domain.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SessionSummary{
		Code:            s.code,
		Level:           s.level.Number,
		State:           s.state,
		Running:         s.state == domain.StateInProgress,
		CurrentQuestion: s.current,
		TotalQuestions:  s.level.TotalQuestions(),
		Players:         s.players,
	}
}

// Expired reports whether the session outlived its eviction budget. Sessions
// that never started are measured from creation.
func (s *Session) Expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	anchor := s.startedAt
	if anchor.IsZero() {
		anchor = s.createdAt
	}
	return now.Sub(anchor) > s.delays.EvictionBudget(s.level.TotalQuestions())
}

func (s *Session) checkPlayerLocked(player int) error {
	if player < 1 || player > s.players {
		return fmt.Errorf("player %d of %d: %w", player, s.players, domain.ErrInvalidPlayer)
	}
	return nil
}

func (s *Session) summaryLocked(player int) domain.SummaryView {
	scores, winner := s.scores, s.winner
	if !s.scored {
		scores = ComputeScores(s.answers)
		winner = WinnerSummary(scores)
		if s.state == domain.StateEnded {
			s.scores, s.winner, s.scored = scores, winner, true
		}
	}

	view := domain.SummaryView{
		Level:  s.level.Number,
		Scores: append([]domain.ScoreEntry(nil), scores...),
	}
	for _, entry := range scores {
		if entry.Player == player {
			view.SelfScoreText = fmt.Sprintf("You had %d correct answers out of %d", entry.Correct, s.level.TotalQuestions())
			break
		}
	}
	if s.players > 1 {
		view.WinnerSummary = winner
	}
	return view
}
