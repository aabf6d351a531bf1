package app

import (
	"sort"
	"time"

	"clip-trivia-service/internal/domain"
)

// Answer is a single recorded submission.
type Answer struct {
	Value   int
	Correct bool
}

// AnswerTracker records answers per player and question. It is not safe for
// concurrent use on its own; Session serializes access to it.
type AnswerTracker struct {
	byPlayer map[int]map[int]Answer
}

func NewAnswerTracker() *AnswerTracker {
	return &AnswerTracker{byPlayer: make(map[int]map[int]Answer)}
}

// Record stores the first answer a player gives for a question.
func (t *AnswerTracker) Record(player, question, value int, correct bool) error {
	answers, ok := t.byPlayer[player]
	if !ok {
		answers = make(map[int]Answer)
		t.byPlayer[player] = answers
	}
	if _, exists := answers[question]; exists {
		return domain.ErrDuplicateAnswer
	}
	answers[question] = Answer{Value: value, Correct: correct}
	return nil
}

// Lookup returns the answer a player recorded for a question.
func (t *AnswerTracker) Lookup(player, question int) (Answer, bool) {
	answer, ok := t.byPlayer[player][question]
	return answer, ok
}

// LastAnswered returns the highest question index the player answered, or 0.
func (t *AnswerTracker) LastAnswered(player int) int {
	last := 0
	for question := range t.byPlayer[player] {
		if question > last {
			last = question
		}
	}
	return last
}

// CountAnswered counts players 1..totalPlayers with an answer for the question.
func (t *AnswerTracker) CountAnswered(question, totalPlayers int) int {
	count := 0
	for player := 1; player <= totalPlayers; player++ {
		if _, ok := t.Lookup(player, question); ok {
			count++
		}
	}
	return count
}

// CorrectCount counts players 1..totalPlayers that answered the question correctly.
func (t *AnswerTracker) CorrectCount(question, totalPlayers int) int {
	count := 0
	for player := 1; player <= totalPlayers; player++ {
		if answer, ok := t.Lookup(player, question); ok && answer.Correct {
			count++
		}
	}
	return count
}

// IsDue reports whether the answer window for a question has closed, either
// because the question timed out or because every player answered.
func (t *AnswerTracker) IsDue(question, totalPlayers int, startedAt time.Time, questionDelay, commDelay time.Duration, now time.Time) bool {
	if now.Sub(startedAt) >= questionDelay+commDelay {
		return true
	}
	return t.CountAnswered(question, totalPlayers) == totalPlayers
}

// Players returns the slots with at least one recorded answer, ascending.
func (t *AnswerTracker) Players() []int {
	players := make([]int, 0, len(t.byPlayer))
	for player, answers := range t.byPlayer {
		if len(answers) > 0 {
			players = append(players, player)
		}
	}
	sort.Ints(players)
	return players
}

// CorrectTotal sums correct answers across all questions for a player.
func (t *AnswerTracker) CorrectTotal(player int) int {
	total := 0
	for _, answer := range t.byPlayer[player] {
		if answer.Correct {
			total++
		}
	}
	return total
}
