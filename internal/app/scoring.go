package app

import (
	"fmt"
	"sort"
	"strings"

	"clip-trivia-service/internal/domain"
)

// ComputeScores tallies correct answers for every player that answered at
// least once. Entries are ordered by score descending; equal scores keep
// ascending player order.
func ComputeScores(answers *AnswerTracker) []domain.ScoreEntry {
	players := answers.Players()
	scores := make([]domain.ScoreEntry, 0, len(players))
	for _, player := range players {
		scores = append(scores, domain.ScoreEntry{
			Player:  player,
			Correct: answers.CorrectTotal(player),
		})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Correct > scores[j].Correct
	})
	return scores
}

// WinnerSummary names every player sharing the top score.
func WinnerSummary(scores []domain.ScoreEntry) string {
	if len(scores) == 0 {
		return ""
	}
	top := scores[0].Correct
	names := make([]string, 0, 1)
	for _, entry := range scores {
		if entry.Correct != top {
			break
		}
		names = append(names, fmt.Sprintf("PLAYER %d", entry.Player))
	}
	return fmt.Sprintf("Top score, with %d correct answers: %s", top, strings.Join(names, ", "))
}
