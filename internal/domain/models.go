package domain

import "time"

// NoAnswer is submitted by clients whose answer timer ran out.
const NoAnswer = 0

// Question is a single clip in a level's question sequence.
type Question struct {
	Number        int    `json:"number"`
	VideoRef      string `json:"videoRef"`
	PosterRef     string `json:"posterRef"`
	CorrectAnswer int    `json:"correctAnswer"`
}

// Level is an ordered, immutable question set. Questions[i] has Number i+1.
type Level struct {
	Number    int        `json:"number"`
	Questions []Question `json:"questions"`
}

// TotalQuestions returns the number of questions in the level.
func (l Level) TotalQuestions() int {
	return len(l.Questions)
}

// QuestionAt returns the 1-based question n.
func (l Level) QuestionAt(n int) (Question, bool) {
	if n < 1 || n > len(l.Questions) {
		return Question{}, false
	}
	return l.Questions[n-1], true
}

// Delays are the process-wide game timings.
type Delays struct {
	Question time.Duration `json:"question"`
	Answer   time.Duration `json:"answer"`
	Comm     time.Duration `json:"comm"`
}

// DefaultDelays mirrors the timings the clients were tuned for.
func DefaultDelays() Delays {
	return Delays{
		Question: 15 * time.Second,
		Answer:   3 * time.Second,
		Comm:     10 * time.Second,
	}
}

// EvictionBudget is the wall-clock time a session may stay registered:
// one full question cycle per question plus one for the summary screen.
func (d Delays) EvictionBudget(totalQuestions int) time.Duration {
	return (d.Question + d.Answer + d.Comm) * time.Duration(totalQuestions+1)
}

// State is the lifecycle phase of a session.
type State string

const (
	StateJoining    State = "joining"
	StateInProgress State = "in_progress"
	StateEnded      State = "ended"
)

// ScoreEntry is one row of the final tally.
type ScoreEntry struct {
	Player  int `json:"player"`
	Correct int `json:"correct"`
}

// SessionSummary is a read-only snapshot of a session.
type SessionSummary struct {
	Code            int   `json:"code"`
	Level           int   `json:"level"`
	State           State `json:"state"`
	Running         bool  `json:"running"`
	CurrentQuestion int   `json:"currentQuestion"`
	TotalQuestions  int   `json:"totalQuestions"`
	Players         int   `json:"players"`
}

// JoinResult is returned to a player that obtained a slot.
type JoinResult struct {
	Code    int `json:"code"`
	Player  int `json:"player"`
	Players int `json:"players"`
}

// QuestionView is what a player sees while a question plays.
type QuestionView struct {
	Number          int    `json:"number"`
	VideoRef        string `json:"videoRef"`
	QuestionInfo    string `json:"questionInfo"`
	QuestionSeconds int    `json:"questionSeconds"`
}

// RevealView is shown once a question is due for a player.
type RevealView struct {
	PosterRef          string `json:"posterRef"`
	SelfWasCorrect     bool   `json:"selfWasCorrect"`
	OthersCorrectCount int    `json:"othersCorrectCount"`
	ShowOthers         bool   `json:"showOthers"`
	AnswerSeconds      int    `json:"answerSeconds"`
}

// WaitView is shown while other players are still answering.
type WaitView struct {
	SecondsRemaining     int `json:"secondsRemaining"`
	PlayersAnsweredSoFar int `json:"playersAnsweredSoFar"`
}

// SummaryView is the end-of-game screen.
type SummaryView struct {
	Level         int          `json:"level"`
	SelfScoreText string       `json:"selfScoreText,omitempty"`
	WinnerSummary string       `json:"winnerSummary,omitempty"`
	Scores        []ScoreEntry `json:"scores"`
}

// AnswerStatus is either a reveal or a wait view.
type AnswerStatus struct {
	Due    bool        `json:"due"`
	Reveal *RevealView `json:"reveal,omitempty"`
	Wait   *WaitView   `json:"wait,omitempty"`
}

// QuestionPoll is the result of a player asking for the current question.
// Exactly one of Question or Summary is set.
type QuestionPoll struct {
	Question *QuestionView `json:"question,omitempty"`
	Summary  *SummaryView  `json:"summary,omitempty"`
}
