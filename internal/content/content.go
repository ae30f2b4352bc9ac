package content

import (
	"context"
	"errors"
	"expvar"
)

var (
	ErrNoQuestions = errors.New("no_questions")
	ErrRateLimited = errors.New("rate_limited")
	ErrNoWords     = errors.New("no_words")
)

var metricContentFallbackTotal = expvar.NewInt("content_fallback_total")

type Category struct {
	ID   int    `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Question is a four-way multiple choice question. Correct indexes Answers.
type Question struct {
	Category   string   `yaml:"category" json:"category"`
	Difficulty string   `yaml:"difficulty" json:"difficulty,omitempty"`
	Text       string   `yaml:"question" json:"question"`
	Answers    []string `yaml:"answers" json:"answers"`
	Correct    int      `yaml:"correct" json:"-"`
}

// CorrectAnswer returns the text of the right choice.
func (q Question) CorrectAnswer() string {
	if q.Correct < 0 || q.Correct >= len(q.Answers) {
		return ""
	}
	return q.Answers[q.Correct]
}

type QuestionSource interface {
	Question(ctx context.Context, category Category) (Question, error)
}

type WordSource interface {
	SecretWord(ctx context.Context) (string, error)
	IsValidGuess(word string) bool
}

// shuffleAnswers reorders answers in place and keeps Correct pointing at the
// same text.
func shuffleAnswers(q Question, shuffle func(n int, swap func(i, j int))) Question {
	correct := q.CorrectAnswer()
	answers := append([]string(nil), q.Answers...)
	shuffle(len(answers), func(i, j int) { answers[i], answers[j] = answers[j], answers[i] })
	q.Answers = answers
	for i, a := range answers {
		if a == correct {
			q.Correct = i
			break
		}
	}
	return q
}
