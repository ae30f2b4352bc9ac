package content

import (
	"context"

	"github.com/rs/zerolog"
)

type fallbackQuestions struct {
	primary  QuestionSource
	fallback QuestionSource
	log      zerolog.Logger
}

// WithFallback serves from primary and drops to fallback on any error. A nil
// primary always uses fallback.
func WithFallback(primary, fallback QuestionSource, log zerolog.Logger) QuestionSource {
	if primary == nil {
		return fallback
	}
	return &fallbackQuestions{primary: primary, fallback: fallback, log: log}
}

func (f *fallbackQuestions) Question(ctx context.Context, category Category) (Question, error) {
	q, err := f.primary.Question(ctx, category)
	if err == nil {
		return q, nil
	}
	metricContentFallbackTotal.Add(1)
	f.log.Warn().Err(err).Int("category", category.ID).Msg("question_fallback")
	return f.fallback.Question(ctx, category)
}

// Sources bundles what the variants draw on.
type Sources struct {
	Questions  QuestionSource
	Words      WordSource
	Categories []Category
}

// NewSources wires the bank and, when enabled, the remote question API.
func NewSources(bank *Bank, remote QuestionSource, log zerolog.Logger) Sources {
	return Sources{
		Questions:  WithFallback(remote, bank, log),
		Words:      bank,
		Categories: bank.Categories(),
	}
}
