package content

import (
	"context"
	"fmt"
	"html"
	"math/rand/v2"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"puzzle-party/internal/config"
)

type opentdbResponse struct {
	ResponseCode int `json:"response_code"`
	Results      []struct {
		Category         string   `json:"category"`
		Difficulty       string   `json:"difficulty"`
		Question         string   `json:"question"`
		CorrectAnswer    string   `json:"correct_answer"`
		IncorrectAnswers []string `json:"incorrect_answers"`
	} `json:"results"`
}

// OpenTDB fetches one multiple choice question per call from an Open Trivia
// Database compatible endpoint.
type OpenTDB struct {
	client  *HTTPClient
	baseURL string
	limiter *rate.Limiter
	shuffle func(n int, swap func(i, j int))
}

func NewOpenTDB(cfg config.ContentConfig) *OpenTDB {
	return newOpenTDB(NewHTTPClient(cfg.TriviaTimeout()), cfg.TriviaAPIURL, cfg.TriviaAPIRPS)
}

func newOpenTDB(client *HTTPClient, baseURL string, rps float64) *OpenTDB {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &OpenTDB{
		client:  client,
		baseURL: baseURL,
		limiter: rate.NewLimiter(limit, 1),
		shuffle: rand.Shuffle,
	}
}

// Question never waits on the limiter; callers fall back instead.
func (o *OpenTDB) Question(ctx context.Context, category Category) (Question, error) {
	if !o.limiter.Allow() {
		return Question{}, ErrRateLimited
	}
	u, err := url.Parse(o.baseURL)
	if err != nil {
		return Question{}, err
	}
	q := u.Query()
	q.Set("amount", "1")
	q.Set("type", "multiple")
	if category.ID > 0 {
		q.Set("category", strconv.Itoa(category.ID))
	}
	u.RawQuery = q.Encode()

	var body opentdbResponse
	if _, err := o.client.GetJSON(ctx, u.String(), &body); err != nil {
		return Question{}, err
	}
	if body.ResponseCode != 0 || len(body.Results) == 0 {
		return Question{}, fmt.Errorf("%w: response_code %d", ErrNoQuestions, body.ResponseCode)
	}
	r := body.Results[0]
	if len(r.IncorrectAnswers) != 3 {
		return Question{}, fmt.Errorf("%w: %d incorrect answers", ErrNoQuestions, len(r.IncorrectAnswers))
	}
	out := Question{
		Category:   html.UnescapeString(r.Category),
		Difficulty: r.Difficulty,
		Text:       html.UnescapeString(r.Question),
		Answers:    []string{html.UnescapeString(r.CorrectAnswer)},
	}
	for _, a := range r.IncorrectAnswers {
		out.Answers = append(out.Answers, html.UnescapeString(a))
	}
	return shuffleAnswers(out, o.shuffle), nil
}
