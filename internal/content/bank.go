package content

import (
	"bufio"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"puzzle-party/internal/config"
)

//go:embed data/*.yaml
var builtin embed.FS

var sixLetters = regexp.MustCompile(`^[a-z]{6}$`)

type wordFile struct {
	Answers []string `yaml:"answers"`
}

// Bank is the built-in content, optionally overridden from a directory.
type Bank struct {
	categories []Category
	questions  []Question
	answers    []string
	valid      map[string]struct{}

	intn    func(n int) int
	shuffle func(n int, swap func(i, j int))
}

// LoadBank reads the embedded banks, replaces any that exist under cfg.Dir and
// extends guess validation with the words in cfg.DictionaryPath when present.
func LoadBank(cfg config.ContentConfig) (*Bank, error) {
	b := &Bank{intn: rand.IntN, shuffle: rand.Shuffle}
	if err := decodeFile(cfg.Dir, "categories.yaml", &b.categories); err != nil {
		return nil, err
	}
	if err := decodeFile(cfg.Dir, "questions.yaml", &b.questions); err != nil {
		return nil, err
	}
	var words wordFile
	if err := decodeFile(cfg.Dir, "words.yaml", &words); err != nil {
		return nil, err
	}
	if err := b.setWords(words.Answers); err != nil {
		return nil, err
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	if cfg.DictionaryPath != "" {
		n, err := b.loadDictionary(cfg.DictionaryPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Debug().Str("path", cfg.DictionaryPath).Msg("dictionary_missing")
		case err != nil:
			return nil, err
		default:
			log.Info().Int("words", n).Msg("dictionary_loaded")
		}
	}
	return b, nil
}

func decodeFile(dir, name string, out any) error {
	var raw []byte
	var err error
	if dir != "" {
		raw, err = os.ReadFile(filepath.Join(dir, name))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if raw == nil {
		raw, err = builtin.ReadFile("data/" + name)
		if err != nil {
			return err
		}
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("content %s: %w", name, err)
	}
	return nil
}

func (b *Bank) setWords(words []string) error {
	b.answers = b.answers[:0]
	b.valid = map[string]struct{}{}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if !sixLetters.MatchString(w) {
			continue
		}
		if _, dup := b.valid[w]; dup {
			continue
		}
		b.valid[w] = struct{}{}
		b.answers = append(b.answers, w)
	}
	if len(b.answers) == 0 {
		return ErrNoWords
	}
	return nil
}

func (b *Bank) validate() error {
	if len(b.categories) == 0 {
		return errors.New("content: no categories")
	}
	if len(b.questions) == 0 {
		return ErrNoQuestions
	}
	for i, q := range b.questions {
		if len(q.Answers) != 4 || q.Correct < 0 || q.Correct >= 4 || q.Text == "" {
			return fmt.Errorf("content: question %d is malformed", i)
		}
	}
	return nil
}

func (b *Bank) loadDictionary(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		w := strings.TrimSpace(sc.Text())
		if !sixLetters.MatchString(w) {
			continue
		}
		if _, ok := b.valid[w]; !ok {
			b.valid[w] = struct{}{}
			n++
		}
	}
	return n, sc.Err()
}

func (b *Bank) Categories() []Category {
	return append([]Category(nil), b.categories...)
}

// Question returns a random question from category, or from the whole bank
// when the category has none.
func (b *Bank) Question(_ context.Context, category Category) (Question, error) {
	var pool []Question
	for _, q := range b.questions {
		if strings.EqualFold(q.Category, category.Name) {
			pool = append(pool, q)
		}
	}
	if len(pool) == 0 {
		pool = b.questions
	}
	if len(pool) == 0 {
		return Question{}, ErrNoQuestions
	}
	return shuffleAnswers(pool[b.intn(len(pool))], b.shuffle), nil
}

func (b *Bank) SecretWord(context.Context) (string, error) {
	if len(b.answers) == 0 {
		return "", ErrNoWords
	}
	return b.answers[b.intn(len(b.answers))], nil
}

func (b *Bank) IsValidGuess(word string) bool {
	_, ok := b.valid[strings.ToLower(word)]
	return ok
}
