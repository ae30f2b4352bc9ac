package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"

	"puzzle-party/internal/game"
)

const maxListLimit = 200

type GameResult struct {
	ID         string          `json:"id"`
	RoomCode   string          `json:"room_code"`
	Variant    string          `json:"variant"`
	Rounds     int             `json:"rounds"`
	Reason     string          `json:"reason"`
	Winner     string          `json:"winner,omitempty"`
	Standings  []game.Standing `json:"standings"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

func (s *Store) InsertGameResult(ctx context.Context, rec game.GameRecord) (string, error) {
	standings, err := json.Marshal(rec.Standings)
	if err != nil {
		return "", fmt.Errorf("encode standings: %w", err)
	}
	id := NewID(rec.FinishedAt)
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO game_results (id, room_code, variant, rounds, reason, winner, standings, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, rec.RoomCode, rec.Variant, rec.Rounds, rec.Reason, rec.Winner, standings, rec.StartedAt, rec.FinishedAt)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListRecentResults returns the newest results first, optionally for one
// variant only.
func (s *Store) ListRecentResults(ctx context.Context, variant string, limit int) ([]GameResult, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, room_code, variant, rounds, reason, winner, standings, started_at, finished_at
		FROM game_results
		WHERE $1 = '' OR variant = $1
		ORDER BY finished_at DESC, id DESC
		LIMIT $2`, variant, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanResult)
}

func (s *Store) GetResult(ctx context.Context, id string) (GameResult, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, room_code, variant, rounds, reason, winner, standings, started_at, finished_at
		FROM game_results WHERE id = $1`, id)
	if err != nil {
		return GameResult{}, err
	}
	res, err := pgx.CollectExactlyOneRow(rows, scanResult)
	if errors.Is(err, pgx.ErrNoRows) {
		return GameResult{}, ErrNotFound
	}
	return res, err
}

func scanResult(row pgx.CollectableRow) (GameResult, error) {
	var (
		r         GameResult
		standings []byte
	)
	if err := row.Scan(&r.ID, &r.RoomCode, &r.Variant, &r.Rounds, &r.Reason, &r.Winner, &standings, &r.StartedAt, &r.FinishedAt); err != nil {
		return GameResult{}, err
	}
	if err := json.Unmarshal(standings, &r.Standings); err != nil {
		return GameResult{}, fmt.Errorf("decode standings %s: %w", r.ID, err)
	}
	return r, nil
}
