package notify

import (
	"fmt"
	"strconv"
	"time"

	"puzzle-party/internal/game"
	"puzzle-party/internal/notify/platforms"
)

const (
	colorCompleted = 0x57F287
	colorAborted   = 0xFEE75C

	maxStandingFields = 8
	defaultFooter     = "puzzle-party results"
)

// FormatGameOver renders a finished game as a webhook message.
func FormatGameOver(rec game.GameRecord) platforms.Message {
	msg := platforms.Message{
		Title:       fmt.Sprintf("Game over · %s · %s", rec.Variant, rec.RoomCode),
		Description: fmt.Sprintf("%d rounds, %s", rec.Rounds, durationText(rec.StartedAt, rec.FinishedAt)),
		Color:       colorCompleted,
		Footer:      defaultFooter,
	}
	if !rec.FinishedAt.IsZero() {
		msg.Timestamp = rec.FinishedAt.UTC().Format(time.RFC3339)
	}
	if rec.Reason != "completed" {
		msg.Color = colorAborted
	}

	winner := ""
	for i, s := range rec.Standings {
		if s.ID == rec.Winner {
			winner = s.Name
		}
		if i >= maxStandingFields {
			continue
		}
		msg.Fields = append(msg.Fields, platforms.Field{
			Name:   strconv.Itoa(i+1) + ". " + s.Name,
			Value:  strconv.Itoa(s.Score),
			Inline: true,
		})
	}
	if winner != "" {
		msg.Content = winner + " wins"
	} else {
		msg.Content = "no winner"
	}
	msg.Fields = append(msg.Fields, platforms.Field{Name: "Reason", Value: rec.Reason})
	return msg
}

func durationText(start, end time.Time) string {
	if start.IsZero() || end.Before(start) {
		return "-"
	}
	return end.Sub(start).Round(time.Second).String()
}
