package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"puzzle-party/internal/game"
	"puzzle-party/internal/store"
	"puzzle-party/internal/testutil"
)

func TestInsertAndListResults(t *testing.T) {
	st := testutil.OpenTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []game.GameRecord{
		{RoomCode: "ABC234", Variant: "countdown", Rounds: 5, Reason: "completed", StartedAt: base, FinishedAt: base.Add(3 * time.Minute),
			Standings: []game.Standing{{ID: "p1", Name: "Ada", Score: 31}, {ID: "p2", Name: "Bob", Score: 12}}, Winner: "p1"},
		{RoomCode: "XYZ789", Variant: "wordle", Rounds: 6, Reason: "not_enough_players", StartedAt: base, FinishedAt: base.Add(5 * time.Minute)},
	}
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		id, err := st.InsertGameResult(ctx, rec)
		if err != nil {
			t.Fatalf("insert %s: %v", rec.RoomCode, err)
		}
		ids = append(ids, id)
	}

	all, err := st.ListRecentResults(ctx, "", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != ids[1] {
		t.Fatalf("list = %+v, want newest first", all)
	}

	countdown, err := st.ListRecentResults(ctx, "countdown", 10)
	if err != nil {
		t.Fatalf("list countdown: %v", err)
	}
	if len(countdown) != 1 || countdown[0].Winner != "p1" || len(countdown[0].Standings) != 2 {
		t.Fatalf("countdown results = %+v", countdown)
	}
	if got := countdown[0].Standings[0].Score; got != 31 {
		t.Fatalf("winner score = %d, want 31", got)
	}

	got, err := st.GetResult(ctx, ids[1])
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Reason != "not_enough_players" || !got.FinishedAt.Equal(base.Add(5*time.Minute)) {
		t.Fatalf("get = %+v", got)
	}
	if _, err := st.GetResult(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get missing err = %v, want ErrNotFound", err)
	}
}

func TestNewIDSortsByTime(t *testing.T) {
	early := store.NewID(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	late := store.NewID(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	if len(early) != 26 || early >= late {
		t.Fatalf("NewID order: %s >= %s", early, late)
	}
}
