package scoring

import (
	"testing"
	"time"

	"puzzle-party/internal/config"
)

func TestDeviationTiers(t *testing.T) {
	tiers := Default().Tiers
	cases := []struct {
		diff int
		want int
	}{
		{0, 10},
		{1, 7},
		{5, 7},
		{-5, 7},
		{6, 5},
		{7, 5},
		{10, 5},
		{11, 0},
		{400, 0},
	}
	for _, tc := range cases {
		if got := tiers.Points(tc.diff); got != tc.want {
			t.Fatalf("Points(%d) = %d, want %d", tc.diff, got, tc.want)
		}
	}
}

func TestTimeDecay(t *testing.T) {
	d := Default().Decay
	total := 60 * time.Second
	cases := []struct {
		left time.Duration
		want int
	}{
		{60 * time.Second, 150},
		{30 * time.Second, 125},
		{0, 100},
		{time.Second, 101},
		{-time.Second, 100},
		{90 * time.Second, 150},
	}
	for _, tc := range cases {
		if got := d.Points(tc.left, total, false); got != tc.want {
			t.Fatalf("Points(%v) = %d, want %d", tc.left, got, tc.want)
		}
	}
	withBonus := TimeDecay{Base: 100, BonusScale: 50, WinBonus: 25}
	if got := withBonus.Points(0, total, true); got != 125 {
		t.Fatalf("win bonus Points = %d, want 125", got)
	}
}

func TestTileAccuracy(t *testing.T) {
	a := Default().Tiles
	if got := a.Points(6, 0, 1, true); got != 50+180+20+500 {
		t.Fatalf("solved Points = %d", got)
	}
	if got := a.Points(2, 3, 0.5, false); got != 50+60+30+10 {
		t.Fatalf("partial Points = %d", got)
	}
	if got := a.Points(0, 0, 0, false); got != 50 {
		t.Fatalf("empty Points = %d, want 50", got)
	}
}

func TestSpeedRatio(t *testing.T) {
	base := time.Unix(100, 0)
	late := base.Add(10 * time.Second)
	if got := SpeedRatio(base, base, late); got != 1 {
		t.Fatalf("earliest ratio = %v, want 1", got)
	}
	if got := SpeedRatio(late, base, late); got != 0 {
		t.Fatalf("latest ratio = %v, want 0", got)
	}
	if got := SpeedRatio(base.Add(5*time.Second), base, late); got != 0.5 {
		t.Fatalf("middle ratio = %v, want 0.5", got)
	}
	if got := SpeedRatio(base, base, base); got != 1 {
		t.Fatalf("single submission ratio = %v, want 1", got)
	}
}

func TestFromConfigMatchesDefault(t *testing.T) {
	cfg, err := config.LoadScoring()
	if err != nil {
		t.Fatalf("LoadScoring() error = %v", err)
	}
	if got := FromConfig(cfg); got != Default() {
		t.Fatalf("FromConfig(defaults) = %+v, want %+v", got, Default())
	}
}
