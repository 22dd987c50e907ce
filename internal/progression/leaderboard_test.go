package progression

import "testing"

func seedProfile(s *Store, id uint64, name string, level int, totalXP float64, kills, deaths int64) {
	s.Touch(id, name, func(p *Profile) {
		p.Level = level
		p.TotalXP = totalXP
		p.PlayerKills = kills
		p.Deaths = deaths
	})
}

func TestTop_Ordering(t *testing.T) {
	s, _ := newTestStore(t)

	seedProfile(s, 1, "Low", 2, 100, 0, 0)
	seedProfile(s, 2, "High", 8, 900, 0, 0)
	seedProfile(s, 3, "Mid", 5, 400, 0, 0)

	top := s.Top(10)
	if len(top) != 3 {
		t.Fatalf("len = %d, want 3", len(top))
	}
	want := []string{"High", "Mid", "Low"}
	for i, name := range want {
		if top[i].Name != name {
			t.Errorf("rank %d = %q, want %q", i+1, top[i].Name, name)
		}
		if top[i].Rank != i+1 {
			t.Errorf("Rank field = %d, want %d", top[i].Rank, i+1)
		}
	}
}

func TestTop_TieBreaks(t *testing.T) {
	s, _ := newTestStore(t)

	// Equal XP: higher level wins. Equal XP and level: name ascending.
	seedProfile(s, 1, "Zed", 3, 500, 0, 0)
	seedProfile(s, 2, "Abe", 3, 500, 0, 0)
	seedProfile(s, 3, "Cap", 6, 500, 0, 0)

	top := s.Top(10)
	want := []string{"Cap", "Abe", "Zed"}
	for i, name := range want {
		if top[i].Name != name {
			t.Errorf("rank %d = %q, want %q", i+1, top[i].Name, name)
		}
	}
}

func TestTop_TruncatesToN(t *testing.T) {
	s, _ := newTestStore(t)
	for i := uint64(1); i <= 5; i++ {
		seedProfile(s, i, "p", 1, float64(i), 0, 0)
	}
	if got := len(s.Top(2)); got != 2 {
		t.Errorf("len = %d, want 2", got)
	}
}

func TestTop_FiltersNonHuman(t *testing.T) {
	svc := testConfigService()
	s := NewStore(svc, NewFileStore(t.TempDir()), allowAll{})
	seedProfile(s, 1, "p", 1, 10, 0, 0)

	// Swap the gate after seeding, as if the id was later learned to be a bot.
	s.gate = denyAll{}
	if got := len(s.Top(10)); got != 0 {
		t.Errorf("leaderboard kept %d non-human rows", got)
	}
}

func TestTop_KDRatio(t *testing.T) {
	s, _ := newTestStore(t)
	seedProfile(s, 1, "a", 1, 20, 10, 4)
	seedProfile(s, 2, "b", 1, 10, 7, 0) // zero deaths: KD is the raw kill count

	top := s.Top(10)
	if top[0].KD != 2.5 {
		t.Errorf("KD = %v, want 2.5", top[0].KD)
	}
	if top[1].KD != 7 {
		t.Errorf("zero-death KD = %v, want 7", top[1].KD)
	}
}

func TestFormatPlaytime(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "0m"},
		{-5, "0m"},
		{312, "5m 12s"},
		{3600, "1h 0m"},
		{12300, "3h 25m"},
	}
	for _, tc := range cases {
		if got := FormatPlaytime(tc.seconds); got != tc.want {
			t.Errorf("FormatPlaytime(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
