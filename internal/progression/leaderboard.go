package progression

import (
	"fmt"
	"sort"
	"time"
)

// LeaderboardEntry is the display projection of one profile.
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	Name        string  `json:"name"`
	Level       int     `json:"level"`
	TotalXP     float64 `json:"totalXp"`
	PlayerKills int64   `json:"playerKills"`
	Deaths      int64   `json:"deaths"`
	KD          float64 `json:"kd"`
	Playtime    string  `json:"playtime"`
}

// Top returns up to n leaderboard rows: human profiles only, ordered by total
// XP, then level, then name as the tie-break.
func (s *Store) Top(n int) []LeaderboardEntry {
	all := s.All()

	human := all[:0]
	for _, p := range all {
		if s.gate.IsHumanID(p.ID) {
			human = append(human, p)
		}
	}

	sort.Slice(human, func(i, j int) bool {
		a, b := human[i], human[j]
		if a.TotalXP != b.TotalXP {
			return a.TotalXP > b.TotalXP
		}
		if a.Level != b.Level {
			return a.Level > b.Level
		}
		return a.Name < b.Name
	})

	if n > len(human) {
		n = len(human)
	}
	out := make([]LeaderboardEntry, 0, n)
	for i := 0; i < n; i++ {
		p := human[i]
		kd := float64(p.PlayerKills)
		if p.Deaths > 0 {
			kd = float64(p.PlayerKills) / float64(p.Deaths)
		}
		out = append(out, LeaderboardEntry{
			Rank:        i + 1,
			Name:        p.Name,
			Level:       p.Level,
			TotalXP:     p.TotalXP,
			PlayerKills: p.PlayerKills,
			Deaths:      p.Deaths,
			KD:          kd,
			Playtime:    FormatPlaytime(p.TotalPlayTimeSeconds),
		})
	}
	return out
}

// FormatPlaytime renders accumulated seconds as "3h 25m" or "5m 12s".
func FormatPlaytime(seconds float64) string {
	if seconds <= 0 {
		return "0m"
	}
	d := time.Duration(seconds * float64(time.Second))
	if d >= time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}
