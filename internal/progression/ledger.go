package progression

import (
	"log"
	"math"
)

// AwardResult reports what a single XP award did to a profile.
type AwardResult struct {
	ID     uint64  `json:"userId"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Reason string  `json:"reason"`

	NewLevel               int `json:"newLevel"`
	LevelsGained           int `json:"levelsGained"`
	DisciplinePointsGained int `json:"disciplinePointsGained"`
	RagePointsGained       int `json:"ragePointsGained"`
}

// Award applies an XP delta to the profile for id, cascading level-ups while
// the banked XP clears the current threshold. Each level grants
// round(CorePointsPerLevel) discipline points and exactly one Rage point.
// The store is persisted before Award returns, so an acknowledged award
// survives an immediate crash.
//
// A non-positive amount or a gated identity is a no-op reported by ok=false.
func (s *Store) Award(id uint64, name string, amount float64, reason string) (AwardResult, bool) {
	if amount <= 0 {
		return AwardResult{}, false
	}

	var res AwardResult

	s.mu.Lock()
	p := s.getOrCreate(id, name)
	if p == nil {
		s.mu.Unlock()
		return AwardResult{}, false
	}

	p.TotalXP += amount
	p.CurrentXP += amount

	pointsPerLevel := int(math.Round(s.cfg.CorePointsPerLevel()))

	for p.CurrentXP >= p.XPToNextLevel {
		p.CurrentXP -= p.XPToNextLevel
		p.Level++

		// Re-read the curve each iteration: admin edits apply from the next
		// level-up onward, never retroactively.
		base, growth := s.cfg.LevelCurve()
		p.XPToNextLevel = RequiredXP(base, growth, p.Level)

		p.UnspentDisciplinePoints += pointsPerLevel
		p.Rage.UnspentPoints++

		res.LevelsGained++
		res.DisciplinePointsGained += pointsPerLevel
		res.RagePointsGained++
	}

	res.ID = p.ID
	res.Name = p.Name
	res.Amount = amount
	res.Reason = reason
	res.NewLevel = p.Level
	s.mu.Unlock()

	if err := s.Save(); err != nil {
		log.Printf("progression: save after award: %v", err)
	}
	return res, true
}
