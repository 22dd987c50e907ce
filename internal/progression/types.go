package progression

import "time"

// Profile is the persistent progression record for one player identity.
type Profile struct {
	ID   uint64 `json:"userId"`
	Name string `json:"lastKnownName"`

	TotalXP       float64 `json:"totalXp"`
	Level         int     `json:"level"`
	CurrentXP     float64 `json:"currentXp"`     // banked toward the next level
	XPToNextLevel float64 `json:"xpToNextLevel"` // threshold cached at last level-up

	UnspentDisciplinePoints int `json:"unspentDisciplinePoints"`

	Rage RageState `json:"rage"`

	PlayerKills          int64   `json:"playerKills"`
	NpcKills             int64   `json:"npcKills"`
	Deaths               int64   `json:"deaths"`
	TotalPlayTimeSeconds float64 `json:"totalPlayTimeSeconds"`

	// SessionStart is owned by the session lifecycle and never persisted.
	SessionStart time.Time `json:"-"`
}

// RageState is the skill-tree sub-record embedded in a Profile. UI selection
// and flash state deliberately do not live here; the panel layer keeps its own
// view-state keyed by the same identity.
type RageState struct {
	UnspentPoints int            `json:"unspentPoints"`
	NodeLevels    map[string]int `json:"nodeLevels"`

	FuryAmount   float64   `json:"furyAmount"` // 0–1
	FuryExpireAt time.Time `json:"furyExpireAt"`

	MaxUnlockedTier int `json:"maxUnlockedTier"`
}

// NodeLevel returns the allocated level for a node, zero if absent.
func (r *RageState) NodeLevel(nodeID string) int {
	return r.NodeLevels[nodeID]
}

// SpentPoints is the total number of points currently allocated in the tree.
func (r *RageState) SpentPoints() int {
	total := 0
	for _, lvl := range r.NodeLevels {
		total += lvl
	}
	return total
}

// FuryActive reports whether the fury buff applies at the given instant.
// The stored amount is meaningless on its own; it only counts while the
// expiry window is open.
func (r *RageState) FuryActive(now time.Time) bool {
	return r.FuryAmount > 0 && now.Before(r.FuryExpireAt)
}

func newProfile(id uint64, name string, xpToNext float64) *Profile {
	return &Profile{
		ID:            id,
		Name:          name,
		Level:         1,
		XPToNextLevel: xpToNext,
		Rage: RageState{
			NodeLevels:      make(map[string]int),
			MaxUnlockedTier: 1,
		},
	}
}

// clone returns a deep copy safe to hand outside the store lock.
func (p *Profile) clone() *Profile {
	cp := *p
	cp.Rage.NodeLevels = make(map[string]int, len(p.Rage.NodeLevels))
	for id, lvl := range p.Rage.NodeLevels {
		cp.Rage.NodeLevels[id] = lvl
	}
	return &cp
}

// initMaps ensures map fields are non-nil after deserialization.
func (p *Profile) initMaps() {
	if p.Rage.NodeLevels == nil {
		p.Rage.NodeLevels = make(map[string]int)
	}
	if p.Rage.MaxUnlockedTier < 1 {
		p.Rage.MaxUnlockedTier = 1
	}
}
