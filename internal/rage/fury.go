package rage

import (
	"strings"
	"time"

	"github.com/omnirpg/engine/internal/progression"
)

// FuryStatus is the post-kill buff state pushed to the player.
type FuryStatus struct {
	Amount   float64 `json:"amount"` // 0–1
	ExpireIn float64 `json:"expireInSeconds"`
}

// OnQualifyingKill stacks fury gain and slides the expiry window forward.
// Each kill adds the configured gain (clamped to 1.0) and refreshes the full
// duration; the stack is never reset by a kill.
//
// When the window has already lapsed the stored amount is normally left in
// place and the new gain stacks on top of it. The ResetOnExpire config flag
// makes an expired stack restart from zero instead.
func (e *Engine) OnQualifyingKill(id uint64) (FuryStatus, bool) {
	if !e.cfg.RageEnabled() {
		return FuryStatus{}, false
	}

	fury := e.cfg.Fury()
	now := e.now()

	var status FuryStatus
	found := e.store.Update(id, func(p *progression.Profile) {
		if fury.ResetOnExpire && !p.Rage.FuryActive(now) {
			p.Rage.FuryAmount = 0
		}
		p.Rage.FuryAmount = clamp01(p.Rage.FuryAmount + fury.OnKillGain)
		p.Rage.FuryExpireAt = now.Add(secondsToDuration(fury.DurationSeconds))

		status = FuryStatus{
			Amount:   p.Rage.FuryAmount,
			ExpireIn: fury.DurationSeconds,
		}
	})
	return status, found
}

// DamageBonus is the additive bonus fraction for a player's next hit: the
// core node contribution, the matching weapon-specialization node, and the
// fury component while the window is open. Zero when Rage is disabled or the
// player has no profile.
func (e *Engine) DamageBonus(id uint64, weapon string) float64 {
	if !e.cfg.RageEnabled() {
		return 0
	}
	p, ok := e.store.Get(id)
	if !ok {
		return 0
	}

	bonus := 0.0

	coreID := e.cfg.CoreNode()
	if core, ok := e.cfg.Node(coreID); ok {
		bonus += core.DamagePerLevel * float64(p.Rage.NodeLevel(coreID))
	}

	if nodeID := WeaponNode(weapon); nodeID != "" && nodeID != coreID {
		if nc, ok := e.cfg.Node(nodeID); ok {
			bonus += nc.DamagePerLevel * float64(p.Rage.NodeLevel(nodeID))
		}
	}

	if p.Rage.FuryActive(e.now()) {
		bonus += e.cfg.Fury().MaxBonus * clamp01(p.Rage.FuryAmount)
	}

	return bonus
}

// ScaleDamage applies the bonus multiplicatively: base × (1 + bonus).
func (e *Engine) ScaleDamage(id uint64, weapon string, base float64) float64 {
	return base * (1 + e.DamageBonus(id, weapon))
}

// WeaponNode maps a weapon shortname to the specialization node it trains,
// or "" when no node applies.
func WeaponNode(shortname string) string {
	s := strings.ToLower(shortname)
	switch {
	case strings.Contains(s, "rifle"):
		return "rifle"
	case strings.Contains(s, "shotgun"):
		return "shotgun"
	case strings.Contains(s, "pistol"), strings.Contains(s, "revolver"), strings.Contains(s, "nailgun"):
		return "pistol"
	}
	return ""
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
