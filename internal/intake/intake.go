// Package intake maps host game events onto the progression core: it resolves
// the XP amount for each event source and funnels it through the ledger, and
// drives the Fury and counter side effects that ride along with kills.
package intake

import (
	"fmt"
	"log"
	"strings"

	"github.com/omnirpg/engine/internal/config"
	"github.com/omnirpg/engine/internal/identity"
	"github.com/omnirpg/engine/internal/progression"
	"github.com/omnirpg/engine/internal/rage"
)

// Resource classifies a gather event.
type Resource string

const (
	ResourceOre    Resource = "ore"
	ResourceWood   Resource = "wood"
	ResourcePlants Resource = "plants"
)

// Victim describes the entity that died in a kill event.
type Victim struct {
	// Player is set when the victim is a player-shaped entity (including
	// host-flagged NPCs wearing a player body).
	Player *identity.PlayerRef
	// IsNPC marks plain non-player combatants such as animals.
	IsNPC bool
}

// Notifier receives progression events for live display. Implementations must
// not block.
type Notifier interface {
	NotifyAward(res progression.AwardResult)
	NotifyFury(id uint64, status rage.FuryStatus)
}

// Service wires host events into the store, the Rage engine and the config's
// bot-profile registry.
type Service struct {
	cfg    *config.Service
	gate   *identity.Gate
	store  *progression.Store
	rage   *rage.Engine
	notify Notifier
}

func NewService(cfg *config.Service, gate *identity.Gate, store *progression.Store, rageEngine *rage.Engine, notify Notifier) *Service {
	return &Service{cfg: cfg, gate: gate, store: store, rage: rageEngine, notify: notify}
}

// OnConnect begins a play session for the player.
func (s *Service) OnConnect(p identity.PlayerRef) {
	if !s.gate.IsHumanPlayer(p) {
		return
	}
	s.store.Connect(p.ID, p.Name)
}

// OnDisconnect closes the play session and persists the store.
func (s *Service) OnDisconnect(p identity.PlayerRef) {
	s.store.Disconnect(p.ID)
}

// OnHostSave is the periodic host save callback: it flushes session playtime
// and persists everything.
func (s *Service) OnHostSave() {
	s.store.FlushPlaytime()
	if err := s.store.Save(); err != nil {
		log.Printf("intake: host save: %v", err)
	}
}

// OnKill handles a generic kill event. Bot-respawner victims are skipped
// entirely; they arrive through OnBotKill with profile attribution.
func (s *Service) OnKill(killer identity.PlayerRef, victim Victim) {
	if !s.gate.IsHumanPlayer(killer) {
		return
	}
	if victim.Player != nil && s.gate.IsBot(victim.Player.ID) {
		return
	}

	npcRate, playerRate := s.cfg.KillRates()

	var xp float64
	switch {
	case victim.Player != nil && victim.Player.ID == killer.ID:
		// Suicide or self-inflicted. No XP.
		return
	case victim.Player != nil && s.gate.IsHumanPlayer(*victim.Player):
		xp = playerRate
		s.store.Touch(killer.ID, killer.Name, func(p *progression.Profile) {
			p.PlayerKills++
		})
		s.store.Touch(victim.Player.ID, victim.Player.Name, func(p *progression.Profile) {
			p.Deaths++
		})
	case victim.Player != nil || victim.IsNPC:
		xp = npcRate
		s.store.Touch(killer.ID, killer.Name, func(p *progression.Profile) {
			p.NpcKills++
		})
	default:
		return
	}

	s.award(killer.ID, killer.Name, xp, "Kill")
	s.qualifyingKill(killer.ID)
}

// OnGather awards XP for a resource gather tick, scaled by the gathered
// amount.
func (s *Service) OnGather(p identity.PlayerRef, kind Resource, amount int) {
	if amount <= 0 || !s.gate.IsHumanPlayer(p) {
		return
	}

	ore, wood, plants := s.cfg.GatherRates()

	var xp float64
	switch kind {
	case ResourceOre:
		xp = ore * float64(amount)
	case ResourceWood:
		xp = wood * float64(amount)
	case ResourcePlants:
		xp = plants * float64(amount)
	default:
		return
	}
	s.award(p.ID, p.Name, xp, "Gather")
}

// OnPlantPickup awards plant-gather XP for collectible pickups whose item
// shortname looks like a farmable plant.
func (s *Service) OnPlantPickup(p identity.PlayerRef, shortname string, amount int) {
	if !isPlant(shortname) {
		return
	}
	s.OnGather(p, ResourcePlants, amount)
}

// OnBotSpawn records a bot-respawner spawn: the bot id joins the cached bot
// set and the profile gets config settings on first sighting.
func (s *Service) OnBotSpawn(profileName string, botID uint64) {
	s.gate.MarkBot(botID)
	s.cfg.EnsureBotProfile(profileName)
}

// OnBotKill handles a kill attributed to a bot-respawner profile:
//
//	xp = baseKillNpc × globalBotMultiplier × profile.multiplier + profile.flatXp
func (s *Service) OnBotKill(killer identity.PlayerRef, profileName string, botID uint64) {
	s.gate.MarkBot(botID)
	if !s.gate.IsHumanPlayer(killer) {
		return
	}

	s.store.Touch(killer.ID, killer.Name, func(p *progression.Profile) {
		p.NpcKills++
	})

	settings := s.cfg.EnsureBotProfile(profileName)
	npcRate, _ := s.cfg.KillRates()
	xp := npcRate*s.cfg.BotMultiplier()*settings.Multiplier + settings.FlatXP

	if profileName == "" {
		profileName = config.UnnamedProfile
	}
	s.award(killer.ID, killer.Name, xp, fmt.Sprintf("BotReSpawn (%s)", profileName))
	s.qualifyingKill(killer.ID)
}

// OnDealDamage scales an outgoing damage amount by the attacker's current
// Rage bonus. Non-human attackers pass through unchanged.
func (s *Service) OnDealDamage(attacker identity.PlayerRef, weapon string, damage float64) float64 {
	if !s.gate.IsHumanPlayer(attacker) {
		return damage
	}
	return s.rage.ScaleDamage(attacker.ID, weapon, damage)
}

// GiveXP is the grant entry point for other plugins holding a resolved
// player handle.
func (s *Service) GiveXP(p identity.PlayerRef, amount float64) {
	if s.gate.IsHumanPlayer(p) {
		s.award(p.ID, p.Name, amount, "API")
	}
}

// GiveXPID grants XP by raw numeric identity.
func (s *Service) GiveXPID(id uint64, amount float64) {
	s.award(id, "", amount, "API_ID")
}

// GiveXPBasic is the compatibility variant of GiveXP; it differs only in the
// reason tag recorded for attribution.
func (s *Service) GiveXPBasic(p identity.PlayerRef, amount float64) {
	if s.gate.IsHumanPlayer(p) {
		s.award(p.ID, p.Name, amount, "API_BASIC")
	}
}

func (s *Service) award(id uint64, name string, amount float64, reason string) {
	res, ok := s.store.Award(id, name, amount, reason)
	if ok && s.notify != nil {
		s.notify.NotifyAward(res)
	}
}

func (s *Service) qualifyingKill(id uint64) {
	status, ok := s.rage.OnQualifyingKill(id)
	if ok && s.notify != nil {
		s.notify.NotifyFury(id, status)
	}
}

func isPlant(shortname string) bool {
	s := strings.ToLower(shortname)
	for _, plant := range []string{"corn", "pumpkin", "hemp", "mushroom"} {
		if strings.Contains(s, plant) {
			return true
		}
	}
	return false
}
