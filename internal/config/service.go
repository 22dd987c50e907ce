package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// UnnamedProfile is substituted when the bot-respawner reports an empty
// profile name.
const UnnamedProfile = "UnnamedProfile"

// Service wraps a Config behind a mutex so admin edits and gameplay reads can
// happen concurrently. All numeric edits go through the Adjust* methods, which
// own the per-field min/max clamps; nothing else in the codebase clamps config
// values.
type Service struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

func NewService(cfg *Config, path string) *Service {
	return &Service{cfg: cfg, path: path}
}

// Save writes the current config to disk using a temp-file-then-rename so a
// crash mid-write never corrupts the file.
func (s *Service) Save() error {
	s.mu.RLock()
	data, err := yaml.Marshal(s.cfg)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	tmp, err := os.CreateTemp("", ".omnirpg-config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("renaming config file: %w", err)
	}
	committed = true
	return nil
}

func (s *Service) Server() ServerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Server
}

// LevelCurve returns the live curve constants. Callers must re-read on every
// operation; existing profiles keep their banked thresholds until the next
// level-up.
func (s *Service) LevelCurve() (base, growth float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.XP.LevelCurveBase, s.cfg.XP.LevelCurveGrowth
}

func (s *Service) KillRates() (npc, player float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.XP.BaseKillNpc, s.cfg.XP.BaseKillPlayer
}

func (s *Service) GatherRates() (ore, wood, plants float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.XP.BaseGatherOre, s.cfg.XP.BaseGatherWood, s.cfg.XP.BaseGatherPlants
}

func (s *Service) BotMultiplier() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.XP.BotMultiplier
}

func (s *Service) CorePointsPerLevel() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Rage.CorePointsPerLevel
}

func (s *Service) RageEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Rage.Enabled
}

// FurySettings is the snapshot the Fury engine reads on every operation.
type FurySettings struct {
	DurationSeconds float64
	MaxBonus        float64
	OnKillGain      float64
	ResetOnExpire   bool
}

func (s *Service) Fury() FurySettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FurySettings{
		DurationSeconds: s.cfg.Rage.FuryDurationSeconds,
		MaxBonus:        s.cfg.Rage.FuryMaxBonus,
		OnKillGain:      s.cfg.Rage.FuryOnKillGain,
		ResetOnExpire:   s.cfg.Rage.FuryResetOnExpire,
	}
}

func (s *Service) CoreNode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Rage.CoreNode
}

// Node looks up a Rage catalog entry by id.
func (s *Service) Node(id string) (NodeConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nc, ok := s.cfg.Rage.Nodes[id]
	return nc, ok
}

// Nodes returns a copy of the live catalog.
func (s *Service) Nodes() map[string]NodeConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]NodeConfig, len(s.cfg.Rage.Nodes))
	for id, nc := range s.cfg.Rage.Nodes {
		out[id] = nc
	}
	return out
}

func (s *Service) Respec() RespecConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Rage.Respec
}

// EnsureBotProfile returns the settings for a bot-respawner profile, creating
// them with defaults on first sighting. An empty name maps to UnnamedProfile.
// The config file is saved when a new entry is created.
func (s *Service) EnsureBotProfile(name string) BotProfile {
	if name == "" {
		name = UnnamedProfile
	}

	s.mu.Lock()
	bp, ok := s.cfg.XP.BotProfiles[name]
	if !ok {
		bp = BotProfile{Multiplier: 1.0, FlatXP: 0}
		s.cfg.XP.BotProfiles[name] = bp
	}
	s.mu.Unlock()

	if !ok && s.path != "" {
		if err := s.Save(); err != nil {
			// Not fatal; the entry stays live in memory.
			fmt.Fprintf(os.Stderr, "config: saving new bot profile %q: %v\n", name, err)
		}
	}
	return bp
}

// BotProfiles returns a copy of the current bot-profile map.
func (s *Service) BotProfiles() map[string]BotProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]BotProfile, len(s.cfg.XP.BotProfiles))
	for name, bp := range s.cfg.XP.BotProfiles {
		out[name] = bp
	}
	return out
}

// Snapshot returns a deep copy of the whole config for the read-only API.
func (s *Service) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := *s.cfg
	cp.XP.BotProfiles = make(map[string]BotProfile, len(s.cfg.XP.BotProfiles))
	for name, bp := range s.cfg.XP.BotProfiles {
		cp.XP.BotProfiles[name] = bp
	}
	cp.Rage.Nodes = make(map[string]NodeConfig, len(s.cfg.Rage.Nodes))
	for id, nc := range s.cfg.Rage.Nodes {
		cp.Rage.Nodes[id] = nc
	}
	return cp
}

// AdjustXPField applies delta to a named XP field, clamping to that field's
// valid range. Unknown fields return an error and change nothing.
func (s *Service) AdjustXPField(field string, delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	xp := &s.cfg.XP
	switch field {
	case "BaseKillNpc":
		xp.BaseKillNpc = max(0, xp.BaseKillNpc+delta)
	case "BaseKillPlayer":
		xp.BaseKillPlayer = max(0, xp.BaseKillPlayer+delta)
	case "BaseGatherOre":
		xp.BaseGatherOre = max(0, xp.BaseGatherOre+delta)
	case "BaseGatherWood":
		xp.BaseGatherWood = max(0, xp.BaseGatherWood+delta)
	case "BaseGatherPlants":
		xp.BaseGatherPlants = max(0, xp.BaseGatherPlants+delta)
	case "BotMultiplier":
		xp.BotMultiplier = max(0, xp.BotMultiplier+delta)
	case "LevelCurveBase":
		xp.LevelCurveBase = max(1, xp.LevelCurveBase+delta)
	case "LevelCurveGrowth":
		xp.LevelCurveGrowth = clamp(xp.LevelCurveGrowth+delta, 1.01, 5)
	default:
		return fmt.Errorf("unknown xp field %q", field)
	}
	return nil
}

// AdjustRageField applies delta to a named Rage field with per-field clamps.
func (s *Service) AdjustRageField(field string, delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := &s.cfg.Rage
	switch field {
	case "CorePointsPerLevel":
		r.CorePointsPerLevel = max(0, r.CorePointsPerLevel+delta)
	case "FuryDurationSeconds":
		r.FuryDurationSeconds = clamp(r.FuryDurationSeconds+delta, 1, 120)
	case "FuryMaxBonus":
		r.FuryMaxBonus = clamp(r.FuryMaxBonus+delta, 0, 2)
	case "FuryOnKillGain":
		r.FuryOnKillGain = clamp(r.FuryOnKillGain+delta, 0, 1)
	default:
		return fmt.Errorf("unknown rage field %q", field)
	}
	return nil
}

// AdjustRespecField applies delta to a named respec-cost field.
func (s *Service) AdjustRespecField(field string, delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := &s.cfg.Rage.Respec
	switch field {
	case "CurrencyCost":
		r.CurrencyCost = max(0, r.CurrencyCost+delta)
	case "RewardsCost":
		r.RewardsCost = int(max(0, float64(r.RewardsCost)+delta))
	case "ItemAmount":
		r.ItemAmount = int(max(0, float64(r.ItemAmount)+delta))
	default:
		return fmt.Errorf("unknown respec field %q", field)
	}
	return nil
}

// Toggle flips a named boolean field.
func (s *Service) Toggle(field string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch field {
	case "RageEnabled":
		s.cfg.Rage.Enabled = !s.cfg.Rage.Enabled
		return s.cfg.Rage.Enabled, nil
	case "RespecEnabled":
		s.cfg.Rage.Respec.Enabled = !s.cfg.Rage.Respec.Enabled
		return s.cfg.Rage.Respec.Enabled, nil
	case "FuryResetOnExpire":
		s.cfg.Rage.FuryResetOnExpire = !s.cfg.Rage.FuryResetOnExpire
		return s.cfg.Rage.FuryResetOnExpire, nil
	default:
		return false, fmt.Errorf("unknown toggle %q", field)
	}
}

// SetRespecMode sets the respec payment mode. Recognised values are
// "currency", "rewards", "item", "free" and ""; anything else is rejected so
// a typo cannot silently make respecs free.
func (s *Service) SetRespecMode(mode string) error {
	m := strings.ToLower(strings.TrimSpace(mode))
	switch m {
	case "", "free", "currency", "rewards", "item":
	default:
		return fmt.Errorf("unknown respec mode %q", mode)
	}

	s.mu.Lock()
	s.cfg.Rage.Respec.Mode = m
	s.mu.Unlock()
	return nil
}

// AdjustBotProfile applies delta to one field of a bot profile, creating the
// profile if it does not exist. field is "multiplier" or "flat".
func (s *Service) AdjustBotProfile(name, field string, delta float64) (BotProfile, error) {
	if name == "" {
		name = UnnamedProfile
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bp, ok := s.cfg.XP.BotProfiles[name]
	if !ok {
		bp = BotProfile{Multiplier: 1.0, FlatXP: 0}
	}
	switch field {
	case "multiplier":
		bp.Multiplier = max(0, bp.Multiplier+delta)
	case "flat":
		bp.FlatXP = max(0, bp.FlatXP+delta)
	default:
		return BotProfile{}, fmt.Errorf("unknown bot profile field %q", field)
	}
	s.cfg.XP.BotProfiles[name] = bp
	return bp, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
