package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	XP     XPConfig     `yaml:"xp"`
	Rage   RageConfig   `yaml:"rage"`
}

type ServerConfig struct {
	Port              int           `yaml:"port"`
	Host              string        `yaml:"host"`
	AuthToken         string        `yaml:"auth_token"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
	SaveInterval      time.Duration `yaml:"save_interval"`
	SnapshotInterval  time.Duration `yaml:"snapshot_interval"`
	BroadcastThrottle time.Duration `yaml:"broadcast_throttle"`
}

type XPConfig struct {
	BaseKillNpc      float64 `yaml:"base_kill_npc"`
	BaseKillPlayer   float64 `yaml:"base_kill_player"`
	BaseGatherOre    float64 `yaml:"base_gather_ore"`
	BaseGatherWood   float64 `yaml:"base_gather_wood"`
	BaseGatherPlants float64 `yaml:"base_gather_plants"`

	// Global multiplier applied to every bot-respawner kill on top of the
	// per-profile multiplier.
	BotMultiplier float64 `yaml:"bot_multiplier"`

	LevelCurveBase   float64 `yaml:"level_curve_base"`
	LevelCurveGrowth float64 `yaml:"level_curve_growth"`

	// LegacyBotProfileMultipliers is the old multiplier-only map. It is kept
	// only so existing config files still parse; Load migrates it into
	// BotProfiles once and never touches a non-empty BotProfiles map.
	LegacyBotProfileMultipliers map[string]float64 `yaml:"bot_profile_multipliers,omitempty"`

	BotProfiles map[string]BotProfile `yaml:"bot_profiles"`
}

// BotProfile holds the per-profile XP tuning for a bot-respawner profile.
type BotProfile struct {
	Multiplier float64 `yaml:"multiplier"`
	FlatXP     float64 `yaml:"flat_xp"`
}

type RageConfig struct {
	Enabled            bool    `yaml:"enabled"`
	CorePointsPerLevel float64 `yaml:"core_points_per_level"`

	FuryDurationSeconds float64 `yaml:"fury_duration_seconds"`
	FuryMaxBonus        float64 `yaml:"fury_max_bonus"`
	FuryOnKillGain      float64 `yaml:"fury_on_kill_gain"`
	// FuryResetOnExpire zeroes the fury amount once the window lapses instead
	// of letting the next kill stack on top of the stale value. Off by default
	// to match the behavior servers are already tuned around.
	FuryResetOnExpire bool `yaml:"fury_reset_on_expire"`

	// CoreNode names the catalog entry whose max level unlocks tier 2.
	CoreNode string                `yaml:"core_node"`
	Nodes    map[string]NodeConfig `yaml:"nodes"`

	Respec RespecConfig `yaml:"respec"`
}

// NodeConfig describes one upgradeable node in the Rage tree. The catalog is
// data-driven on purpose: server owners add nodes by editing config, not code.
type NodeConfig struct {
	DisplayName             string  `yaml:"display_name"`
	MaxLevel                int     `yaml:"max_level"`
	DamagePerLevel          float64 `yaml:"damage_per_level"`
	CritChancePerLevel      float64 `yaml:"crit_chance_per_level"`
	CritDamagePerLevel      float64 `yaml:"crit_damage_per_level"`
	BleedChancePerLevel     float64 `yaml:"bleed_chance_per_level"`
	MoveSpeedPerLevel       float64 `yaml:"move_speed_per_level"`
	RecoilReductionPerLevel float64 `yaml:"recoil_reduction_per_level"`
}

type RespecConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Mode         string  `yaml:"mode"` // "currency", "rewards", "item", or "" for free
	CurrencyCost float64 `yaml:"currency_cost"`
	RewardsCost  int     `yaml:"rewards_cost"`
	ItemName     string  `yaml:"item_name"`
	ItemAmount   int     `yaml:"item_amount"`
}

// Default returns the full default configuration, including the stock
// four-node Rage catalog.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              8080,
			Host:              "0.0.0.0",
			SaveInterval:      30 * time.Second,
			SnapshotInterval:  5 * time.Second,
			BroadcastThrottle: 100 * time.Millisecond,
		},
		XP: XPConfig{
			BaseKillNpc:      25,
			BaseKillPlayer:   50,
			BaseGatherOre:    2,
			BaseGatherWood:   1,
			BaseGatherPlants: 1.5,
			BotMultiplier:    1.0,
			LevelCurveBase:   100,
			LevelCurveGrowth: 1.25,
			BotProfiles:      map[string]BotProfile{},
		},
		Rage: RageConfig{
			Enabled:             true,
			CorePointsPerLevel:  1.0,
			FuryDurationSeconds: 10,
			FuryMaxBonus:        0.3,
			FuryOnKillGain:      0.15,
			CoreNode:            "core",
			Nodes: map[string]NodeConfig{
				"core": {
					DisplayName:             "Rage",
					MaxLevel:                20,
					DamagePerLevel:          0.01,
					RecoilReductionPerLevel: 0.005,
					MoveSpeedPerLevel:       0.0025,
				},
				"rifle": {
					DisplayName:        "Rifle Mastery",
					MaxLevel:           10,
					DamagePerLevel:     0.02,
					CritChancePerLevel: 0.01,
				},
				"shotgun": {
					DisplayName:         "Shotgun Savagery",
					MaxLevel:            10,
					DamagePerLevel:      0.02,
					BleedChancePerLevel: 0.015,
				},
				"pistol": {
					DisplayName:        "Pistol Precision",
					MaxLevel:           10,
					DamagePerLevel:     0.015,
					CritDamagePerLevel: 0.015,
				},
			},
			Respec: RespecConfig{
				Enabled:  true,
				Mode:     "currency",
				ItemName: "scrap",
			},
		},
	}
}

// Load reads the config at path on top of the defaults. A missing or malformed
// file is not fatal: the defaults are used and a warning is logged. The legacy
// bot-profile multiplier map is migrated after parsing.
func Load(path string) *Config {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("config: cannot read %s, using defaults: %v", path, err)
		}
		return cfg
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Printf("config: %s is malformed, using defaults: %v", path, err)
		return Default()
	}

	if cfg.XP.BotProfiles == nil {
		cfg.XP.BotProfiles = map[string]BotProfile{}
	}
	migrateBotProfiles(&cfg.XP)

	return cfg
}

// migrateBotProfiles copies the legacy multiplier-only map into the full
// BotProfiles map. It runs only when the new map is empty, so a populated
// BotProfiles map is never overwritten and re-running is a no-op.
func migrateBotProfiles(xp *XPConfig) {
	if len(xp.LegacyBotProfileMultipliers) == 0 || len(xp.BotProfiles) > 0 {
		return
	}
	for name, mult := range xp.LegacyBotProfileMultipliers {
		xp.BotProfiles[name] = BotProfile{Multiplier: mult, FlatXP: 0}
	}
}
