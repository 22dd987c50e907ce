package ws

import (
	"github.com/omnirpg/engine/internal/progression"
	"github.com/omnirpg/engine/internal/rage"
)

type MessageType string

const (
	MsgLeaderboard MessageType = "leaderboard"
	MsgXPAwards    MessageType = "xp_awards"
	MsgLevelUp     MessageType = "level_up"
	MsgFury        MessageType = "fury"
	MsgTierUnlock  MessageType = "tier_unlock"
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

type LeaderboardPayload struct {
	Entries []progression.LeaderboardEntry `json:"entries"`
}

type XPAwardsPayload struct {
	Awards []progression.AwardResult `json:"awards"`
}

type LevelUpPayload struct {
	UserID                 uint64 `json:"userId"`
	Name                   string `json:"name"`
	NewLevel               int    `json:"newLevel"`
	LevelsGained           int    `json:"levelsGained"`
	DisciplinePointsGained int    `json:"disciplinePointsGained"`
	RagePointsGained       int    `json:"ragePointsGained"`
}

type FuryPayload struct {
	UserID uint64          `json:"userId"`
	Status rage.FuryStatus `json:"status"`
}

type TierUnlockPayload struct {
	UserID uint64 `json:"userId"`
	Tier   int    `json:"tier"`
}
