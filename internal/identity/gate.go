// Package identity decides which identities count as real players. Every
// profile creation and XP-granting operation runs through the Gate.
package identity

import (
	"strconv"
	"strings"
	"sync"
)

// PlayerRef describes an identity as seen by the host at event time.
type PlayerRef struct {
	ID    uint64
	Name  string
	IsNPC bool // host-side NPC flag
}

// BotDetector asks the external bot-respawner plugin whether an id belongs to
// one of its bots. Implementations may fail; an error is treated as "not a
// bot" — the ID-shape heuristic still has to pass independently.
type BotDetector interface {
	IsBot(id uint64) (bool, error)
}

// Gate is the composable "is a real player" predicate. It combines the host
// NPC flag, a locally cached set of bot ids fed by spawn/kill notifications,
// an optional external detector, and the numeric ID-shape heuristic.
type Gate struct {
	mu       sync.RWMutex
	botIDs   map[uint64]struct{}
	detector BotDetector
}

// NewGate creates a Gate. detector may be nil when the bot-respawner plugin
// is not installed.
func NewGate(detector BotDetector) *Gate {
	return &Gate{
		botIDs:   make(map[uint64]struct{}),
		detector: detector,
	}
}

// MarkBot records an id reported by a bot spawn or kill notification.
func (g *Gate) MarkBot(id uint64) {
	g.mu.Lock()
	g.botIDs[id] = struct{}{}
	g.mu.Unlock()
}

// IsBot reports whether id is a known bot, consulting the cached set first
// and then the external detector. Detector errors default to false.
func (g *Gate) IsBot(id uint64) bool {
	g.mu.RLock()
	_, cached := g.botIDs[id]
	g.mu.RUnlock()
	if cached {
		return true
	}

	if g.detector != nil {
		if bot, err := g.detector.IsBot(id); err == nil && bot {
			return true
		}
	}
	return false
}

// LikelyHumanID is the ID-shape heuristic for real accounts: seventeen
// decimal digits starting with 7656.
func LikelyHumanID(id uint64) bool {
	s := strconv.FormatUint(id, 10)
	return len(s) == 17 && strings.HasPrefix(s, "7656")
}

// IsHumanID is the predicate used for stored records: the shape heuristic
// passes and the id is not a known bot.
func (g *Gate) IsHumanID(id uint64) bool {
	return LikelyHumanID(id) && !g.IsBot(id)
}

// IsHumanPlayer is the predicate used at event intake, where the host NPC
// flag is also available.
func (g *Gate) IsHumanPlayer(ref PlayerRef) bool {
	if ref.IsNPC {
		return false
	}
	return g.IsHumanID(ref.ID)
}
