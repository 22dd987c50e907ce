// Package rage implements the Rage discipline: a data-driven skill tree with
// tiered unlocks, a full-tree respec as the only refund path, and the
// kill-triggered Fury damage buff.
package rage

import (
	"errors"
	"fmt"
	"time"

	"github.com/omnirpg/engine/internal/config"
	"github.com/omnirpg/engine/internal/progression"
)

var (
	ErrDisabled           = errors.New("rage discipline is disabled")
	ErrUnknownNode        = errors.New("unknown rage node")
	ErrNodeMaxed          = errors.New("node already at max level")
	ErrInsufficientPoints = errors.New("not enough rage points")
	ErrInvalidAmount      = errors.New("point amount must be positive")
	ErrUnknownProfile     = errors.New("no profile for that player")
)

// CostPolicy is charged before a respec mutates any state. Free returns nil
// without side effects; the economy package provides the paid gate.
type CostPolicy interface {
	Charge(id uint64) error
}

// Free is the no-cost policy used by the admin respec path.
type Free struct{}

func (Free) Charge(uint64) error { return nil }

// Engine operates on the Rage sub-record of profiles in the store. All
// catalog and tuning values are re-read from config on every call so admin
// edits apply immediately.
type Engine struct {
	cfg   *config.Service
	store *progression.Store

	// now is swapped out in tests.
	now func() time.Time
}

func NewEngine(cfg *config.Service, store *progression.Store) *Engine {
	return &Engine{cfg: cfg, store: store, now: time.Now}
}

// AllocateResult reports a successful allocation.
type AllocateResult struct {
	NodeID    string `json:"nodeId"`
	NodeName  string `json:"nodeName"`
	Spent     int    `json:"spent"`
	NewLevel  int    `json:"newLevel"`
	MaxLevel  int    `json:"maxLevel"`
	Remaining int    `json:"remaining"`
	// TierUnlocked is non-zero only on the call that raised the tier.
	TierUnlocked int `json:"tierUnlocked,omitempty"`
}

// Allocate spends up to points on a node, clamped to the node's remaining
// headroom. The spend is all-or-nothing against the player's unspent pool:
// a clamped spend that still exceeds the pool changes nothing.
func (e *Engine) Allocate(id uint64, nodeID string, points int) (AllocateResult, error) {
	if !e.cfg.RageEnabled() {
		return AllocateResult{}, ErrDisabled
	}
	if points <= 0 {
		return AllocateResult{}, ErrInvalidAmount
	}

	node, ok := e.cfg.Node(nodeID)
	if !ok {
		return AllocateResult{}, fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}
	coreNode := e.cfg.CoreNode()

	var (
		res    AllocateResult
		allErr error
	)
	found := e.store.Update(id, func(p *progression.Profile) {
		current := p.Rage.NodeLevel(nodeID)
		headroom := node.MaxLevel - current
		if headroom <= 0 {
			allErr = fmt.Errorf("%w: %s", ErrNodeMaxed, node.DisplayName)
			return
		}

		spend := min(points, headroom)
		if spend > p.Rage.UnspentPoints {
			allErr = ErrInsufficientPoints
			return
		}

		p.Rage.UnspentPoints -= spend
		newLevel := current + spend
		p.Rage.NodeLevels[nodeID] = newLevel

		res = AllocateResult{
			NodeID:    nodeID,
			NodeName:  node.DisplayName,
			Spent:     spend,
			NewLevel:  newLevel,
			MaxLevel:  node.MaxLevel,
			Remaining: p.Rage.UnspentPoints,
		}

		// Maxing the designated core node unlocks tier 2, exactly once.
		if nodeID == coreNode && newLevel >= node.MaxLevel && p.Rage.MaxUnlockedTier < 2 {
			p.Rage.MaxUnlockedTier = 2
			res.TierUnlocked = 2
		}
	})
	if !found {
		return AllocateResult{}, ErrUnknownProfile
	}
	if allErr != nil {
		return AllocateResult{}, allErr
	}

	if err := e.store.Save(); err != nil {
		return res, fmt.Errorf("saving after allocation: %w", err)
	}
	return res, nil
}

// RespecResult reports a completed respec.
type RespecResult struct {
	Refunded      int `json:"refunded"`
	UnspentPoints int `json:"unspentPoints"`
}

// Respec refunds every allocated node level back into the unspent pool,
// clears the tree and resets tier progression. The cost policy is charged
// before any state changes; a failed charge leaves the tree untouched.
func (e *Engine) Respec(id uint64, policy CostPolicy) (RespecResult, error) {
	if _, ok := e.store.Get(id); !ok {
		return RespecResult{}, ErrUnknownProfile
	}

	if policy == nil {
		policy = Free{}
	}
	if err := policy.Charge(id); err != nil {
		return RespecResult{}, err
	}

	var res RespecResult
	e.store.Update(id, func(p *progression.Profile) {
		refund := p.Rage.SpentPoints()
		p.Rage.NodeLevels = make(map[string]int)
		p.Rage.UnspentPoints += refund
		p.Rage.MaxUnlockedTier = 1

		res = RespecResult{
			Refunded:      refund,
			UnspentPoints: p.Rage.UnspentPoints,
		}
	})

	if err := e.store.Save(); err != nil {
		return res, fmt.Errorf("saving after respec: %w", err)
	}
	return res, nil
}

// NodeSummary is one row of a player's tree summary.
type NodeSummary struct {
	NodeID      string `json:"nodeId"`
	DisplayName string `json:"displayName"`
	Level       int    `json:"level"`
	MaxLevel    int    `json:"maxLevel"`
}

// Summary projects a player's current tree state against the live catalog.
func (e *Engine) Summary(id uint64) ([]NodeSummary, error) {
	p, ok := e.store.Get(id)
	if !ok {
		return nil, ErrUnknownProfile
	}

	nodes := e.cfg.Nodes()
	out := make([]NodeSummary, 0, len(nodes))
	for nodeID, nc := range nodes {
		out = append(out, NodeSummary{
			NodeID:      nodeID,
			DisplayName: nc.DisplayName,
			Level:       p.Rage.NodeLevel(nodeID),
			MaxLevel:    nc.MaxLevel,
		})
	}
	return out, nil
}
