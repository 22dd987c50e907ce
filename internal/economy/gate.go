// Package economy holds the contracts for the external payment plugins and
// the respec cost gate that dispatches between them.
package economy

import (
	"errors"
	"fmt"

	"github.com/omnirpg/engine/internal/config"
)

var (
	// ErrBackendUnavailable covers a missing plugin or any error it returns.
	// The gate always fails closed on it.
	ErrBackendUnavailable = errors.New("payment backend unavailable")
	ErrInsufficientFunds  = errors.New("insufficient balance")
	ErrInsufficientPoints = errors.New("insufficient reward points")
	ErrInsufficientItems  = errors.New("insufficient items")
)

// CurrencyBackend is a balance-based economy plugin.
type CurrencyBackend interface {
	Balance(id uint64) (float64, error)
	Withdraw(id uint64, amount float64) error
}

// RewardsBackend is a points-based rewards plugin. TakePoints reports false
// when the player cannot cover the cost.
type RewardsBackend interface {
	TakePoints(id uint64, amount int) (bool, error)
}

// InventoryBackend consumes items from a player's inventory.
type InventoryBackend interface {
	Count(id uint64, item string) (int, error)
	Consume(id uint64, item string, amount int) error
}

// CostGate charges the configured respec cost. It implements rage.CostPolicy.
type CostGate struct {
	cfg       *config.Service
	currency  CurrencyBackend
	rewards   RewardsBackend
	inventory InventoryBackend
}

func NewCostGate(cfg *config.Service, currency CurrencyBackend, rewards RewardsBackend, inventory InventoryBackend) *CostGate {
	return &CostGate{cfg: cfg, currency: currency, rewards: rewards, inventory: inventory}
}

// Charge withdraws the respec cost for id, dispatching on the configured
// mode. Disabled respec cost, an empty mode and the "free" sentinel all
// succeed without side effects; so does an unrecognised stored mode, which
// can only appear in a hand-edited config file. A charge either completes in
// full or changes nothing.
func (g *CostGate) Charge(id uint64) error {
	r := g.cfg.Respec()
	if !r.Enabled || r.Mode == "" || r.Mode == "free" {
		return nil
	}

	switch r.Mode {
	case "currency":
		return g.chargeCurrency(id, r.CurrencyCost)
	case "rewards":
		return g.chargeRewards(id, r.RewardsCost)
	case "item":
		return g.chargeItem(id, r.ItemName, r.ItemAmount)
	default:
		return nil
	}
}

func (g *CostGate) chargeCurrency(id uint64, cost float64) error {
	if cost <= 0 {
		return nil
	}
	if g.currency == nil {
		return fmt.Errorf("%w: currency plugin not loaded", ErrBackendUnavailable)
	}
	balance, err := g.currency.Balance(id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if balance < cost {
		return fmt.Errorf("%w: need %.0f coins", ErrInsufficientFunds, cost)
	}
	if err := g.currency.Withdraw(id, cost); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (g *CostGate) chargeRewards(id uint64, cost int) error {
	if cost <= 0 {
		return nil
	}
	if g.rewards == nil {
		return fmt.Errorf("%w: rewards plugin not loaded", ErrBackendUnavailable)
	}
	ok, err := g.rewards.TakePoints(id, cost)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if !ok {
		return fmt.Errorf("%w: need %d RP", ErrInsufficientPoints, cost)
	}
	return nil
}

func (g *CostGate) chargeItem(id uint64, item string, amount int) error {
	if item == "" || amount <= 0 {
		return nil
	}
	if g.inventory == nil {
		return fmt.Errorf("%w: inventory not reachable", ErrBackendUnavailable)
	}
	have, err := g.inventory.Count(id, item)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if have < amount {
		return fmt.Errorf("%w: need %d x %s", ErrInsufficientItems, amount, item)
	}
	if err := g.inventory.Consume(id, item, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}
