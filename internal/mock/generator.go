// Package mock drives the intake service with synthetic game events so the
// panel can be developed without a live game host.
package mock

import (
	"context"
	"math/rand"
	"time"

	"github.com/omnirpg/engine/internal/economy"
	"github.com/omnirpg/engine/internal/identity"
	"github.com/omnirpg/engine/internal/intake"
)

type mockPlayer struct {
	ref identity.PlayerRef
	// killBias skews how often this player lands kills vs gathers, so the
	// leaderboard spreads out quickly.
	killBias float64
	weapons  []string
}

var botProfiles = []string{"Airfield", "Launch Site", "Outpost Snipers", ""}

var resources = []intake.Resource{
	intake.ResourceOre,
	intake.ResourceWood,
	intake.ResourcePlants,
}

type Generator struct {
	intake  *intake.Service
	bank    *economy.MemoryBank
	players []mockPlayer
	rng     *rand.Rand

	nextBotID uint64
}

func NewGenerator(in *intake.Service, bank *economy.MemoryBank) *Generator {
	g := &Generator{
		intake:    in,
		bank:      bank,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		nextBotID: 1000,
	}

	g.players = []mockPlayer{
		{ref: identity.PlayerRef{ID: 76561198000000001, Name: "Vex"}, killBias: 0.7, weapons: []string{"rifle.ak", "pistol.semiauto"}},
		{ref: identity.PlayerRef{ID: 76561198000000002, Name: "Moss"}, killBias: 0.3, weapons: []string{"shotgun.pump"}},
		{ref: identity.PlayerRef{ID: 76561198000000003, Name: "Harlan"}, killBias: 0.5, weapons: []string{"rifle.bolt", "nailgun"}},
		{ref: identity.PlayerRef{ID: 76561198000000004, Name: "Quinn"}, killBias: 0.2, weapons: []string{"pistol.revolver"}},
	}

	return g
}

// Start connects the roster, seeds their wallets and begins emitting events
// every tick until ctx is cancelled.
func (g *Generator) Start(ctx context.Context) {
	for _, p := range g.players {
		g.intake.OnConnect(p.ref)
		g.bank.Deposit(p.ref.ID, 500)
		g.bank.GrantPoints(p.ref.ID, 100)
		g.bank.GiveItem(p.ref.ID, "scrap", 200)
	}

	go g.run(ctx)
}

func (g *Generator) run(ctx context.Context) {
	ticker := time.NewTicker(700 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for _, p := range g.players {
				g.intake.OnDisconnect(p.ref)
			}
			return
		case <-ticker.C:
			g.tick()
		}
	}
}

func (g *Generator) tick() {
	p := g.players[g.rng.Intn(len(g.players))]

	roll := g.rng.Float64()
	switch {
	case roll < p.killBias*0.3:
		// Bot-respawner kill with profile attribution.
		profile := botProfiles[g.rng.Intn(len(botProfiles))]
		g.nextBotID++
		g.intake.OnBotSpawn(profile, g.nextBotID)
		g.intake.OnBotKill(p.ref, profile, g.nextBotID)
	case roll < p.killBias*0.5:
		// Animal kill.
		g.intake.OnKill(p.ref, intake.Victim{IsNPC: true})
	case roll < p.killBias*0.6:
		// Player kill against a random other roster member.
		victim := g.players[g.rng.Intn(len(g.players))]
		if victim.ref.ID != p.ref.ID {
			g.intake.OnKill(p.ref, intake.Victim{Player: &victim.ref})
		}
	default:
		kind := resources[g.rng.Intn(len(resources))]
		g.intake.OnGather(p.ref, kind, 1+g.rng.Intn(10))
	}

	// Occasional damage tick exercises the bonus path.
	if g.rng.Float64() < 0.2 && len(p.weapons) > 0 {
		weapon := p.weapons[g.rng.Intn(len(p.weapons))]
		g.intake.OnDealDamage(p.ref, weapon, 50)
	}
}
