package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/omnirpg/engine/internal/progression"
	"github.com/omnirpg/engine/internal/rage"
)

const leaderboardSize = 15

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, 64),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) close() {
	close(c.send)
}

// Broadcaster fans progression events out to connected panel clients. XP
// awards are batched behind a short throttle because gather spam can produce
// dozens per second; level-ups, fury and tier unlocks go out immediately.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[*client]bool
	store   *progression.Store

	throttle       time.Duration
	snapshotTicker *time.Ticker

	flushMu       sync.Mutex
	pendingAwards []progression.AwardResult
	flushTimer    *time.Timer
}

func NewBroadcaster(store *progression.Store, throttle, snapshotInterval time.Duration) *Broadcaster {
	b := &Broadcaster{
		clients:  make(map[*client]bool),
		store:    store,
		throttle: throttle,
	}

	b.snapshotTicker = time.NewTicker(snapshotInterval)
	go b.snapshotLoop()

	return b
}

func (b *Broadcaster) AddClient(conn *websocket.Conn) *client {
	c := newClient(conn)

	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	snapshot := WSMessage{
		Type: MsgLeaderboard,
		Payload: LeaderboardPayload{
			Entries: b.store.Top(leaderboardSize),
		},
	}
	data, _ := json.Marshal(snapshot)

	select {
	case c.send <- data:
	default:
		// Client too slow, drop the snapshot
	}

	return c
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		c.close()
	}
	b.mu.Unlock()
}

// NotifyAward queues an XP award for the next throttled flush. Awards that
// leveled the player also push an immediate level-up message.
func (b *Broadcaster) NotifyAward(res progression.AwardResult) {
	b.flushMu.Lock()
	b.pendingAwards = append(b.pendingAwards, res)
	if b.flushTimer == nil {
		b.flushTimer = time.AfterFunc(b.throttle, b.flush)
	}
	b.flushMu.Unlock()

	if res.LevelsGained > 0 {
		b.broadcast(WSMessage{
			Type: MsgLevelUp,
			Payload: LevelUpPayload{
				UserID:                 res.ID,
				Name:                   res.Name,
				NewLevel:               res.NewLevel,
				LevelsGained:           res.LevelsGained,
				DisciplinePointsGained: res.DisciplinePointsGained,
				RagePointsGained:       res.RagePointsGained,
			},
		})
	}
}

// NotifyFury pushes the post-kill fury state.
func (b *Broadcaster) NotifyFury(id uint64, status rage.FuryStatus) {
	b.broadcast(WSMessage{
		Type:    MsgFury,
		Payload: FuryPayload{UserID: id, Status: status},
	})
}

// NotifyTierUnlock announces a newly unlocked Rage tier.
func (b *Broadcaster) NotifyTierUnlock(id uint64, tier int) {
	b.broadcast(WSMessage{
		Type:    MsgTierUnlock,
		Payload: TierUnlockPayload{UserID: id, Tier: tier},
	})
}

func (b *Broadcaster) flush() {
	b.flushMu.Lock()
	awards := b.pendingAwards
	b.pendingAwards = nil
	b.flushTimer = nil
	b.flushMu.Unlock()

	if len(awards) == 0 {
		return
	}

	b.broadcast(WSMessage{
		Type:    MsgXPAwards,
		Payload: XPAwardsPayload{Awards: awards},
	})
}

func (b *Broadcaster) snapshotLoop() {
	for range b.snapshotTicker.C {
		b.broadcast(WSMessage{
			Type: MsgLeaderboard,
			Payload: LeaderboardPayload{
				Entries: b.store.Top(leaderboardSize),
			},
		})
	}
}

func (b *Broadcaster) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			// Client can't keep up, disconnect it
			log.Printf("ws client too slow, disconnecting")
			b.RemoveClient(c)
		}
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
