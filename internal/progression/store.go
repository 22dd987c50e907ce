package progression

import (
	"log"
	"sync"
	"time"

	"github.com/omnirpg/engine/internal/config"
)

// IdentityGate is the predicate deciding whether an id may own a profile.
type IdentityGate interface {
	IsHumanID(id uint64) bool
}

// Store owns the in-memory profile map and serializes every mutation behind
// one mutex. The host may deliver events from many goroutines; the lock is
// what keeps concurrent awards to the same profile from interleaving their
// read-modify-write of CurrentXP and Level.
type Store struct {
	mu      sync.Mutex
	players map[uint64]*Profile

	cfg     *config.Service
	persist *FileStore
	gate    IdentityGate

	now func() time.Time
}

func NewStore(cfg *config.Service, persist *FileStore, gate IdentityGate) *Store {
	return &Store{
		players: make(map[uint64]*Profile),
		cfg:     cfg,
		persist: persist,
		gate:    gate,
		now:     time.Now,
	}
}

// Load bulk-loads all profiles at startup. A corrupt or unreadable data file
// is logged and replaced with an empty store; it never fails startup.
func (s *Store) Load() {
	players, err := s.persist.Load()
	if err != nil {
		log.Printf("progression: data file unreadable, starting fresh: %v", err)
	}

	s.mu.Lock()
	s.players = players
	s.mu.Unlock()
}

// Save writes the whole store to disk. The map is cloned under the lock and
// written outside it.
func (s *Store) Save() error {
	s.mu.Lock()
	snapshot := make(map[uint64]*Profile, len(s.players))
	for id, p := range s.players {
		snapshot[id] = p.clone()
	}
	s.mu.Unlock()

	return s.persist.Save(snapshot)
}

// Get returns a copy of the profile for id.
func (s *Store) Get(id uint64) (Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return Profile{}, false
	}
	return *p.clone(), true
}

// All returns copies of every profile in unspecified order.
func (s *Store) All() []*Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Profile, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p.clone())
	}
	return out
}

// Count returns the number of tracked profiles.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// getOrCreate must be called with the lock held. Returns nil when the
// identity gate rejects the id.
func (s *Store) getOrCreate(id uint64, name string) *Profile {
	if !s.gate.IsHumanID(id) {
		return nil
	}
	p, ok := s.players[id]
	if !ok {
		base, growth := s.cfg.LevelCurve()
		p = newProfile(id, name, RequiredXP(base, growth, 1))
		s.players[id] = p
	} else if name != "" {
		p.Name = name
	}
	return p
}

// Update runs fn on an existing profile under the store lock. It returns
// false when the profile does not exist. fn must not retain the pointer.
func (s *Store) Update(id uint64, fn func(*Profile)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return false
	}
	fn(p)
	return true
}

// Touch runs fn on the profile for id, lazily creating it first. It returns
// false when the identity gate rejects the id. fn may be nil.
func (s *Store) Touch(id uint64, name string, fn func(*Profile)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.getOrCreate(id, name)
	if p == nil {
		return false
	}
	if fn != nil {
		fn(p)
	}
	return true
}

// Connect marks the start of a play session.
func (s *Store) Connect(id uint64, name string) bool {
	now := s.now()
	return s.Touch(id, name, func(p *Profile) {
		p.SessionStart = now
	})
}

// Disconnect flushes the current session into TotalPlayTimeSeconds and
// persists the store.
func (s *Store) Disconnect(id uint64) {
	now := s.now()
	s.Update(id, func(p *Profile) {
		if !p.SessionStart.IsZero() {
			p.TotalPlayTimeSeconds += now.Sub(p.SessionStart).Seconds()
			p.SessionStart = time.Time{}
		}
	})
	if err := s.Save(); err != nil {
		log.Printf("progression: save on disconnect: %v", err)
	}
}

// FlushPlaytime folds elapsed session time into every connected profile and
// restarts their session clocks. Called from the periodic host-save path.
func (s *Store) FlushPlaytime() {
	now := s.now()
	s.mu.Lock()
	for _, p := range s.players {
		if !p.SessionStart.IsZero() {
			p.TotalPlayTimeSeconds += now.Sub(p.SessionStart).Seconds()
			p.SessionStart = now
		}
	}
	s.mu.Unlock()
}
