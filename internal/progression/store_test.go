package progression

import (
	"testing"
	"time"
)

func TestTouch_CreatesLazily(t *testing.T) {
	s, _ := newTestStore(t)

	if s.Count() != 0 {
		t.Fatalf("fresh store has %d profiles", s.Count())
	}
	if !s.Touch(1, "Vex", nil) {
		t.Fatal("Touch rejected an allowed id")
	}

	p, ok := s.Get(1)
	if !ok {
		t.Fatal("profile missing after Touch")
	}
	if p.Level != 1 {
		t.Errorf("Level = %d, want 1", p.Level)
	}
	if p.XPToNextLevel != 100 {
		t.Errorf("XPToNextLevel = %v, want 100 from the default curve", p.XPToNextLevel)
	}
	if p.Rage.MaxUnlockedTier != 1 {
		t.Errorf("MaxUnlockedTier = %d, want 1", p.Rage.MaxUnlockedTier)
	}
}

func TestTouch_GateRejects(t *testing.T) {
	svc := testConfigService()
	s := NewStore(svc, NewFileStore(t.TempDir()), denyAll{})

	if s.Touch(1, "bot", nil) {
		t.Error("Touch accepted a gated id")
	}
	if s.Count() != 0 {
		t.Error("gated Touch created a profile")
	}
}

func TestTouch_RefreshesName(t *testing.T) {
	s, _ := newTestStore(t)

	s.Touch(1, "OldName", nil)
	s.Touch(1, "NewName", nil)

	p, _ := s.Get(1)
	if p.Name != "NewName" {
		t.Errorf("Name = %q, want refreshed display name", p.Name)
	}

	// An empty sighting must not erase the last known name.
	s.Touch(1, "", nil)
	p, _ = s.Get(1)
	if p.Name != "NewName" {
		t.Errorf("Name = %q after empty sighting, want NewName", p.Name)
	}
}

func TestUpdate_MissingProfile(t *testing.T) {
	s, _ := newTestStore(t)
	if s.Update(42, func(p *Profile) {}) {
		t.Error("Update reported true for a missing profile")
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	s, _ := newTestStore(t)
	s.Touch(1, "p", func(p *Profile) {
		p.Rage.NodeLevels["core"] = 3
	})

	p, _ := s.Get(1)
	p.Rage.NodeLevels["core"] = 99

	again, _ := s.Get(1)
	if again.Rage.NodeLevels["core"] != 3 {
		t.Error("Get leaked an aliased NodeLevels map")
	}
}

func TestPlaytime_DisconnectFlushes(t *testing.T) {
	s, _ := newTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	now := base
	s.now = func() time.Time { return now }

	s.Connect(1, "p")
	now = base.Add(90 * time.Second)
	s.Disconnect(1)

	p, _ := s.Get(1)
	if p.TotalPlayTimeSeconds != 90 {
		t.Errorf("TotalPlayTimeSeconds = %v, want 90", p.TotalPlayTimeSeconds)
	}
	if !p.SessionStart.IsZero() {
		t.Error("SessionStart not cleared on disconnect")
	}

	// A second disconnect must not double-count.
	s.Disconnect(1)
	p, _ = s.Get(1)
	if p.TotalPlayTimeSeconds != 90 {
		t.Errorf("TotalPlayTimeSeconds = %v after repeat disconnect, want 90", p.TotalPlayTimeSeconds)
	}
}

func TestPlaytime_PeriodicFlushRestartsClock(t *testing.T) {
	s, _ := newTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	now := base
	s.now = func() time.Time { return now }

	s.Connect(1, "p")

	now = base.Add(30 * time.Second)
	s.FlushPlaytime()
	now = base.Add(50 * time.Second)
	s.Disconnect(1)

	p, _ := s.Get(1)
	if p.TotalPlayTimeSeconds != 50 {
		t.Errorf("TotalPlayTimeSeconds = %v, want 50 (30 flushed + 20 on disconnect)", p.TotalPlayTimeSeconds)
	}
}
