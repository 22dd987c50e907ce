package identity

import (
	"errors"
	"testing"
)

const humanID = uint64(76561198000000001)

func TestLikelyHumanID(t *testing.T) {
	cases := []struct {
		id   uint64
		want bool
	}{
		{humanID, true},
		{76561197960265728, true},
		{12345, false},              // too short
		{12345678901234567, false},  // right length, wrong prefix
		{765611980000000012, false}, // eighteen digits
		{7656119800000000, false},   // sixteen digits
	}
	for _, tc := range cases {
		if got := LikelyHumanID(tc.id); got != tc.want {
			t.Errorf("LikelyHumanID(%d) = %v, want %v", tc.id, got, tc.want)
		}
	}
}

func TestGate_MarkBot(t *testing.T) {
	g := NewGate(nil)
	if !g.IsHumanID(humanID) {
		t.Fatal("plain human id rejected")
	}
	g.MarkBot(humanID)
	if g.IsHumanID(humanID) {
		t.Error("marked bot still passes as human")
	}
	if !g.IsBot(humanID) {
		t.Error("marked bot not reported by IsBot")
	}
}

type detectorFunc func(uint64) (bool, error)

func (f detectorFunc) IsBot(id uint64) (bool, error) { return f(id) }

func TestGate_ExternalDetector(t *testing.T) {
	g := NewGate(detectorFunc(func(id uint64) (bool, error) {
		return id == humanID, nil
	}))
	if g.IsHumanID(humanID) {
		t.Error("detector-flagged id passed as human")
	}
	if !g.IsHumanID(humanID + 1) {
		t.Error("detector verdict leaked onto an unrelated id")
	}
}

func TestGate_DetectorErrorMeansNotBot(t *testing.T) {
	g := NewGate(detectorFunc(func(uint64) (bool, error) {
		return true, errors.New("plugin unloaded")
	}))
	if g.IsBot(humanID) {
		t.Error("detector error treated as a bot verdict")
	}
	if !g.IsHumanID(humanID) {
		t.Error("detector error blocked a valid human id")
	}
}

func TestGate_IsHumanPlayer(t *testing.T) {
	g := NewGate(nil)

	if !g.IsHumanPlayer(PlayerRef{ID: humanID, Name: "p"}) {
		t.Error("valid player rejected")
	}
	if g.IsHumanPlayer(PlayerRef{ID: humanID, Name: "scientist", IsNPC: true}) {
		t.Error("NPC flag ignored")
	}
	if g.IsHumanPlayer(PlayerRef{ID: 42, Name: "p"}) {
		t.Error("short id accepted")
	}
}
