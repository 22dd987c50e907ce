package ws

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/omnirpg/engine/internal/config"
	"github.com/omnirpg/engine/internal/economy"
	"github.com/omnirpg/engine/internal/identity"
	"github.com/omnirpg/engine/internal/intake"
	"github.com/omnirpg/engine/internal/progression"
	"github.com/omnirpg/engine/internal/rage"
)

const testID = uint64(76561198000000001)

type serverFixture struct {
	srv   *Server
	mux   *http.ServeMux
	store *progression.Store
	cfg   *config.Service
	bank  *economy.MemoryBank
}

func newTestServer(t *testing.T, token string) *serverFixture {
	t.Helper()

	cfg := config.Default()
	cfg.Server.AuthToken = token
	svc := config.NewService(cfg, "")

	gate := identity.NewGate(nil)
	store := progression.NewStore(svc, progression.NewFileStore(t.TempDir()), gate)
	engine := rage.NewEngine(svc, store)
	bank := economy.NewMemoryBank()
	costGate := economy.NewCostGate(svc, bank, bank, bank)
	broadcaster := NewBroadcaster(store, 10*time.Millisecond, time.Hour)
	in := intake.NewService(svc, gate, store, engine, broadcaster)

	srv := NewServer(svc, store, engine, costGate, in, broadcaster)
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	return &serverFixture{srv: srv, mux: mux, store: store, cfg: svc, bank: bank}
}

func (f *serverFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func TestAuthorize(t *testing.T) {
	f := newTestServer(t, "secret")

	w := f.do(t, http.MethodGet, "/api/leaderboard", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: %d, want 401", w.Code)
	}

	if w := f.do(t, http.MethodGet, "/api/leaderboard?token=secret", nil); w.Code != http.StatusOK {
		t.Errorf("query token: %d, want 200", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)
	req.Header.Set("X-OmniRPG-Token", "secret")
	w = httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("header token: %d, want 200", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("bearer token: %d, want 200", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong bearer: %d, want 401", w.Code)
	}
}

func TestHandleProfile(t *testing.T) {
	f := newTestServer(t, "")
	f.store.Touch(testID, "Vex", nil)

	w := f.do(t, http.MethodGet, fmt.Sprintf("/api/profiles/%d", testID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var p progression.Profile
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.Name != "Vex" || p.Level != 1 {
		t.Errorf("profile = %+v", p)
	}

	if w := f.do(t, http.MethodGet, "/api/profiles/999", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing profile: %d, want 404", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/api/profiles/abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad id: %d, want 400", w.Code)
	}
}

func TestHandleLeaderboard_Limit(t *testing.T) {
	f := newTestServer(t, "")
	for i := uint64(0); i < 5; i++ {
		f.store.Touch(testID+i, fmt.Sprintf("p%d", i), func(p *progression.Profile) {
			p.TotalXP = float64(i)
		})
	}

	w := f.do(t, http.MethodGet, "/api/leaderboard?limit=3", nil)
	var rows []progression.LeaderboardEntry
	if err := json.NewDecoder(w.Body).Decode(&rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Errorf("rows = %d, want 3", len(rows))
	}
}

func TestHandleAllocate(t *testing.T) {
	f := newTestServer(t, "")
	f.store.Touch(testID, "Vex", func(p *progression.Profile) {
		p.Rage.UnspentPoints = 5
	})

	w := f.do(t, http.MethodPost, "/api/rage/allocate", allocateRequest{
		UserID: testID, NodeID: "rifle", Points: 3,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var res rage.AllocateResult
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.NewLevel != 3 || res.Remaining != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestHandleAllocate_ErrorStatuses(t *testing.T) {
	f := newTestServer(t, "")
	f.store.Touch(testID, "Vex", nil)

	cases := []struct {
		name string
		req  allocateRequest
		want int
	}{
		{"missing profile", allocateRequest{UserID: 999, NodeID: "rifle", Points: 1}, http.StatusNotFound},
		{"no points", allocateRequest{UserID: testID, NodeID: "rifle", Points: 1}, http.StatusPaymentRequired},
		{"unknown node", allocateRequest{UserID: testID, NodeID: "katana", Points: 1}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		if w := f.do(t, http.MethodPost, "/api/rage/allocate", tc.req); w.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, w.Code, tc.want)
		}
	}

	if w := f.do(t, http.MethodGet, "/api/rage/allocate", nil); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET: %d, want 405", w.Code)
	}
}

func TestHandleRespec_CostGate(t *testing.T) {
	f := newTestServer(t, "")
	f.cfg.AdjustRespecField("CurrencyCost", 100)
	f.store.Touch(testID, "Vex", func(p *progression.Profile) {
		p.Rage.UnspentPoints = 5
		p.Rage.NodeLevels["rifle"] = 3
	})

	// Broke player pays nothing and keeps the tree.
	w := f.do(t, http.MethodPost, "/api/rage/respec", respecRequest{UserID: testID})
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("broke respec: %d, want 402", w.Code)
	}

	f.bank.Deposit(testID, 150)
	w = f.do(t, http.MethodPost, "/api/rage/respec", respecRequest{UserID: testID})
	if w.Code != http.StatusOK {
		t.Fatalf("funded respec: %d: %s", w.Code, w.Body.String())
	}
	var res rage.RespecResult
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Refunded != 3 || res.UnspentPoints != 8 {
		t.Errorf("result = %+v", res)
	}
	if bal, _ := f.bank.Balance(testID); bal != 50 {
		t.Errorf("balance = %v, want 50 after the charge", bal)
	}
}

func TestHandleRespec_AdminBypassesCost(t *testing.T) {
	f := newTestServer(t, "")
	f.cfg.AdjustRespecField("CurrencyCost", 100)
	f.store.Touch(testID, "Vex", func(p *progression.Profile) {
		p.Rage.NodeLevels["rifle"] = 3
	})

	w := f.do(t, http.MethodPost, "/api/rage/respec", respecRequest{UserID: testID, Admin: true})
	if w.Code != http.StatusOK {
		t.Fatalf("admin respec: %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleGrant(t *testing.T) {
	f := newTestServer(t, "")

	w := f.do(t, http.MethodPost, "/api/xp/grant", grantRequest{
		UserID: testID, Name: "Vex", Amount: 40,
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	p, _ := f.store.Get(testID)
	if p.TotalXP != 40 {
		t.Errorf("TotalXP = %v, want 40", p.TotalXP)
	}
}

func TestHandleAdjust(t *testing.T) {
	f := newTestServer(t, "")

	w := f.do(t, http.MethodPost, "/api/admin/adjust", adjustRequest{
		Category: "xp", Field: "BaseKillNpc", Delta: 5,
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if npc, _ := f.cfg.KillRates(); npc != 30 {
		t.Errorf("BaseKillNpc = %v, want 30", npc)
	}

	w = f.do(t, http.MethodPost, "/api/admin/adjust", adjustRequest{
		Category: "nope", Field: "x", Delta: 1,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown category: %d, want 400", w.Code)
	}
}

func TestHandleBotXP(t *testing.T) {
	f := newTestServer(t, "")

	w := f.do(t, http.MethodPost, "/api/admin/botxp", botXPRequest{
		Profile: "Heavy", Field: "multiplier", Delta: 1,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	w = f.do(t, http.MethodGet, "/api/admin/botxp", nil)
	var profiles map[string]config.BotProfile
	if err := json.NewDecoder(w.Body).Decode(&profiles); err != nil {
		t.Fatal(err)
	}
	if profiles["Heavy"].Multiplier != 2 {
		t.Errorf("Heavy = %+v, want multiplier 2", profiles["Heavy"])
	}
}

func TestCheckOrigin(t *testing.T) {
	f := newTestServer(t, "")

	cases := []struct {
		origin string
		host   string
		want   bool
	}{
		{"", "game.example.com", true},
		{"http://localhost:3000", "game.example.com", true},
		{"http://127.0.0.1:8080", "game.example.com", true},
		{"http://game.example.com", "game.example.com", true},
		{"http://evil.example.com", "game.example.com", false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.Host = tc.host
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		if got := f.srv.checkOrigin(req); got != tc.want {
			t.Errorf("checkOrigin(origin=%q) = %v, want %v", tc.origin, got, tc.want)
		}
	}
}

func TestCheckOrigin_AllowList(t *testing.T) {
	cfg := config.Default()
	cfg.Server.AllowedOrigins = []string{"https://panel.example.com"}
	svc := config.NewService(cfg, "")

	gate := identity.NewGate(nil)
	store := progression.NewStore(svc, progression.NewFileStore(t.TempDir()), gate)
	engine := rage.NewEngine(svc, store)
	broadcaster := NewBroadcaster(store, 10*time.Millisecond, time.Hour)
	in := intake.NewService(svc, gate, store, engine, broadcaster)
	srv := NewServer(svc, store, engine, rage.Free{}, in, broadcaster)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://panel.example.com")
	if !srv.checkOrigin(req) {
		t.Error("allow-listed origin rejected")
	}

	req.Header.Set("Origin", "http://localhost:3000")
	if srv.checkOrigin(req) {
		t.Error("localhost accepted despite a configured allow list")
	}
}
