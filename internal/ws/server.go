package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/omnirpg/engine/internal/config"
	"github.com/omnirpg/engine/internal/economy"
	"github.com/omnirpg/engine/internal/hostinfo"
	"github.com/omnirpg/engine/internal/identity"
	"github.com/omnirpg/engine/internal/intake"
	"github.com/omnirpg/engine/internal/progression"
	"github.com/omnirpg/engine/internal/rage"
)

// Server exposes the panel API: profile and leaderboard reads, the Rage
// allocation/respec operations, the external XP grant entry points, and the
// admin config editor.
type Server struct {
	cfg         *config.Service
	store       *progression.Store
	rage        *rage.Engine
	costGate    rage.CostPolicy
	intake      *intake.Service
	broadcaster *Broadcaster

	authToken      string
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
}

func NewServer(cfg *config.Service, store *progression.Store, rageEngine *rage.Engine, costGate rage.CostPolicy, in *intake.Service, broadcaster *Broadcaster) *Server {
	srv := cfg.Server()
	s := &Server{
		cfg:            cfg,
		store:          store,
		rage:           rageEngine,
		costGate:       costGate,
		intake:         in,
		broadcaster:    broadcaster,
		authToken:      srv.AuthToken,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
	}

	for _, origin := range srv.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	return s
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/profiles", s.handleProfiles)
	mux.HandleFunc("/api/profiles/", s.handleProfile)
	mux.HandleFunc("/api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/rage/allocate", s.handleAllocate)
	mux.HandleFunc("/api/rage/respec", s.handleRespec)
	mux.HandleFunc("/api/xp/grant", s.handleGrant)
	mux.HandleFunc("/api/admin/adjust", s.handleAdjust)
	mux.HandleFunc("/api/admin/toggle", s.handleToggle)
	mux.HandleFunc("/api/admin/mode", s.handleMode)
	mux.HandleFunc("/api/admin/botxp", s.handleBotXP)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	log.Printf("WebSocket client connected: %s", r.RemoteAddr)
	c := s.broadcaster.AddClient(conn)

	go func() {
		defer func() {
			s.broadcaster.RemoveClient(c)
			log.Printf("WebSocket client disconnected: %s", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, s.store.All())
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/profiles/")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid player id", http.StatusBadRequest)
		return
	}

	p, ok := s.store.Get(id)
	if !ok {
		http.Error(w, "profile not found", http.StatusNotFound)
		return
	}
	writeJSON(w, p)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	limit := leaderboardSize
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	writeJSON(w, s.store.Top(limit))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	writeJSON(w, map[string]interface{}{
		"host":        hostinfo.Collect(),
		"profiles":    s.store.Count(),
		"wsClients":   s.broadcaster.ClientCount(),
		"rage":        s.cfg.RageEnabled(),
		"botProfiles": len(s.cfg.BotProfiles()),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, s.cfg.Snapshot())
}

type allocateRequest struct {
	UserID uint64 `json:"userId"`
	NodeID string `json:"nodeId"`
	Points int    `json:"points"`
}

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req allocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	res, err := s.rage.Allocate(req.UserID, req.NodeID, req.Points)
	if err != nil {
		writeRageError(w, err)
		return
	}
	if res.TierUnlocked > 0 {
		s.broadcaster.NotifyTierUnlock(req.UserID, res.TierUnlocked)
	}
	writeJSON(w, res)
}

type respecRequest struct {
	UserID uint64 `json:"userId"`
	// Admin respecs bypass the cost gate entirely.
	Admin bool `json:"admin"`
}

func (s *Server) handleRespec(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req respecRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	policy := s.costGate
	if req.Admin {
		policy = rage.Free{}
	}

	res, err := s.rage.Respec(req.UserID, policy)
	if err != nil {
		writeRageError(w, err)
		return
	}
	writeJSON(w, res)
}

type grantRequest struct {
	UserID  uint64  `json:"userId"`
	Name    string  `json:"name"`
	Amount  float64 `json:"amount"`
	Variant string  `json:"variant"` // "api", "api_id", "api_basic"
}

func (s *Server) handleGrant(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ref := identity.PlayerRef{ID: req.UserID, Name: req.Name}
	switch strings.ToLower(req.Variant) {
	case "api_id":
		s.intake.GiveXPID(req.UserID, req.Amount)
	case "api_basic":
		s.intake.GiveXPBasic(ref, req.Amount)
	default:
		s.intake.GiveXP(ref, req.Amount)
	}
	w.WriteHeader(http.StatusNoContent)
}

type adjustRequest struct {
	Category string  `json:"category"` // "xp", "rage", "respec"
	Field    string  `json:"field"`
	Delta    float64 `json:"delta"`
}

func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var err error
	switch strings.ToLower(req.Category) {
	case "xp":
		err = s.cfg.AdjustXPField(req.Field, req.Delta)
	case "rage":
		err = s.cfg.AdjustRageField(req.Field, req.Delta)
	case "respec":
		err = s.cfg.AdjustRespecField(req.Field, req.Delta)
	default:
		err = fmt.Errorf("unknown category %q", req.Category)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.saveConfig(w)
}

type toggleRequest struct {
	Field string `json:"field"`
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	value, err := s.cfg.Toggle(req.Field)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.cfg.Save(); err != nil {
		log.Printf("ws: saving config after toggle: %v", err)
	}
	writeJSON(w, map[string]bool{req.Field: value})
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.cfg.SetRespecMode(req.Mode); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.saveConfig(w)
}

type botXPRequest struct {
	Profile string  `json:"profile"`
	Field   string  `json:"field"` // "multiplier" or "flat"
	Delta   float64 `json:"delta"`
}

func (s *Server) handleBotXP(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, s.cfg.BotProfiles())
		return
	case http.MethodPost:
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req botXPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	bp, err := s.cfg.AdjustBotProfile(req.Profile, req.Field, req.Delta)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.cfg.Save(); err != nil {
		log.Printf("ws: saving config after bot xp edit: %v", err)
	}
	writeJSON(w, bp)
}

func (s *Server) saveConfig(w http.ResponseWriter) {
	if err := s.cfg.Save(); err != nil {
		log.Printf("ws: saving config: %v", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeRageError maps core errors onto HTTP statuses; everything is a
// reported rejection, never a 500, except a failed save.
func writeRageError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, rage.ErrUnknownProfile):
		status = http.StatusNotFound
	case errors.Is(err, rage.ErrInsufficientPoints),
		errors.Is(err, economy.ErrInsufficientFunds),
		errors.Is(err, economy.ErrInsufficientPoints),
		errors.Is(err, economy.ErrInsufficientItems):
		status = http.StatusPaymentRequired
	case errors.Is(err, economy.ErrBackendUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, rage.ErrDisabled):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (s *Server) authorize(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}

	if r.URL.Query().Get("token") == s.authToken {
		return true
	}

	if r.Header.Get("X-OmniRPG-Token") == s.authToken {
		return true
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.authToken {
		return true
	}

	return false
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := parsed.Host
	if host == "" {
		return false
	}

	if host == r.Host {
		return true
	}

	if strings.HasPrefix(host, "localhost:") || host == "localhost" {
		return true
	}
	if strings.HasPrefix(host, "127.0.0.1:") || host == "127.0.0.1" {
		return true
	}
	if strings.HasPrefix(host, "[::1]:") || host == "::1" {
		return true
	}

	return false
}

func ListenAndServe(host string, port int, mux *http.ServeMux) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	log.Printf("Server listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
