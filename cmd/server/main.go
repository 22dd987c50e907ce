package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/omnirpg/engine/internal/config"
	"github.com/omnirpg/engine/internal/economy"
	"github.com/omnirpg/engine/internal/identity"
	"github.com/omnirpg/engine/internal/intake"
	"github.com/omnirpg/engine/internal/mock"
	"github.com/omnirpg/engine/internal/progression"
	"github.com/omnirpg/engine/internal/rage"
	"github.com/omnirpg/engine/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	dataDir := flag.String("data", "data", "Directory for player data")
	port := flag.Int("port", 0, "Override server port")
	mockMode := flag.Bool("mock", false, "Generate synthetic game events")
	flag.Parse()

	cfg := config.Load(*configPath)
	if *port > 0 {
		cfg.Server.Port = *port
	}
	svc := config.NewService(cfg, *configPath)

	gate := identity.NewGate(nil)
	store := progression.NewStore(svc, progression.NewFileStore(*dataDir), gate)
	store.Load()

	rageEngine := rage.NewEngine(svc, store)

	bank := economy.NewMemoryBank()
	costGate := economy.NewCostGate(svc, bank, bank, bank)

	srvCfg := svc.Server()
	broadcaster := ws.NewBroadcaster(store, srvCfg.BroadcastThrottle, srvCfg.SnapshotInterval)
	in := intake.NewService(svc, gate, store, rageEngine, broadcaster)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *mockMode {
		log.Println("Starting in mock mode")
		gen := mock.NewGenerator(in, bank)
		gen.Start(ctx)
	}

	// Periodic host-save: flush playtime and persist, like the host's own
	// save callback would.
	go func() {
		interval := srvCfg.SaveInterval
		if interval <= 0 {
			interval = 30 * time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				in.OnHostSave()
			}
		}
	}()

	server := ws.NewServer(svc, store, rageEngine, costGate, in, broadcaster)
	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		cancel()
		in.OnHostSave()
		os.Exit(0)
	}()

	if err := ws.ListenAndServe(srvCfg.Host, cfg.Server.Port, mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
