// Command cardroom starts the realtime poker/UNO cardroom server, grounded
// on the teacher's cmd/pokersrv/main.go wiring shape (flags → DB → logging
// backend → server → listen/serve) but over websockets instead of gRPC.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/quartz"
	"github.com/decred/slog"
	"github.com/vctt94/cardroom/internal/config"
	"github.com/vctt94/cardroom/internal/dispatch"
	"github.com/vctt94/cardroom/internal/lobby"
	"github.com/vctt94/cardroom/internal/logging"
	"github.com/vctt94/cardroom/internal/poker"
	"github.com/vctt94/cardroom/internal/rewards"
	"github.com/vctt94/cardroom/internal/rng"
	"github.com/vctt94/cardroom/internal/session"
	"github.com/vctt94/cardroom/internal/transport"
	"github.com/vctt94/cardroom/internal/uno"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logBackend := logging.NewBackend(os.Stderr, parseLevel(cfg.LogLevel))
	log := logBackend.Logger("CARDROOM")

	rewardStore, err := rewards.Open(cfg.DBPath)
	if err != nil {
		log.Errorf("failed to open rewards store: %v", err)
		os.Exit(1)
	}
	defer rewardStore.Close()

	registry := lobby.NewRegistry()
	if cfg.PublicLobby {
		bootstrapPublicLobbies(registry, logBackend, cfg.TurnTimeout)
	}

	dispatcher := dispatch.NewDispatcher(registry, logBackend.Logger("DISPATCH"), rewardStore, cfg.TurnTimeout)

	sessionLog := logBackend.Logger("SESSION")
	sessions := session.NewManager(quartz.NewReal(), cfg.GraceWindowEffective(), func(gameType lobby.GameType, userID, lobbyCode string) {
		room, ok := registry.Get(gameType, lobbyCode)
		if !ok {
			return
		}
		switch t := room.(type) {
		case *poker.Table:
			t.RemovePlayer(userID)
		case *uno.Table:
			t.RemovePlayer(userID)
		}
		sessionLog.Infof("player %s dropped from %s lobby %s after grace expiry", userID, gameType, lobbyCode)
	})

	server := transport.NewServer(dispatcher, sessions, logBackend.Logger("TRANSPORT"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Errorf("error during shutdown: %v", err)
		}
	}()

	log.Infof("cardroom listening on %s", cfg.Listen)
	if err := server.Start(cfg.Listen); err != nil {
		log.Errorf("server error: %v", err)
		os.Exit(1)
	}
}

func bootstrapPublicLobbies(registry *lobby.Registry, logBackend *logging.Backend, turnTimeout time.Duration) {
	src := rng.New()
	pokerConfig := poker.GameConfig{SmallBlind: 5, BigBlind: 10, StartingChips: 1000, TurnTimeout: turnTimeout}
	log := logBackend.Logger("CARDROOM")

	for _, code := range lobby.PublicCodes[lobby.GamePoker] {
		table := poker.NewTable(code, pokerConfig, src, logBackend.Logger("POKER-"+code))
		if err := registry.Register(lobby.GamePoker, code, table); err != nil {
			log.Errorf("failed to register public poker lobby %s: %v", code, err)
		}
	}
	for _, code := range lobby.PublicCodes[lobby.GameUno] {
		table := uno.NewTable(code, src, logBackend.Logger("UNO-"+code))
		if err := registry.Register(lobby.GameUno, code, table); err != nil {
			log.Errorf("failed to register public uno lobby %s: %v", code, err)
		}
	}
}

func parseLevel(name string) slog.Level {
	switch name {
	case "trace":
		return slog.LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
