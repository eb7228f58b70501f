package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wfunc/stemarena/broadcast"
	"github.com/wfunc/stemarena/config"
	"github.com/wfunc/stemarena/logger"
	"github.com/wfunc/stemarena/monitor"
	"github.com/wfunc/stemarena/network"
	"github.com/wfunc/stemarena/room"
	"github.com/wfunc/stemarena/rpc"
	"github.com/wfunc/stemarena/server"
	"github.com/wfunc/stemarena/services"
	"github.com/wfunc/stemarena/session"
	"github.com/wfunc/stemarena/timer"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the game server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	loader := config.NewLoader(configPath)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		return err
	}
	defer logger.Sync()

	codec, err := network.CodecByName(cfg.Server.Codec)
	if err != nil {
		return err
	}

	timers := timer.NewTimerManager(cfg.Timer.Resolution)
	defer timers.Stop()

	sessions := session.NewManager()
	broadcaster := broadcast.NewSessionBroadcaster(sessions, codec)
	mon := monitor.NewMonitor("stemarena")
	rooms := room.NewRoomManager(cfg.RoomSettings(), timers, broadcaster,
		room.WithObserver(mon),
		room.WithEvictHook(func(roomID string, playerIDs []string, _ string) {
			sessions.ClearRoom(roomID, playerIDs)
		}),
	)
	lobby := services.NewLobbyService(rooms)

	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress, rpc.NewArenaService(lobby))
	if err != nil {
		return fmt.Errorf("failed to start rpc server: %w", err)
	}

	gameServer := server.NewGameServer(server.Options{
		Address:      cfg.Server.HTTPAddress,
		ReadLimit:    cfg.Server.ReadLimit,
		PingInterval: cfg.Server.PingInterval,
		SendQueue:    cfg.Server.SendQueue,
	}, rooms, sessions, broadcaster, lobby, mon, codec)

	loader.Watch(func(next *config.Config) {
		rooms.UpdateSettings(next.RoomSettings())
		logger.Log.Infow("game settings reloaded", "file", loader.File())
	}, func(err error) {
		logger.Log.Warnw("ignoring invalid config change", "error", err)
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rpcServer.Start()
		return nil
	})
	g.Go(gameServer.Start)
	g.Go(func() error {
		<-ctx.Done()
		logger.Log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := rooms.Shutdown(shutdownCtx); err != nil {
			logger.Log.Warnw("room shutdown incomplete", "error", err)
		}
		err := gameServer.Shutdown(shutdownCtx)
		rpcServer.Stop()
		return err
	})

	logger.Log.Infow("stemarena started", "http", cfg.Server.HTTPAddress, "rpc", rpcServer.Addr(), "codec", codec.Name())
	return g.Wait()
}
