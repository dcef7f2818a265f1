package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gameshub"
	"gameshub/internal/config"
	"gameshub/internal/eventloop"
	"gameshub/internal/game"
	"gameshub/internal/game/coinflip"
	"gameshub/internal/game/plinko"
	"gameshub/internal/game/tictactoe"
	"gameshub/internal/game/updown"
	"gameshub/internal/hub"
	"gameshub/internal/server"
	"gameshub/internal/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	cfg, err := config.Load(os.Getenv("GAMESHUB_CONFIG"))
	if err != nil {
		return err
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	loop := eventloop.New()
	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		loop.Run(loopCtx)
		close(loopDone)
	}()
	defer func() {
		stopLoop()
		<-loopDone
	}()

	h := hub.New(loop, store, log)
	games := map[string]game.Factory{
		"plinko": plinko.Factory(plinko.Config{
			FrameInterval: cfg.Games.FrameInterval,
			Logger:        log.With("game", "plinko"),
		}),
		"coinflip": coinflip.Factory(coinflip.Config{
			FlipDelay: cfg.Games.RevealDelay,
			Logger:    log.With("game", "coinflip"),
		}),
		"updown": updown.Factory(updown.Config{
			RevealDelay: cfg.Games.RevealDelay,
			Logger:      log.With("game", "updown"),
		}),
		"tictactoe": tictactoe.Factory(tictactoe.Config{
			Logger: log.With("game", "tictactoe"),
		}),
	}
	// Menu order.
	for _, id := range []string{"plinko", "coinflip", "updown", "tictactoe"} {
		if err := h.Register(ctx, id, games[id]); err != nil {
			return err
		}
	}

	if err := h.Restore(ctx, cfg.DefaultGame); err != nil {
		log.Warn("restore game", "err", err)
	}

	go h.CleanupLoop(ctx, cfg.History.CleanupInterval, cfg.History.Retention)

	webFS, err := fs.Sub(gameshub.WebFS, "web")
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           server.New(h, webFS, log),
		ReadHeaderTimeout: 10 * time.Second,
		// Websocket handlers end when ctx does.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return h.Unload(shutdownCtx)
}
