package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/accessmaps/parks-api/internal/config"
	"github.com/accessmaps/parks-api/internal/db"
	"github.com/accessmaps/parks-api/internal/logger"
	"github.com/accessmaps/parks-api/internal/server"
	"github.com/accessmaps/parks-api/internal/store"
)

func main() {
	if err := run(); err != nil {
		logger.L().Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	settings, err := config.Load()
	if err != nil {
		return err
	}
	logger.Setup(logger.Options{Level: settings.Log.Level, Format: settings.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Connect(settings.Database)
	if err != nil {
		return err
	}
	st := store.New(conn)
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	router := server.NewRouter(settings, server.NewHandlers(st, settings))
	return server.Run(ctx, settings, router)
}
