package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"chessmatchgo/internal/config"
	"chessmatchgo/internal/database/db_client"
	"chessmatchgo/internal/http/http_server"
	"chessmatchgo/internal/services/auth"
	"chessmatchgo/internal/services/match"
	"chessmatchgo/internal/stats"
	"chessmatchgo/internal/ws"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Postgres db client (credential store)
	pgDb, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort,
		cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	defer pgDb.Close()

	// 4. Credential collaborator
	authService := auth.NewAuthService(pgDb, cfg.JwtSecret,
		time.Duration(cfg.TokenTTLHours)*time.Hour)

	// 5. WebSockets hub doubles as the notification fan-out for the
	//    session coordinator.
	hub := ws.NewHub()
	matchService := match.NewMatchService(hub)

	// 6. Background: gauge reporter
	stats.Run(ctx, matchService)

	// 7. Initialize the WS server
	wsSrv := ws.NewWsServer(hub, authService, matchService)

	// 8. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, authService)
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
