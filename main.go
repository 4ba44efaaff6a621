package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cppla/aisocial/config"
	"github.com/cppla/aisocial/events"
	"github.com/cppla/aisocial/models"
	"github.com/cppla/aisocial/routes"
	"github.com/cppla/aisocial/services"
	"github.com/cppla/aisocial/store"
	"github.com/cppla/aisocial/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	var st store.Store
	if strings.EqualFold(cfg.DBDriver, "memory") {
		utils.Sugar.Warn("using in-memory store; data is lost on restart")
		st = store.NewMemory()
	} else {
		st = store.NewGormStore(config.InitDatabase(&models.User{}, &models.Post{}, &models.Comment{}))
	}

	var pub events.Publisher = events.Nop{}
	if cfg.NatsURL != "" {
		np, err := events.NewNatsPublisher(cfg.NatsURL)
		if err != nil {
			utils.Sugar.Fatalf("failed to connect to nats: %v", err)
		}
		pub = np
	}
	defer pub.Close()

	r := routes.SetupRouter(services.New(st, pub, cfg.TimelinePageSize))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := utils.NewServer(":"+cfg.AppPort, r).WithTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
	if err := srv.Run(ctx); err != nil {
		utils.Sugar.Errorf("server stopped with error: %v", err)
	}
}
