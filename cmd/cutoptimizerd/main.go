// Package main is the entry point for the cut optimizer daemon.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/piwi3910/cutoptimizer/internal/config"
	"github.com/piwi3910/cutoptimizer/internal/cutlog"
	"github.com/piwi3910/cutoptimizer/internal/service"
)

func main() {
	cfg := config.Load()
	cutlog.Init(cfg.Log.Level, cfg.Log.Pretty)
	log := cutlog.ForComponent("main")

	svc := service.New(cfg)
	svc.Init()
	defer svc.Stop()

	srv := service.NewServer(svc, cfg.Service.ListenAddr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
