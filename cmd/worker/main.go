package main

import (
	"context"
	"log"

	"studykit/internal/activities"
	"studykit/internal/app"
	"studykit/internal/config"
	"studykit/internal/logger"
	"studykit/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatal(err)
	}
	defer lg.Sync()

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		lg.Fatal("temporal dial failed", "address", cfg.TemporalAddress, "error", err)
	}
	defer c.Close()

	a, err := app.Build(context.Background(), cfg, lg)
	if err != nil {
		lg.Fatal("startup failed", "error", err)
	}
	defer a.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	activities.Register(w, activities.New(cfg, a.Pipeline, lg))

	lg.Info("studykit worker listening", "address", cfg.TemporalAddress, "queue", cfg.TemporalTaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		lg.Fatal("worker stopped", "error", err)
	}
}
