package main

import (
	"context"
	"log"
	"net/http"

	"studykit/internal/api"
	"studykit/internal/app"
	"studykit/internal/config"
	"studykit/internal/logger"
	"studykit/internal/storage"

	"github.com/joho/godotenv"
	tclient "go.temporal.io/sdk/client"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatal(err)
	}
	defer lg.Sync()

	a, err := app.Build(context.Background(), cfg, lg)
	if err != nil {
		lg.Fatal("startup failed", "error", err)
	}
	defer a.Close()

	deps := api.Deps{
		Generator:   a.Pipeline,
		Notes:       storage.NewNoteRepo(a.DB),
		Courses:     storage.NewCourseRepo(a.DB),
		Votes:       storage.NewVoteRepo(a.DB),
		Blobs:       a.Blobs,
		Ping:        a.DB.Ping,
		OperatorKey: a.Providers.HasOperatorKey(),
	}
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		lg.Warn("temporal unavailable, async generation disabled", "address", cfg.TemporalAddress, "error", err)
	} else {
		defer tc.Close()
		deps.Temporal = tc
	}

	srv := api.NewServer(cfg, deps, lg)
	lg.Info("studykit api listening", "addr", cfg.APIAddr, "model", cfg.GenerationModel, "image_providers", cfg.ImageProviders)
	if err := http.ListenAndServe(cfg.APIAddr, srv.Routes()); err != nil {
		lg.Fatal("api stopped", "error", err)
	}
}
