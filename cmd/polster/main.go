package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/polsterdata/polster/internal/api"
	"github.com/polsterdata/polster/internal/cache"
	"github.com/polsterdata/polster/internal/config"
	"github.com/polsterdata/polster/internal/pipeline"
	"github.com/polsterdata/polster/internal/service"
	"github.com/polsterdata/polster/internal/storage"
	"github.com/polsterdata/polster/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "polster",
		Usage: "Insurance data pipeline over bronze, silver and gold layers",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Materialize pipeline assets, dependencies included",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "asset",
						Aliases: []string{"a"},
						Usage:   "Asset to materialize (repeatable, default all)",
					},
					&cli.Uint64Flag{
						Name:  "seed",
						Usage: "Random seed for synthetic source data",
						Value: 1,
					},
				},
				Action: runPipeline,
			},
			{
				Name:   "status",
				Usage:  "Show the latest stored object per asset",
				Action: runStatus,
			},
			{
				Name:  "serve",
				Usage: "Serve the dataset preview API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "port",
						Usage:   "HTTP listen port",
						EnvVars: []string{"SERVER_PORT"},
					},
				},
				Action: runServe,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func bootstrap() (*config.Config, zerolog.Logger, *storage.Store, error) {
	cfg := config.Load()
	log := logger.New(cfg.Server.LogLevel)

	store, err := storage.New(cfg.Storage, log)
	if err != nil {
		return nil, log, nil, err
	}
	return cfg, log, store, nil
}

func runPipeline(c *cli.Context) error {
	_, log, store, err := bootstrap()
	if err != nil {
		return err
	}

	env := &pipeline.Env{
		Store: store,
		Log:   log,
		Now:   func() time.Time { return time.Now().UTC() },
		Seed:  c.Uint64("seed"),
	}
	runner := pipeline.NewRunner(pipeline.DefaultRegistry(), env)

	start := time.Now()
	if err := runner.Run(c.Context, c.StringSlice("asset")...); err != nil {
		return err
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("pipeline complete")
	return nil
}

func runStatus(c *cli.Context) error {
	_, log, store, err := bootstrap()
	if err != nil {
		return err
	}

	reg := pipeline.DefaultRegistry()
	for _, name := range reg.Names() {
		asset, ok := reg.Get(name)
		if !ok {
			continue
		}

		objects, err := store.ListObjects(c.Context, asset.Layer, asset.Prefix())
		if err != nil {
			return err
		}
		if len(objects) == 0 {
			log.Info().Str("asset", name).Msg("no stored object")
			continue
		}
		log.Info().Str("asset", name).
			Str("latest", objects[len(objects)-1]).
			Int("versions", len(objects)).
			Msg("asset status")
	}
	return nil
}

func runServe(c *cli.Context) error {
	cfg, log, store, err := bootstrap()
	if err != nil {
		return err
	}

	previewCache, err := cache.NewPreviewCache(cfg.Cache)
	if err != nil {
		return err
	}

	previews := service.NewPreviewService(store)
	router := api.NewRouter(previews, previewCache, cfg.Server.AllowedOrigins, log)

	port := cfg.Server.Port
	if flagPort := c.String("port"); flagPort != "" {
		port = flagPort
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("port", port).Msg("starting preview server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	log.Info().Msg("server exiting")
	return nil
}
