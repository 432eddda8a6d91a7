package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/mbolis/encuestas-pae/app"
	"github.com/mbolis/encuestas-pae/config"
	"github.com/mbolis/encuestas-pae/database"
	"github.com/mbolis/encuestas-pae/export"
	"github.com/mbolis/encuestas-pae/local"
	"github.com/mbolis/encuestas-pae/log"
	"github.com/mbolis/encuestas-pae/routes"
	"github.com/mbolis/encuestas-pae/store"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storage, err := local.Open(cfg.DataDir)
	if err != nil {
		log.Fatal("main.local.open:", err)
	}

	var primary store.Backend = storage
	if cfg.DBUrl != "" {
		db, err := database.Open(cfg.DBUrl)
		if err != nil {
			log.Fatal("main.db.open:", err)
		}
		defer db.Close()

		primary = database.NewRepository(db)
	} else {
		log.Warn("main.db: no database configured, using local storage only")
	}

	responses := store.New(primary, storage)
	responses.Load(ctx)
	if cfg.WatchChanges {
		responses.Watch(ctx)
	}

	catalog := export.DefaultCatalog()
	if cfg.CatalogPath != "" {
		catalog, err = export.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			log.Fatal("main.catalog:", err)
		}
	}

	var archiver export.Archiver
	if cfg.ExportBucket != "" {
		archiver, err = export.NewS3Sink(cfg.AWSRegion, cfg.ExportBucket, cfg.ExportPrefix)
		if err != nil {
			log.Fatal("main.s3:", err)
		}
	}

	app := app.App{
		Store:    responses,
		Shaper:   export.NewShaper(catalog, time.Local),
		Archiver: archiver,
		Now:      time.Now,
		Config:   cfg,
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
