package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	cfgpkg "github.com/local/docsections/internal/config"
	"github.com/local/docsections/internal/exporter"
	"github.com/local/docsections/internal/library"
	"github.com/local/docsections/internal/limiter"
	logpkg "github.com/local/docsections/internal/logger"
	"github.com/local/docsections/internal/manifest"
	"github.com/local/docsections/internal/metrics"
	"github.com/local/docsections/internal/pdftest"
	"github.com/local/docsections/internal/queue"
	"github.com/local/docsections/internal/server"
	"github.com/local/docsections/internal/statuscheck"
	"github.com/local/docsections/internal/store"
	web "github.com/local/docsections/internal/web"
)

func main() {
	_ = godotenv.Load()
	cfg := cfgpkg.FromEnv()

	// Init logging
	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	metrics.Init()

	// Manifest
	resolver, err := loadManifest(cfg.Library.ManifestRef)
	if err != nil {
		log.Fatal().Err(err).Str("ref", cfg.Library.ManifestRef).Msg("failed to load manifest")
	}
	log.Info().Int("sections", len(resolver.Sections())).Msg("manifest loaded")

	// Page library
	lib := library.New(cfg.Library.DataDir, cfg.Library.PagePattern)
	if err := lib.CheckDataDir(); err != nil {
		log.Warn().Err(err).Msg("data dir check failed")
	}
	if cfg.Library.ProbeOnStart {
		probeLibrary(resolver, lib)
	}

	slots := limiter.New(cfg.Render.MaxInflight)

	deps := server.Dependencies{
		Resolver: resolver,
		Library:  lib,
		Slots:    slots,
		Render:   cfg.Render,
		S3Bucket: cfg.Export.S3Bucket,
	}

	// Render cache and sessions (optional; the browser works without Redis)
	var cachePinger statuscheck.RedisPinger
	if cfg.Cache.Enabled {
		cache, err := store.NewRenderCache(cfg.Cache.RedisURL, cfg.Cache.TTL)
		if err != nil {
			log.Warn().Err(err).Msg("render cache unavailable, continuing without")
		} else {
			defer cache.Close()
			deps.Cache = cache
			cachePinger = cache
		}
		sessions, err := store.NewRedisSessions(cfg.Cache.RedisURL, 0)
		if err != nil {
			log.Warn().Err(err).Msg("session store unavailable, continuing without")
		} else {
			defer sessions.Close()
			deps.Sessions = sessions
		}
	}

	// Export pipeline (optional)
	var rq *queue.RedisQueue
	var rs *store.RedisStatus
	rq, err = queue.NewRedisQueue(cfg.Queue.RedisURL, cfg.Queue.Stream, cfg.Queue.Group, cfg.Queue.PollInterval)
	if err != nil {
		log.Warn().Err(err).Msg("export queue unavailable, exports disabled")
		rq = nil
	} else {
		defer rq.Close()
		rs, err = store.NewRedisStatus(cfg.Queue.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("status store unavailable, exports disabled")
			rq, rs = nil, nil
		} else {
			defer rs.Close()
			deps.Queue = rq
			deps.Status = rs
		}
	}

	srv := server.New(deps)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	mux.Handle("/metrics", metrics.Handler())

	checker := statuscheck.New(statuscheck.Options{
		Redis:       cachePinger,
		S3Bucket:    cfg.Export.S3Bucket,
		Library:     lib,
		ManifestRef: cfg.Library.ManifestRef,
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(checker.Summary(r.Context()))
	})

	// Dashboard
	dash := web.New()
	dash.RegisterRoutes(mux)

	// Export worker (optional)
	runExporter := os.Getenv("RUN_EXPORTER")
	if rq != nil && (runExporter == "" || runExporter == "1" || runExporter == "true") {
		wkr := exporter.New(exporter.Config{
			Workers:   cfg.Export.Workers,
			ResultDir: cfg.Export.ResultDir,
			S3Bucket:  cfg.Export.S3Bucket,
		}, rq, rs, lib, slots)
		wkr.Start()
		defer func() { _ = wkr.Stop(context.Background()) }()

		go reportQueueDepth(rq)
	}

	go func() {
		for range time.Tick(time.Hour) {
			library.CleanupTemps(24 * time.Hour)
		}
	}()

	httpSrv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: mux}
	go func() {
		log.Info().Msgf("HTTP server listening on :%s", cfg.Server.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	fmt.Println("shutdown complete")
}

// loadManifest fetches the manifest (local path, http(s) or s3), parses it and
// builds a resolver over the sections.
func loadManifest(ref string) (*manifest.Resolver, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	path, cleanup, err := library.FetchRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	sections, err := manifest.ParseFile(path)
	if err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("manifest %s has no valid sections", ref)
	}
	return manifest.NewResolver(sections), nil
}

// probeLibrary samples every page named by the manifest and logs what is
// readable before the server starts serving.
func probeLibrary(resolver *manifest.Resolver, lib *library.Library) {
	seen := map[int]bool{}
	var pages []int
	for _, s := range resolver.Sections() {
		for _, p := range s.Pages() {
			if !seen[p] {
				seen[p] = true
				pages = append(pages, p)
			}
		}
	}
	ok, diag, err := pdftest.ProbePages(pages, lib.PagePath, pdftest.DefaultThreshold)
	if err != nil {
		log.Warn().Err(err).Msg("library probe failed")
		return
	}
	log.Info().Bool("ok", ok).Interface("diagnostics", diag).Msg("library probe complete")
}

// reportQueueDepth keeps the queue gauges fresh.
func reportQueueDepth(rq *queue.RedisQueue) {
	for range time.Tick(30 * time.Second) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		stream, delayed, dlq, err := rq.Depths(ctx)
		cancel()
		if err != nil {
			continue
		}
		metrics.SetQueueDepth("stream", stream)
		metrics.SetQueueDepth("delayed", delayed)
		metrics.SetQueueDepth("dlq", dlq)
	}
}
