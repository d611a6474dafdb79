package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-interview-evaluator/internal/api"
	apihttp "ai-interview-evaluator/internal/api/http"
	"ai-interview-evaluator/internal/app"
	"ai-interview-evaluator/internal/config"
	"ai-interview-evaluator/internal/events"
	"ai-interview-evaluator/internal/observability"
)

func main() {
	cfg := config.Load()

	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatalf("application start failed: %v", err)
	}
	defer application.Shutdown()

	// Kafka publisher with separate topics for transcript and verdict events
	publisher := events.New(&events.Config{
		Enabled:         cfg.Kafka.Enabled,
		Brokers:         cfg.Kafka.Brokers,
		TopicTranscript: cfg.Kafka.TopicTranscript,
		TopicVerdict:    cfg.Kafka.TopicVerdict,
		Principal:       cfg.Kafka.Principal,
	})
	defer publisher.Close()

	obs := observability.NewServer(":" + cfg.Observability.MetricsPort)
	obs.Start()

	transcriber, err := api.BuildTranscriber(context.Background(), cfg)
	if err != nil {
		application.Logger.Fatal().Err(err).Msg("Failed to build remote transcriber")
	}

	router := apihttp.NewRouter(&apihttp.Handlers{
		Transcriber:  transcriber,
		Scorer:       api.BuildScorer(cfg),
		Publisher:    publisher,
		ChunkCeiling: int64(cfg.Remote.ChunkSizeBytes),
	})
	obs.SetReady(true)

	server := &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		application.Logger.Info().Str("port", cfg.Service.HTTPPort).Msg("Interview evaluator service started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			application.Logger.Fatal().Err(err).Msg("http serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	application.Logger.Info().Msg("Shutting down HTTP server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		application.Logger.Error().Err(err).Msg("HTTP shutdown failed")
	}
	if err := obs.Shutdown(ctx); err != nil {
		application.Logger.Error().Err(err).Msg("Metrics server shutdown failed")
	}
}
