package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/agent"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/analytics"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/config"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/embedding"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/indexer"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/ingest"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/llmservice"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/retriever"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/server"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/store"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/vectorindex"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", "configs/config.yaml", "Path to the config file")
	ingestDir := flag.String("ingest", "", "Ingest news/filing documents from a directory and exit")
	ingestSymbols := flag.String("symbols", "", "Comma-separated symbols to tag ingested documents with")
	barsFile := flag.String("bars", "", "Ingest OHLCV bars from a csv/xlsx file and exit")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	docStore := openStore(ctx, cfg)
	defer docStore.Close()

	// One-shot ingestion modes.
	if *barsFile != "" {
		n, err := ingest.LoadBars(ctx, docStore, *barsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Error ingesting bars")
		}
		log.Info().Int("bars", n).Msg("bar ingestion complete")
		return
	}
	if *ingestDir != "" {
		n, err := ingest.LoadDocuments(ctx, docStore, *ingestDir, splitList(*ingestSymbols), "file-ingest")
		if err != nil {
			log.Fatal().Err(err).Msg("Error ingesting documents")
		}
		log.Info().Int("documents", n).Msg("document ingestion complete")
		return
	}

	index, err := vectorindex.NewChromemIndex(cfg.VectorIndex.Path, cfg.VectorIndex.Collection,
		cfg.VectorIndex.InMemory, cfg.VectorIndex.ModelVersion)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector index")
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	generator, err := llmservice.New(&cfg.ChatLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing chat LLM")
	}

	embedTimeout := time.Duration(cfg.EmbedLLM.TimeoutSecs) * time.Second
	ret := retriever.New(docStore, index, embedder, retriever.Options{
		OverfetchFactor: cfg.Retrieval.OverfetchFactor,
		StructuredScore: cfg.Retrieval.StructuredScore,
		EmbedTimeout:    embedTimeout,
	})
	engine := analytics.New(docStore)
	orchestrator := agent.New(ret, engine, generator, agent.Limits{
		MaxContextDocs:     cfg.Limits.MaxContextDocs,
		MaxLookbackDays:    cfg.Limits.MaxLookbackDays,
		DefaultContextDocs: cfg.Retrieval.ContextDocs,
		MinConfidence:      cfg.Retrieval.MinConfidence,
	})

	// Background index builder, decoupled from request handling.
	builder := indexer.NewBuilder(index, embedder, embedTimeout)
	runner, err := indexer.NewRunner(ctx, builder, docStore, cfg.Schedule.IndexCron, cfg.Schedule.IndexBatch)
	if err != nil {
		log.Fatal().Err(err).Msg("Error scheduling index builder")
	}
	runner.RunNow()
	runner.Start()
	defer runner.Stop()

	srv := server.New(orchestrator, cfg.Server.ListenAddr,
		time.Duration(cfg.Server.RequestTimeoutSecs)*time.Second)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
}

func openStore(ctx context.Context, cfg *config.Config) store.DocumentStore {
	switch cfg.Database.Driver {
	case "postgres":
		s, err := store.NewPostgresStore(ctx, cfg.Database.PostgresDSN, cfg.Database.PostgresPassword, cfg.Database.Debug)
		if err != nil {
			log.Fatal().Err(err).Msg("Error connecting to postgres")
		}
		return s
	default:
		s, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Error opening sqlite store")
		}
		return s
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
