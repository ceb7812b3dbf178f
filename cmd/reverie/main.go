package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/reverie-ai/reverie/internal/config"
	"github.com/reverie-ai/reverie/internal/engine"
	"github.com/reverie-ai/reverie/internal/inference"
	"github.com/reverie-ai/reverie/internal/memory"
	"github.com/reverie-ai/reverie/internal/models"
	"github.com/reverie-ai/reverie/internal/monitor"
	"github.com/reverie-ai/reverie/internal/observability"
	"github.com/reverie-ai/reverie/internal/output"
	"github.com/reverie-ai/reverie/internal/persona"
	"github.com/reverie-ai/reverie/internal/reason"
	"github.com/reverie-ai/reverie/internal/scoring"
	"github.com/reverie-ai/reverie/internal/seed"
)

const version = "0.1.0"

func main() {
	var (
		configPath = flag.String("config", "reverie.json", "path to config file")
		mode       = flag.String("mode", "conversation", "run mode: conversation | dream")
		topic      = flag.String("topic", "", "seed topic for the first conversation")
	)
	flag.Parse()

	if err := run(*configPath, *mode, *topic); err != nil {
		fmt.Fprintf(os.Stderr, "reverie: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, mode, topic string) error {
	log := observability.Logger()
	log.Info("reverie starting", "version", version, "mode", mode)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := inference.NewClient(&inference.Config{
		BackendURL: cfg.BackendURL,
		Timeout:    30 * time.Second,
	})
	if available, err := client.ListModels(ctx); err != nil {
		log.Warn("backend model listing failed, continuing anyway", "error", err)
	} else if !contains(available, cfg.Model) {
		log.Warn("configured model not reported by backend", "model", cfg.Model)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis_url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	var lineage memory.LineageStore
	if cfg.DgraphURL != "" {
		lineage, err = memory.NewDgraphLineageStore(cfg.DgraphURL)
		if err != nil {
			log.Warn("lineage store unavailable, continuing without it", "error", err)
		} else {
			defer lineage.Close()
		}
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	seeder := seed.New(rng, time.Now)
	scorer := scoring.New()
	reasoner := reason.NewEngine(client, cfg.Model, rng)
	feed := monitor.NewFeed(redisClient)

	if cfg.MonitorAddr != "" {
		srv := monitor.NewServer(store, feed)
		httpSrv := &http.Server{
			Addr:              cfg.MonitorAddr,
			Handler:           srv.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("monitor server stopped", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpSrv.Shutdown(shutdownCtx)
		}()
		log.Info("monitor listening", "addr", cfg.MonitorAddr)
	}

	switch mode {
	case "dream":
		return runDream(ctx, cfg, store, reasoner, seeder, scorer, feed, lineage, rng)
	case "conversation":
		return runConversations(ctx, cfg, store, reasoner, seeder, scorer, feed, lineage, rng, topic)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

func openStore(cfg *config.Config) (memory.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverBadger:
		return memory.NewBadgerStore(cfg.StoragePath)
	default:
		return memory.NewSQLiteStore(cfg.StoragePath)
	}
}

func runDream(ctx context.Context, cfg *config.Config, store memory.Store, reasoner *reason.Engine, seeder *seed.Seeder, scorer *scoring.Scorer, feed *monitor.Feed, lineage memory.LineageStore, rng *rand.Rand) error {
	mem := memory.New(store, cfg.ShortTermCap)
	outputs, err := output.NewManager(cfg.OutputDir)
	if err != nil {
		return err
	}

	events := make(chan models.Thought, cfg.ChannelCap)
	go feed.Run(ctx, events)

	session := engine.NewDreamSession(mem, reasoner, seeder, scorer, outputs,
		cfg.LoopInterval.Std(), cfg.MaxThoughtsPerSession, rng)
	session.SetEvents(events)
	if lineage != nil {
		session.SetLineage(lineage)
	}

	err = session.Run(ctx)
	close(events)
	return err
}

func runConversations(ctx context.Context, cfg *config.Config, store memory.Store, reasoner *reason.Engine, seeder *seed.Seeder, scorer *scoring.Scorer, feed *monitor.Feed, lineage memory.LineageStore, rng *rand.Rand, topic string) error {
	log := observability.WithComponent("main")

	eng := engine.NewConversationEngine(&engine.Config{
		AgentBufferCap: cfg.AgentBufferCap,
		ChannelCap:     cfg.ChannelCap,
	}, store, reasoner, seeder, scorer, rng)
	if lineage != nil {
		eng.SetLineage(lineage)
	}
	go feed.Run(ctx, eng.Events())

	gen := persona.New(rng, time.Now)
	for i := 0; i < cfg.AgentCount; i++ {
		id := fmt.Sprintf("agent_%d_%d", time.Now().UnixMilli(), i)
		model := cfg.ModelPool[i%len(cfg.ModelPool)]
		if err := eng.AddAgent(ctx, gen.Generate(id, model)); err != nil {
			return err
		}
	}

	// Conversations run back to back until interrupted. Only the first
	// one takes the topic from the command line; the rest are seeded.
	for ctx.Err() == nil {
		id := "conv_" + uuid.NewString()
		if _, err := eng.Start(ctx, id, topic); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			return err
		}
		topic = ""

		if err := eng.Process(ctx, id, cfg.MaxExchanges); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			var storeErr *memory.StoreError
			if errors.As(err, &storeErr) {
				return err
			}
			log.Error("conversation ended abnormally", "id", id, "error", err)
		}
	}

	log.Info("shutting down")
	return nil
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
