package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/layer-3/questauth/adapters/events"
	"github.com/layer-3/questauth/adapters/scheduler"
	"github.com/layer-3/questauth/adapters/store"
	"github.com/layer-3/questauth/adapters/tokenizer"
	"github.com/layer-3/questauth/adapters/verifier"
	"github.com/layer-3/questauth/internal/config"
	"github.com/layer-3/questauth/internal/logger"
	"github.com/layer-3/questauth/ports"
	"github.com/layer-3/questauth/service"
	"github.com/layer-3/questauth/transport/http"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	envFile := flag.String("envFile", ".env", "Path to .env file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("No .env file found at %s, using environment variables", *envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	displayAppname(cfg.AppName)

	lg := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal().Err(err).Msg("questauth stopped with error")
	}
	lg.Info().Msg("questauth stopped")
}

func run(ctx context.Context, cfg config.Config, lg zerolog.Logger) error {
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
	}

	accounts, sessions, err := buildStores(cfg, redisClient)
	if err != nil {
		return err
	}

	publisher, err := buildPublisher(redisClient)
	if err != nil {
		return err
	}
	defer publisher.Close()

	authService := service.NewAuthService(
		tokenizer.NewJWTTokenizer([]byte(cfg.JWTSecret)),
		verifier.NewRegistry(),
		accounts,
		sessions,
		events.NewWatermillPublisher(publisher, cfg.EventsTopic),
		service.Config{
			ChallengeTTL: cfg.ChallengeTTL,
			SessionTTL:   cfg.SessionTTL,
		},
		lg,
	)

	pruner, err := scheduler.NewPruneScheduler(cfg.PruneSchedule, authService, lg)
	if err != nil {
		return err
	}

	router, err := http.SetupRouter(authService, http.RouterConfig{
		AllowedOrigins:     cfg.AllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	}, lg)
	if err != nil {
		return err
	}

	server := &nethttp.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lg.Info().
			Str("addr", server.Addr).
			Str("store", cfg.StoreBackend).
			Str("sessions", cfg.SessionBackend).
			Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return pruner.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		return shutdown(server)
	})

	return g.Wait()
}

// buildStores selects the account and session backends
func buildStores(cfg config.Config, redisClient *redis.Client) (ports.AccountStore, ports.SessionStore, error) {
	var (
		accounts ports.AccountStore
		sessions ports.SessionStore
	)

	switch cfg.StoreBackend {
	case config.StorePostgres:
		db, err := store.Connect(cfg.DatabaseDSN())
		if err != nil {
			return nil, nil, err
		}
		gormStore := store.NewGormStore(db)
		accounts, sessions = gormStore, gormStore
	default:
		memoryStore := store.NewMemoryStore()
		accounts, sessions = memoryStore, memoryStore
	}

	if cfg.SessionBackend == config.SessionsInRedis {
		sessions = store.NewRedisSessionStore(redisClient, cfg.SessionTTL)
	}

	return accounts, sessions, nil
}

// buildPublisher uses Redis Streams when Redis is configured, in-process delivery otherwise
func buildPublisher(redisClient *redis.Client) (message.Publisher, error) {
	wmLogger := watermill.NewStdLogger(false, false)
	if redisClient == nil {
		return events.NewInProcessPubSub(wmLogger), nil
	}

	publisher, err := events.NewRedisStreamPublisher(redisClient, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis publisher: %w", err)
	}
	return publisher, nil
}

func shutdown(server *nethttp.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
