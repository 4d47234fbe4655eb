package main

import (
	"context"
	"database/sql"
	"errors"
	"eth-faucet/internal/config"
	"eth-faucet/internal/handler"
	"eth-faucet/internal/history"
	"eth-faucet/internal/ledger"
	"eth-faucet/internal/limiter"
	"eth-faucet/internal/metrics"
	"eth-faucet/internal/queue"
	"eth-faucet/internal/repository"
	"eth-faucet/internal/service"
	"eth-faucet/internal/stats"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/redis/go-redis/v9"
)

func setupLogging(level, format string) {
	zerolog.TimeFieldFormat = time.RFC3339
	if format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// waitWorker reports whether done closed before timeout.
func waitWorker(done <-chan struct{}, timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		return false
	}
}

func main() {
	cfg, err := config.Load()
	setupLogging(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	key, err := ledger.LoadKey(cfg.KeystorePath, cfg.KeystorePassword)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.KeystorePath).Msg("load faucet key")
	}
	dialCtx, cancelDial := context.WithTimeout(ctx, 15*time.Second)
	eth, err := ledger.Dial(dialCtx, cfg.RPCURL, key.PrivateKey)
	cancelDial()
	if err != nil {
		log.Fatal().Err(err).Msg("dial ledger")
	}
	log.Info().Str("account", eth.Account()).Str("chainId", eth.ChainID().String()).Msg("ledger connected")

	amount, err := ledger.ParseEther(cfg.PayoutAmount)
	if err != nil {
		log.Fatal().Err(err).Msg("payout amount")
	}

	hist := history.New(history.DefaultCapacity)
	m := metrics.New()
	sinks := []queue.EventSink{m}

	// Postgres audit log optional
	var db *sql.DB
	var repo *repository.Repo
	if cfg.DatabaseDSN != "" {
		db, err = sql.Open("pgx", cfg.DatabaseDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("open database")
		}
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("db ping")
		}
		repo = repository.NewRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("ensure schema")
		}
		sinks = append(sinks, repo)
		log.Info().Msg("payout audit log enabled")
	}

	// Redis optional
	var rdb *redis.Client
	var store stats.Store = stats.NewMemoryStore()
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis ping failed, admission stats kept in memory")
			_ = rdb.Close()
			rdb = nil
		} else {
			store = stats.NewRedisStore(rdb, stats.WithPrefix(cfg.StatsPrefix))
			log.Info().Str("addr", cfg.RedisAddr).Msg("redis connected")
		}
	}

	q := queue.New(eth, hist, queue.Config{
		Capacity: queue.DefaultCapacity,
		Cooldown: cfg.PayoutCooldown,
		Amount:   amount,
	}, queue.WithSinks(sinks...))

	svc := service.NewService(eth, limiter.NewBlocklist(), q, hist, ledger.FormatEther(amount))
	svc.Stats = store
	svc.Observers = append(svc.Observers, m)
	m.TrackQueue(svc.Depth, q.Processing)

	throttle := handler.NewThrottle(cfg.ThrottleRPS, cfg.ThrottleBurst)
	throttle.StartJanitor(ctx, time.Minute)

	h := handler.NewHandler(svc)
	h.AdminToken = cfg.AdminToken
	h.Throttle = throttle
	h.Metrics = m.Handler()
	h.StaticDir = cfg.StaticDir
	h.TrustXFF = cfg.TrustXFF
	h.Symbol = cfg.TokenSymbol
	if repo != nil && cfg.AdminToken != "" {
		h.Events = repo
	}

	r := h.Routes()

	// CORS
	allowed := handlers.AllowedOrigins([]string{"*"})
	allowedHeaders := handlers.AllowedHeaders([]string{"Content-Type", "X-Admin-Token"})
	allowedMethods := handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handlers.RecoveryHandler()(handlers.CORS(allowed, allowedHeaders, allowedMethods)(r)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := svc.Run(ctx); err != nil {
			log.Error().Err(err).Msg("payout worker")
		}
	}()

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}

	// an in-flight transfer is allowed to finish
	workerStopped := waitWorker(workerDone, 2*time.Minute)
	if !workerStopped {
		log.Warn().Msg("payout worker did not stop in time, leaving ledger client open")
	}

	if rdb != nil {
		_ = rdb.Close()
	}
	if db != nil {
		_ = db.Close()
	}
	if workerStopped {
		eth.Close()
	}
	log.Info().Msg("server gracefully stopped")
}
