package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/medoc-health/opd-token-allocation/internal/allocation"
	"github.com/medoc-health/opd-token-allocation/internal/api"
	"github.com/medoc-health/opd-token-allocation/internal/config"
	"github.com/medoc-health/opd-token-allocation/internal/db"
	"github.com/medoc-health/opd-token-allocation/internal/lock"
)

const version = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s store=%s lock=%s",
		cfg.Env, cfg.HTTPPort, cfg.StoreBackend, cfg.LockBackend)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		slots  allocation.SlotRepository
		tokens allocation.TokenRepository
		pgPool *pgxpool.Pool
	)
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.Connect(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			log.Fatalf("postgres connection error: %v", err)
		}
		defer pgPool.Close()
		log.Println("connected to Postgres")

		slots = allocation.NewPgSlotRepository(pgPool)
		tokens = allocation.NewPgTokenRepository(pgPool)
	default:
		slots = allocation.NewMemorySlotRepository()
		tokens = allocation.NewMemoryTokenRepository()
	}

	var (
		locker lock.SlotLocker
		rdb    *redis.Client
	)
	switch cfg.LockBackend {
	case config.BackendRedis:
		rdb, err = lock.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("redis connection error: %v", err)
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Printf("error closing redis: %v", err)
			}
		}()
		log.Println("connected to Redis")

		locker = lock.NewRedisLocker(rdb, cfg.LockTTL)
	default:
		locker = lock.NewMemoryLocker()
	}

	engine := allocation.NewEngine(slots, tokens, locker)

	router := api.NewRouter(api.RouterConfig{
		Engine:  engine,
		Slots:   slots,
		Tokens:  tokens,
		PgPool:  pgPool,
		Redis:   rdb,
		Env:     cfg.Env,
		Version: version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()
	log.Println("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
