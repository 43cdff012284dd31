package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/GlebRadaev/solyield/internal/chain"
	"github.com/GlebRadaev/solyield/internal/config"
	"github.com/GlebRadaev/solyield/internal/handlers"
	"github.com/GlebRadaev/solyield/internal/pg"
	"github.com/GlebRadaev/solyield/internal/repo"
	challengerepo "github.com/GlebRadaev/solyield/internal/repo/challenge-repo"
	"github.com/GlebRadaev/solyield/internal/service"
	"github.com/GlebRadaev/solyield/internal/service/authservice"
	"github.com/GlebRadaev/solyield/pkg/auth"
	"github.com/GlebRadaev/solyield/pkg/clients"
	"github.com/GlebRadaev/solyield/pkg/logger"
	"github.com/GlebRadaev/solyield/pkg/validate"
)

var ErrPlatformWallet = errors.New("PLATFORM_WALLET must be a valid Solana address")

type ApplicationI interface {
	Start(ctx context.Context) error
	Wait(ctx context.Context, cancel context.CancelFunc) error
}

type Application struct {
	cfg  *config.Config
	api  *handlers.Handlers
	srv  *service.Services
	repo *repo.Repositories

	pool  *pgxpool.Pool
	redis *redis.Client

	errCh chan error
	wg    sync.WaitGroup
	ready bool
}

func New() *Application {
	return &Application{
		errCh: make(chan error),
	}
}

// Start wires and starts every component. On failure everything opened so
// far is closed again.
func (a *Application) Start(ctx context.Context) (err error) {
	cfg := config.New()

	err = logger.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("can't init logger: %w", err)
	}
	if !validate.IsAddress(cfg.PlatformWallet) {
		return ErrPlatformWallet
	}

	defer func() {
		if err != nil {
			a.close()
		}
	}()

	challenges, err := a.challengeStore(ctx, cfg)
	if err != nil {
		zap.L().Error("redis ping failed: ", zap.Error(err))
		return fmt.Errorf("can't connect to redis: %w", err)
	}

	pool, err := getPgxpool(ctx, cfg)
	if err != nil {
		zap.L().Error("build pgx pool failed: ", zap.Error(err))
		return fmt.Errorf("can't build pgx pool: %w", err)
	}
	a.pool = pool
	if cfg.AutoMigrate {
		if err := pg.RunMigrations(pool); err != nil {
			zap.L().Error("migrations failed: ", zap.Error(err))
			return fmt.Errorf("can't run migrations: %w", err)
		}
	}
	txManager := pg.NewTXManager(pool)

	rpc := clients.NewJSONRPCClient("solana-rpc", cfg.SolanaRPCURL, clients.NewHTTPClient(cfg.RPCTimeout))

	conn := pg.New(pool)
	a.cfg = cfg
	a.repo = repo.New(conn)
	a.srv = service.New(cfg, a.repo, txManager, service.External{
		Verifier:   chain.NewVerifier(cfg, chain.NewRPCClient(rpc)),
		Challenges: challenges,
		JWT:        auth.NewJWTService(cfg.JWTSecret),
	})
	a.api = handlers.New(a.srv, cfg.PlatformWallet, cfg.CronSecret)

	if err = a.startHTTPServer(ctx); err != nil {
		return fmt.Errorf("can't start http server: %w", err)
	}

	if err = a.srv.AccrualService.Start(ctx); err != nil {
		return fmt.Errorf("can't start accrual scheduler: %w", err)
	}

	a.ready = true
	zap.L().Info("all systems started successfully")
	return nil
}

func getPgxpool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	cfgpool, err := pgxpool.ParseConfig(cfg.Database)
	if err != nil {
		return nil, err
	}
	dbpool, err := pgxpool.NewWithConfig(ctx, cfgpool)
	if err != nil {
		return nil, err
	}
	if err = dbpool.Ping(ctx); err != nil {
		dbpool.Close()
		return nil, err
	}
	return dbpool, nil
}

// challengeStore uses Redis when REDIS_ADDR is set. The in-memory store only
// works for a single instance.
func (a *Application) challengeStore(ctx context.Context, cfg *config.Config) (authservice.ChallengeStore, error) {
	if cfg.RedisAddr == "" {
		zap.L().Warn("REDIS_ADDR is empty, login challenges are kept in memory")
		return challengerepo.NewMemoryStore(), nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	a.redis = client
	return challengerepo.NewRedisStore(client), nil
}

func (a *Application) startHTTPServer(ctx context.Context) error {
	router := chi.NewRouter()
	a.api.InitRoutes(router)
	server := http.Server{
		Addr:              a.cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		<-ctx.Done()

		sCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(sCtx); err != nil {
			zap.L().Error("http server shutdown failed", zap.Error(err))
		}
		a.close()
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		zap.L().Info("starting http server on port", zap.String("port", a.cfg.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.errCh <- fmt.Errorf("http server exited with error: %w", err)
		}
	}()

	return nil
}

func (a *Application) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			zap.L().Warn("can't close redis client", zap.Error(err))
		}
		a.redis = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}

func (a *Application) Wait(ctx context.Context, cancel context.CancelFunc) error {
	var appErr error

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()

		for err := range a.errCh {
			cancel()
			zap.L().Error(err.Error())
			appErr = err
		}
	}()

	<-ctx.Done()
	a.wg.Wait()
	close(a.errCh)
	wg.Wait()

	return appErr
}
