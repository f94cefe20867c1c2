package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/restaurant-orders/internal/accounts"
	"github.com/ariefcatur/restaurant-orders/internal/catalog"
	"github.com/ariefcatur/restaurant-orders/internal/config"
	"github.com/ariefcatur/restaurant-orders/internal/httpx"
	"github.com/ariefcatur/restaurant-orders/internal/logging"
	"github.com/ariefcatur/restaurant-orders/internal/memstore"
	"github.com/ariefcatur/restaurant-orders/internal/orders"
	"github.com/ariefcatur/restaurant-orders/internal/postgres"
	"github.com/ariefcatur/restaurant-orders/internal/redisx"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

type stores struct {
	accounts accounts.Store
	catalog  catalog.Store
	orders   orders.Store
	close    func()
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel).With(slog.String("service", cfg.ServiceName))

	if err := run(cfg, log); err != nil {
		log.Error("exit", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		return err
	}

	accountSvc := accounts.NewService(log, st.accounts, accounts.BcryptHasher{Cost: cfg.BcryptCost})
	catalogSvc := catalog.NewService(log, st.catalog)
	orderSvc := orders.NewService(log, st.orders, cfg.Location)

	if err := accountSvc.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return err
	}

	sessions := redisx.NewSessions(rdb, cfg.SessionTTL)
	router := httpx.NewRouter(log, sessions, accountSvc, cfg.RequestTimeout)
	httpx.NewAccountsHandler(log, accountSvc, sessions).Register(router)
	httpx.NewCatalogHandler(log, catalogSvc).Register(router)
	httpx.NewOrdersHandler(log, orderSvc, redisx.NewIdempotency(rdb)).Register(router)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http listening", slog.String("addr", cfg.HTTPAddr), slog.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStores(ctx context.Context, cfg config.Config, log *slog.Logger) (stores, error) {
	if cfg.StoreBackend == config.BackendMemory {
		log.Warn("using in-memory store; data is lost on restart")
		db := memstore.New()
		return stores{accounts: db.Accounts(), catalog: db.Catalog(), orders: db.Orders(), close: func() {}}, nil
	}

	if cfg.MigrateOnStart {
		if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
			return stores{}, err
		}
		log.Info("migrations applied")
	}
	pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return stores{}, err
	}
	return stores{
		accounts: postgres.NewAccountStore(pool),
		catalog:  postgres.NewCatalogStore(pool),
		orders:   postgres.NewOrderStore(pool),
		close:    pool.Close,
	}, nil
}
