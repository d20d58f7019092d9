package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/moviestore/api/controllers"
	"github.com/angelmondragon/moviestore/api/middleware"
	"github.com/angelmondragon/moviestore/api/routes"
	"github.com/angelmondragon/moviestore/internal/auth"
	"github.com/angelmondragon/moviestore/internal/cart"
	"github.com/angelmondragon/moviestore/internal/checkout"
	"github.com/angelmondragon/moviestore/internal/movies"
	"github.com/angelmondragon/moviestore/internal/orders"
	"github.com/angelmondragon/moviestore/internal/petitions"
	"github.com/angelmondragon/moviestore/internal/reviews"
	"github.com/angelmondragon/moviestore/internal/users"
	"github.com/angelmondragon/moviestore/pkg/auth/session"
	"github.com/angelmondragon/moviestore/pkg/config"
	"github.com/angelmondragon/moviestore/pkg/db"
	"github.com/angelmondragon/moviestore/pkg/logger"
	"github.com/angelmondragon/moviestore/pkg/metrics"
	"github.com/angelmondragon/moviestore/pkg/migrate"
	"github.com/angelmondragon/moviestore/pkg/outbox"
	"github.com/angelmondragon/moviestore/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	ready := map[string]controllers.Pinger{"db": dbClient}
	var sessionStore session.Store = session.NewMemoryStore()
	var limiter middleware.RateLimiter
	if cfg.Redis.Configured() || cfg.Session.UsesRedis() {
		redisClient, redisErr := redis.New(ctx, cfg.Redis, logg)
		if redisErr != nil {
			return redisErr
		}
		defer func() { err = multierr.Append(err, redisClient.Close()) }()

		ready["redis"] = redisClient
		limiter = redisClient
		if cfg.Session.UsesRedis() {
			if sessionStore, err = session.NewRedisStore(redisClient); err != nil {
				return err
			}
		}
	}

	sessionManager, err := session.NewManager(sessionStore, cfg.Session)
	if err != nil {
		return err
	}

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	movieRepo := movies.NewRepository(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	ordersRepo := orders.NewRepository(conn)

	authService, err := auth.NewService(auth.ServiceParams{UserRepo: userRepo})
	if err != nil {
		return err
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{DB: dbClient, PasswordConfig: cfg.Password})
	if err != nil {
		return err
	}
	movieService, err := movies.NewService(movieRepo)
	if err != nil {
		return err
	}
	reviewService, err := reviews.NewService(reviews.ServiceParams{
		DB:      dbClient,
		Repo:    reviews.NewRepository(conn),
		Movies:  movieRepo,
		Emitter: emitter,
	})
	if err != nil {
		return err
	}
	cartService, err := cart.NewService(movieRepo)
	if err != nil {
		return err
	}
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		DB:         dbClient,
		Cart:       cartService,
		OrdersRepo: ordersRepo,
		Outbox:     emitter,
	})
	if err != nil {
		return err
	}
	ordersService, err := orders.NewService(ordersRepo)
	if err != nil {
		return err
	}
	petitionService, err := petitions.NewService(petitions.ServiceParams{
		DB:      dbClient,
		Repo:    petitions.NewRepository(conn),
		Emitter: emitter,
	})
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	infra := routes.Infra{
		Sessions:       sessionManager,
		Users:          userRepo,
		RateLimiter:    limiter,
		Metrics:        metrics.NewStoreMetrics(registry),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Ready:          ready,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, infra, routes.Services{
			Auth:      authService,
			Register:  registerService,
			Movies:    movieService,
			Reviews:   reviewService,
			Cart:      cartService,
			Checkout:  checkoutService,
			Orders:    ordersService,
			Petitions: petitionService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":             cfg.App.Env,
		"addr":            addr,
		"session_backend": cfg.Session.Backend,
	})
	logg.Info(logCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
