package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/stevemurr/franchise-admin/config"
	"github.com/stevemurr/franchise-admin/handler"
	"github.com/stevemurr/franchise-admin/logging"
	"github.com/stevemurr/franchise-admin/metrics"
	"github.com/stevemurr/franchise-admin/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	m := metrics.New()

	opts := store.Options{
		Backend: cfg.StoreBackend,
		DataDir: cfg.DataDir,
		Mongo: store.MongoOptions{
			URI:            cfg.MongoURI,
			Database:       cfg.MongoDatabase,
			MaxPoolSize:    cfg.MongoMaxPoolSize,
			ConnectTimeout: cfg.MongoConnectTimeout,
			SocketTimeout:  cfg.MongoSocketTimeout,
		},
	}
	resolver := store.NewResolver(
		func(ctx context.Context) (store.Store, error) { return store.Open(ctx, opts) },
		store.WithConnectTimeout(cfg.MongoConnectTimeout),
		store.WithLogger(log.WithField("component", "store")),
		store.OnResolved(func(state store.State, backend string, cause error) {
			m.SetStoreBackend(backend)
			if cause != nil {
				m.RecordFallback()
			}
			log.WithFields(logrus.Fields{"state": state.String(), "backend": backend}).Info("store resolved")
		}),
	)

	h := handler.New(resolver, handler.WithLogger(log), handler.WithMetrics(m))

	chain := []logging.Middleware{
		logging.RequestIDMiddleware(),
		logging.AccessLog(log),
		logging.Recover(log),
		logging.CORS(cfg.AllowedOrigins),
	}
	if cfg.RateLimitRPS > 0 {
		chain = append(chain, logging.RateLimit(logging.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst), log))
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           logging.Chain(chain...)(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"addr":    srv.Addr,
			"backend": cfg.StoreBackend,
		}).Info("Franchise Admin starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if cerr := resolver.Close(shutdownCtx); cerr != nil {
			log.WithError(cerr).Warn("closing store")
		}
		return err
	})
	return g.Wait()
}
