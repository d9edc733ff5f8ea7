package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nkiryanov/bazaar/internal/auth"
	"github.com/nkiryanov/bazaar/internal/db"
	"github.com/nkiryanov/bazaar/internal/handlers"
	"github.com/nkiryanov/bazaar/internal/logger"
	"github.com/nkiryanov/bazaar/internal/metrics"
	"github.com/nkiryanov/bazaar/internal/repository/postgres"
	"github.com/nkiryanov/bazaar/internal/service/bid"
	"github.com/nkiryanov/bazaar/internal/service/earnings"
	"github.com/nkiryanov/bazaar/internal/service/escrow"
	"github.com/nkiryanov/bazaar/internal/service/listing"
	"github.com/nkiryanov/bazaar/internal/service/reward"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
	Dispatcher *reward.Dispatcher

	pool   *pgxpool.Pool
	kafka  *reward.KafkaSink
	logger logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	l, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	verifier, err := auth.New(auth.Config{SecretKey: c.SecretKey})
	if err != nil {
		return nil, fmt.Errorf("error while creating token verifier. Err: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	app := &ServerApp{
		ListenAddr: c.ListenAddr,
		pool:       pool,
		logger:     l,
	}

	storage := postgres.NewStorage(pool)
	m := metrics.New()

	// Initialize services
	rewardService := reward.NewService(storage, l)
	services := handlers.Services{
		Auth:     verifier,
		Listings: listing.NewService(storage),
		Bids:     bid.NewService(storage, m, l),
		Escrow:   escrow.NewService(storage, rewardService, m, l),
		Earnings: earnings.NewService(storage, m, l),
		Rewards:  rewardService,
		DB:       pool,
	}

	// Reward events always reach points ledger, kafka is optional
	var sink reward.Sink = reward.NewPointsSink(storage, l)
	if brokers := c.Brokers(); len(brokers) > 0 {
		producer, err := reward.NewKafkaProducer(brokers)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("error while connecting to kafka. Err: %w", err)
		}
		app.kafka = reward.NewKafkaSink(producer, c.RewardTopic, l)
		sink = reward.MultiSink{sink, app.kafka}
	}

	app.Dispatcher = reward.NewDispatcher(storage, sink, reward.DispatcherOpts{ProduceInterval: c.RewardInterval}, m, l)
	app.Handler = handlers.NewRouter(services, m, l)

	return app, nil
}

// Run starts http server and reward dispatcher, stops both gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	dispatcherStopped := s.Dispatcher.Dispatch(srvCtx)

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-dispatcherStopped

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close releases connections, must be called after Run returned
func (s *ServerApp) Close() error {
	var err error
	if s.kafka != nil {
		err = s.kafka.Close()
	}
	s.pool.Close()
	return err
}
