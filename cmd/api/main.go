package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/artemvolkov/auction-house/internal/adapters/crdb"
	mongoadapter "github.com/artemvolkov/auction-house/internal/adapters/mongo"
	"github.com/artemvolkov/auction-house/internal/adapters/rabbit"
	redisadapter "github.com/artemvolkov/auction-house/internal/adapters/redis"
	"github.com/artemvolkov/auction-house/internal/bidding"
	"github.com/artemvolkov/auction-house/internal/checkout"
	"github.com/artemvolkov/auction-house/internal/config"
	httphandler "github.com/artemvolkov/auction-house/internal/http"
	"github.com/artemvolkov/auction-house/internal/idempotency"
	"github.com/artemvolkov/auction-house/internal/observability"
	"github.com/artemvolkov/auction-house/internal/ratelimit"
	"github.com/artemvolkov/auction-house/internal/sweeper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	audit := mongoadapter.NewAuditLogger(mongoClient.Database("auction"), logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	cache := redisadapter.NewCache(redisClient)
	idemp := idempotency.NewIdempotency(redisadapter.NewReplayStore(redisClient), time.Hour)
	rl := ratelimit.NewRateLimiter(cache)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	sink, err := rabbit.NewPublisher(rabbitConn, logger)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	acceptor := bidding.NewAcceptor(repo, sink, audit, logger)
	finalizer := checkout.NewFinalizer(repo, sink, audit, logger)
	sw := sweeper.New(repo, sink, audit, logger)

	handlers := httphandler.NewHandlers(repo, acceptor, finalizer, sw, cache, idemp, logger)
	r := httphandler.SetupRouter(handlers, logger, cfg.JWTSecret, rl)

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
