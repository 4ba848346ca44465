package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"syntra-ledger/config"
	"syntra-ledger/internal/cache"
	"syntra-ledger/internal/database"
	"syntra-ledger/internal/events"
	"syntra-ledger/internal/export"
	"syntra-ledger/internal/gateway"
	commissionhandler "syntra-ledger/internal/services/commissions/handler"
	ledgerhandler "syntra-ledger/internal/services/ledger/handler"
	userhandler "syntra-ledger/internal/services/user/handler"
	"syntra-ledger/internal/storage"
	"syntra-ledger/internal/utils"
)

const (
	ledgerServiceName     = "syntra.ledger"
	commissionServiceName = "syntra.commissions"
)

func main() {
	cfg := config.LoadConfig()
	if cfg.Auth.JWTSecret == "" {
		log.Fatalf("JWT_SECRET is required")
	}

	db, err := database.NewConnection(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to db: %v", err)
	}
	if err := database.MigrateLedgerDB(db); err != nil {
		log.Fatalf("Failed to migrate Ledger database: %v", err)
	}

	var (
		store            cache.Store
		ledgerEvents     events.Publisher = events.NopPublisher{}
		commissionEvents events.Publisher = events.NopPublisher{}
	)
	if cfg.Redis.Enabled() {
		redisClient, err := config.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer redisClient.Close()

		store = cache.NewRedisStore(redisClient)
		ledgerEvents = events.NewRedisPublisher(redisClient, "ledger")
		commissionEvents = events.NewRedisPublisher(redisClient, "commission")
	} else {
		log.Println("REDIS_HOST not set, using in-memory cache and no event publishing")
		store = cache.NewMemoryStore(commissionhandler.CACHE_TTL_LONG, 10*time.Minute)
	}

	files, err := storage.NewLocalStore(cfg.Upload.Dir, cfg.Upload.BaseURL)
	if err != nil {
		log.Fatalf("Failed to prepare upload dir: %v", err)
	}
	docnums, err := utils.NewDocumentNumberGenerator(cfg.IDNode)
	if err != nil {
		log.Fatalf("Failed to create document number generator: %v", err)
	}

	directory := userhandler.NewUserHandler(db, store)
	commissions := commissionhandler.NewCommissionHandler(db, store, commissionEvents, directory, commissionhandler.Options{
		CsFlatFee:       cfg.Commission.CsFlatFee,
		BulkConcurrency: cfg.Commission.BulkConcurrency,
	})
	ledger := ledgerhandler.NewLedgerHandler(db, files, ledgerEvents, docnums)

	gin.SetMode(gin.ReleaseMode)
	router, err := gateway.NewRouter(gateway.Deps{
		DB:             db,
		Cache:          store,
		Commissions:    commissions,
		Ledger:         ledger,
		Users:          directory,
		Renderer:       export.CSVRenderer{},
		JWTSecret:      []byte(cfg.Auth.JWTSecret),
		RateLimit:      cfg.Server.RateLimit,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		UploadDir:      cfg.Upload.Dir,
		UploadURL:      cfg.Upload.BaseURL,
	})
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	lis, err := net.Listen("tcp", ":"+cfg.Server.HealthPort)
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	for _, name := range []string{"", ledgerServiceName, commissionServiceName} {
		healthServer.SetServingStatus(name, healthpb.HealthCheckResponse_SERVING)
	}

	go func() {
		log.Printf("gRPC health server listening on :%s", cfg.Server.HealthPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Printf("gRPC health server stopped: %v", err)
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Starting server on port :%s", cfg.Server.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	healthServer.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown: %v", err)
	}
	grpcServer.GracefulStop()

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
