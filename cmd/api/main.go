package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/koperasi-orders.git/internal/audit"
	"github.com/ariefcatur/koperasi-orders.git/internal/auth"
	"github.com/ariefcatur/koperasi-orders.git/internal/catalog"
	"github.com/ariefcatur/koperasi-orders.git/internal/config"
	"github.com/ariefcatur/koperasi-orders.git/internal/httpx"
	kafkax "github.com/ariefcatur/koperasi-orders.git/internal/kafka"
	"github.com/ariefcatur/koperasi-orders.git/internal/orders"
	"github.com/ariefcatur/koperasi-orders.git/internal/postgres"
	"github.com/ariefcatur/koperasi-orders.git/internal/redisx"
	"github.com/ariefcatur/koperasi-orders.git/internal/reports"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	pCreated.Start(ctx)
	pChanged := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024)
	pChanged.Start(ctx)

	// Repos & handlers
	orderRepo := &orders.Repo{DB: db, CodePrefix: cfg.OrderCodePrefix}
	productRepo := &catalog.Repo{DB: db}
	auditRepo := &audit.Repo{DB: db}
	reportRepo := &reports.Repo{DB: db}
	verifier := &auth.RedisVerifier{Redis: rdb}

	router := httpx.NewRouter()
	requireAuth := httpx.RequireAuth(verifier)

	oh := &httpx.OrdersHandler{
		Store:   orderRepo,
		Created: pCreated,
		Changed: pChanged,
		Redis:   rdb,
		Service: cfg.ServiceName,
	}
	oh.Register(router, requireAuth)

	ph := &httpx.ProductsHandler{Store: productRepo}
	ph.Register(router, requireAuth)

	rh := &httpx.ReportsHandler{Source: reportRepo, Audit: auditRepo}
	rh.Register(router, requireAuth)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pCreated.Close() // tutup inbox -> flush & close writer
	pChanged.Close()
	cancel() // stop producer loop
	pCreated.WaitClosed()
	pChanged.WaitClosed()
}
