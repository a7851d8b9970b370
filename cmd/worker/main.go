package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/koperasi-orders.git/internal/config"
	kafkax "github.com/ariefcatur/koperasi-orders.git/internal/kafka"
	"github.com/ariefcatur/koperasi-orders.git/internal/orders"
	"github.com/ariefcatur/koperasi-orders.git/internal/redisx"
	"github.com/ariefcatur/koperasi-orders.git/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &worker.Service{
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-worker",
	}

	topics := []string{orders.TopicOrderCreated, orders.TopicOrderStatusChanged}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.WorkerGroup, topics, cfg.WorkerCount)

	go func() {
		log.Printf("status-cache consumer started: group=%s topics=%v workers=%d",
			cfg.WorkerGroup, topics, cfg.WorkerCount)
		if err := cons.Start(ctx, svc.HandleOrderEvent); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
