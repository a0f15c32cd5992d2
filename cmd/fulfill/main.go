package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/gini3d/marketd/internal/config"
	"github.com/gini3d/marketd/internal/feed"
	"github.com/gini3d/marketd/internal/fulfill"
	"github.com/gini3d/marketd/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &fulfill.Service{
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-fulfill",
	}

	group := getenv("FULFILL_GROUP", "fulfill-svc")
	workers := mustAtoi(os.Getenv("FULFILL_WORKERS"), "4")

	// One consumer per order-feed topic, same handler.
	for _, topic := range []string{feed.TopicOrderPlaced, feed.TopicPaymentReceived} {
		cons := feed.NewConsumer(cfg.KafkaBrokers, group, topic, workers)
		go func(topic string) {
			log.Printf("fulfill consumer started: group=%s topic=%s workers=%d", group, topic, workers)
			if err := cons.Start(ctx, svc.HandleOrderEvent); err != nil {
				log.Printf("consumer exit (%s): %v", topic, err)
				cancel()
			}
		}(topic)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Println("shutting down consumers...")
	case <-ctx.Done():
	}
	cancel()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
