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

	"github.com/gini3d/marketd/internal/auth"
	"github.com/gini3d/marketd/internal/cart"
	"github.com/gini3d/marketd/internal/checkout"
	"github.com/gini3d/marketd/internal/config"
	"github.com/gini3d/marketd/internal/feed"
	"github.com/gini3d/marketd/internal/httpx"
	"github.com/gini3d/marketd/internal/market"
	"github.com/gini3d/marketd/internal/nostr"
	"github.com/gini3d/marketd/internal/rates"
	"github.com/gini3d/marketd/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Relay pool
	pool := nostr.NewPool(cfg.Relays)
	defer pool.Close()

	// Exchange rates
	rateSvc := rates.NewService(
		&rates.KrakenSource{URL: cfg.KrakenURL},
		&rates.CoinbaseSource{URL: cfg.CoinbaseGBPURL},
		&rates.CoinbaseSource{URL: cfg.CoinbaseUSDURL},
		&rates.CoinbaseSource{URL: cfg.CoinbaseEURURL},
	)

	// Cart, restored before any mutation can persist
	storage := &cart.RedisStorage{RDB: rdb}
	cartStore := cart.NewStore(storage, redisx.KeyCart)
	loadCtx, loadCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := cartStore.Load(loadCtx); err != nil {
		log.Printf("cart load: %v", err)
	}
	loadCancel()

	// Auth session (raw-key login only; no remote signer wired here)
	authSvc := auth.NewService(pool, storage, redisx.KeySession, nil)
	authSvc.Restore(ctx)

	// Catalog & stalls
	catalog := &market.ProductService{
		Client:    pool,
		Relays:    cfg.Relays,
		Whitelist: cfg.SellerWhitelist,
	}
	stalls := &market.StallService{Client: pool}

	// Order feed producers
	pOrders := feed.NewProducer(cfg.KafkaBrokers, feed.TopicOrderPlaced, 1024)
	pOrders.Start(ctx)
	pPayments := feed.NewProducer(cfg.KafkaBrokers, feed.TopicPaymentReceived, 1024)
	pPayments.Start(ctx)
	publisher := &feed.Publisher{Orders: pOrders, Payments: pPayments, ServiceName: cfg.ServiceName}

	// Checkout
	coordinator := checkout.NewCoordinator(cartStore, authSvc, stalls, rateSvc, publisher)

	// Router & handler
	router := httpx.NewRouter()
	mh := &httpx.MarketHandler{
		Catalog:  catalog,
		Cart:     cartStore,
		Rates:    rateSvc,
		Checkout: coordinator,
		Auth:     authSvc,
		Redis:    rdb,
	}
	mh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pOrders.Close() // close inbox -> flush & close writer
	pPayments.Close()
	cancel() // stop producer loops
	pOrders.WaitClosed()
	pPayments.WaitClosed()
}
