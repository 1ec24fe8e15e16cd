package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"judge-engine/core"
)

func main() {
	cfg := core.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logCloser, err := core.SetupLogging(cfg, "dispatcher.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	redisClient, err := core.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer redisClient.Close()

	driver, err := core.NewDriver(cfg)
	if err != nil {
		log.Fatalf("failed to init sandbox driver: %v", err)
	}

	store := core.NewPgStore(db)
	pool := core.NewWorkerPool(cfg.PoolSize)
	pipeline := core.NewPipeline(store, driver, cfg)

	instanceID := core.NewWorkerID()
	hostname, _ := os.Hostname()
	heartbeat := core.NewHeartbeatState(instanceID, hostname, cfg.PoolSize)
	go heartbeat.Start(ctx, redisClient)

	dispatcher := core.NewDispatcher(store, pool, pipeline, cfg, heartbeat)

	log.Printf("dispatcher started. id=%s pool_size=%d period=%s", instanceID, cfg.PoolSize, cfg.DispatchPeriod)
	dispatcher.Run(ctx)
	log.Printf("dispatcher stopped. id=%s", instanceID)
}
