package main

import (
	"fmt"
	"log"

	"judge-engine/core"
)

func main() {
	cfg := core.Load()

	logCloser, err := core.SetupLogging(cfg, "opsapi.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	redisClient, err := core.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer redisClient.Close()

	router := core.NewOpsRouter(redisClient)

	addr := fmt.Sprintf(":%s", cfg.OpsPort)
	log.Printf("starting ops api on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
