package core

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewOpsRouter builds the engine's minimal operational HTTP surface:
// health, Prometheus metrics, and a read of live dispatcher heartbeats.
// This is distinct from (and does not replace) the out-of-scope submission
// upload ingress (spec §1).
func NewOpsRouter(redisClient RedisClientRaw) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/workers", func(c *gin.Context) {
		heartbeats, err := listHeartbeats(c.Request.Context(), redisClient)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"workers": heartbeats})
	})

	return r
}

// listHeartbeats scans Redis for every live dispatcher heartbeat key.
func listHeartbeats(ctx context.Context, client RedisClientRaw) ([]Heartbeat, error) {
	var out []Heartbeat
	var cursor uint64
	for {
		keys, next, err := client.Scan(ctx, cursor, heartbeatKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			data, err := client.Get(ctx, key).Bytes()
			if err != nil {
				continue
			}
			var hb Heartbeat
			if err := json.Unmarshal(data, &hb); err == nil {
				out = append(out, hb)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}
