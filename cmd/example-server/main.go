// Command example-server demonstrates the three admission strategies behind a
// small HTTP API, with Prometheus metrics on /metrics.
//
//	/ping    sliding-window counter, per client IP
//	/send    leaky bucket shared by all clients
//	/read    token bucket consumer
//	/refill  token bucket producer (normally a timer, exposed here for poking)
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/admitgate/ratelimit/pkg/limiter"
	"github.com/admitgate/ratelimit/pkg/store"
)

func main() {
	var (
		redisAddr string
		listen    string
		prefix    string
	)

	cmd := &cobra.Command{
		Use:   "example-server",
		Short: "HTTP demo of the distributed rate-limiting strategies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(redisAddr, listen, prefix)
		},
	}
	cmd.Flags().StringVar(&redisAddr, "redis-addr", envOr("REDIS_ADDR", "localhost:6379"), "address of the shared Redis store")
	cmd.Flags().StringVar(&listen, "listen", ":8080", "HTTP listen address")
	cmd.Flags().StringVar(&prefix, "prefix", "demo:", "key namespace prefix in the store")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func run(redisAddr, listen, prefix string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client := redis.NewClient(&redis.Options{Addr: redisAddr})
	st, err := store.NewRedisStore(client)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	recorder := limiter.NewPrometheusRecorder(registry)

	opts := []limiter.Option{
		limiter.WithPrefix(prefix),
		limiter.WithLogger(logger),
		limiter.WithRecorder(recorder),
	}

	window, err := limiter.NewSlidingWindowCounter(st, opts...)
	if err != nil {
		return err
	}
	// 10 sends per second across all instances.
	leaky, err := limiter.NewLeakyBucket(st, "demo-send", 10, 10, opts...)
	if err != nil {
		return err
	}
	// 20 reads of headroom, refilled by the ticker below.
	tokens, err := limiter.NewTokenBucket(st, "demo-read", 20, opts...)
	if err != nil {
		return err
	}

	// The token producer side: a timer-driven refill, 5 tokens per second.
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := tokens.Add(ctx, 5); err != nil {
					logger.Warn("token refill failed", zap.Error(err))
				}
			}
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		// 5 requests per 2-second window per client IP.
		dec, err := window.Allow(r.Context(), "ping:"+r.RemoteAddr, 2*time.Second, 5)
		if err != nil {
			logger.Warn("admission check failed", zap.Error(err))
			http.Error(w, "rate limiter unavailable", http.StatusServiceUnavailable)
			return
		}
		if !dec.Allowed {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		fmt.Fprintf(w, "pong (%d in window)\n", dec.Count)
	})

	mux.HandleFunc("/send", func(w http.ResponseWriter, r *http.Request) {
		allowed, err := leaky.Allow(r.Context())
		if err != nil {
			logger.Warn("admission check failed", zap.Error(err))
			http.Error(w, "rate limiter unavailable", http.StatusServiceUnavailable)
			return
		}
		if !allowed {
			http.Error(w, "bucket full", http.StatusTooManyRequests)
			return
		}
		fmt.Fprintln(w, "sent")
	})

	mux.HandleFunc("/read", func(w http.ResponseWriter, r *http.Request) {
		has, err := tokens.Take(r.Context())
		if err != nil {
			logger.Warn("admission check failed", zap.Error(err))
			http.Error(w, "rate limiter unavailable", http.StatusServiceUnavailable)
			return
		}
		if !has {
			http.Error(w, "no tokens left", http.StatusTooManyRequests)
			return
		}
		fmt.Fprintln(w, "read")
	})

	mux.HandleFunc("/refill", func(w http.ResponseWriter, r *http.Request) {
		ok, err := tokens.Add(r.Context(), 0)
		if err != nil {
			logger.Warn("refill failed", zap.Error(err))
			http.Error(w, "rate limiter unavailable", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, "refilled=%v\n", ok)
	})

	logger.Info("listening", zap.String("addr", listen), zap.String("redis", redisAddr))
	return http.ListenAndServe(listen, mux)
}
