package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vitalvas/signedrequests/replay"
	"github.com/vitalvas/signedrequests/signedreq"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	listen string
	redis  replay.RedisConfig
}

func newServeCmd(a *app) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a receiver that verifies signed requests",
		Long: `Serve starts an HTTP server with one route prefix per profile. Requests to
/<profile>/... must be signed with that profile; verified requests are
answered with a JSON echo of the id and canonical content.

Consumed ids are kept in memory unless --redis-addr is set. Prometheus
metrics are exposed on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			all, err := a.loadProfiles()
			if err != nil {
				return err
			}

			return serve(cmd.Context(), a.logger, all, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.listen, "listen", "l", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.redis.Addr, "redis-addr", "", "Redis address for a shared replay cache")
	cmd.Flags().StringVar(&opts.redis.Username, "redis-username", "", "Redis username")
	cmd.Flags().StringVar(&opts.redis.Password, "redis-password", "", "Redis password")
	cmd.Flags().IntVar(&opts.redis.DB, "redis-db", 0, "Redis database")
	cmd.Flags().StringVar(&opts.redis.KeyPrefix, "redis-key-prefix", "", "prefix for replay keys in Redis")

	return cmd
}

func serve(ctx context.Context, logger *zap.Logger, all signedreq.Profiles, opts serveOptions) error {
	cache, closeCache, err := newReplayCache(ctx, opts.redis)
	if err != nil {
		return err
	}
	defer closeCache()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router, err := newRouter(all, cache, logger, signedreq.NewMetrics(registry), registry)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              opts.listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("listening", zap.String("addr", opts.listen), zap.Strings("profiles", all.Names()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down")

	return srv.Shutdown(shutdownCtx)
}

// newReplayCache returns a Redis cache when an address is configured and an
// in-memory cache otherwise.
func newReplayCache(ctx context.Context, cfg replay.RedisConfig) (signedreq.ReplayCache, func(), error) {
	if cfg.Addr == "" {
		return replay.NewMemory(0), func() {}, nil
	}

	r, err := replay.DialRedis(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	return r, func() { _ = r.Close() }, nil
}

// newRouter mounts one verified echo endpoint per profile under /<name>
// and the metrics handler under /metrics.
func newRouter(all signedreq.Profiles, cache signedreq.ReplayCache, logger *zap.Logger, metrics *signedreq.Metrics, gatherer prometheus.Gatherer) (*mux.Router, error) {
	r := mux.NewRouter()

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	for _, name := range all.Names() {
		profile, err := all.Resolve(name)
		if err != nil {
			return nil, err
		}

		mw, err := signedreq.Middleware(signedreq.MiddlewareConfig{
			Verify: signedreq.VerifyConfig{
				Profile: profile,
				Cache:   cache,
				Logger:  logger,
				Metrics: metrics,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}

		sub := r.PathPrefix("/" + name).Subrouter()
		sub.Use(mw)
		sub.NewRoute().Handler(echoHandler(profile))
	}

	return r, nil
}

type echoResponse struct {
	Profile string `json:"profile"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	URI     string `json:"uri"`
	Content string `json:"content"`
}

func echoHandler(profile signedreq.Profile) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := signedreq.FromHTTP(r)
		v := signedreq.NewVerifier(req).SetIDHeader(profile.IDHeader)

		content, err := v.Content()
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(echoResponse{
			Profile: profile.Name,
			ID:      v.ID(),
			Method:  r.Method,
			URI:     req.URI(),
			Content: content,
		})
	})
}
