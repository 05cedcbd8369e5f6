package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/openfs/openfs/internal/router"
	isync "github.com/openfs/openfs/internal/sync"
)

var (
	cacheHitRatio = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "openfs_cache_hit_ratio",
		Help: "Cache hit ratio observed on the most recent poll, per mount.",
	}, []string{"mount"})
	mountCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "openfs_mounts",
		Help: "Number of mounts configured in the running VFS.",
	})
)

func newServeCmd() *cobra.Command {
	var addr string

	c := &cobra.Command{
		Use:   "serve",
		Short: "Expose a health check and Prometheus metrics for a running VFS",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, v, err := openVFS(cmd.Context())
			if err != nil {
				return err
			}
			defer v.Shutdown()

			mounts := v.Mounts()
			mountCount.Set(float64(len(mounts)))

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go pollCacheStats(ctx, mounts)

			mux := http.NewServeMux()
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("ok"))
			})
			mux.Handle("/metrics", promhttp.Handler())

			log.WithField("addr", addr).Info("serving health and metrics endpoints")
			server := &http.Server{Addr: addr, Handler: mux}
			return server.ListenAndServe()
		},
	}
	c.Flags().StringVar(&addr, "addr", ":8181", "address to listen on")
	return c
}

// pollCacheStats samples every cached mount's hit ratio on an interval, the
// way a Prometheus exporter's collector loop feeds its gauges.
func pollCacheStats(ctx context.Context, mounts []router.Mount) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, m := range mounts {
				cb, ok := m.Backend.(*isync.CachedBackend)
				if !ok {
					continue
				}
				cacheHitRatio.WithLabelValues(m.Path).Set(cb.Stats().HitRate())
			}
		}
	}
}
