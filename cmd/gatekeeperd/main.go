// Command gatekeeperd runs the connection-acceptance gateway: it binds the
// configured address, admits connections through the acceptor, and exposes
// Prometheus metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cyberinferno/go-gatekeeper/acceptor"
	"github.com/cyberinferno/go-gatekeeper/banlist"
	"github.com/cyberinferno/go-gatekeeper/config"
	"github.com/cyberinferno/go-gatekeeper/listener"
	"github.com/cyberinferno/go-gatekeeper/logger"
	"github.com/cyberinferno/go-gatekeeper/metrics"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "gatekeeper.yml", "path to the YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
	}
	log := logger.NewZerologLogger(zerolog.New(os.Stdout), "gatekeeperd", level)

	reg := prometheus.NewRegistry()
	collector := metrics.NewPrometheusCollector(reg)

	opts := []acceptor.Option{
		acceptor.WithLimits(acceptor.Limits{
			SoftFlagThreshold:   cfg.Limits.SoftFlagThreshold,
			SessionSweepTrigger: cfg.Limits.SessionSweepTrigger,
			EvictCountThreshold: cfg.Limits.EvictCountThreshold,
		}),
		acceptor.WithMetrics(collector),
	}

	if cfg.BanList.Enabled {
		bans, err := buildBanList(cfg.BanList)
		if err != nil {
			return err
		}
		opts = append(opts, acceptor.WithBanList(bans, time.Duration(cfg.BanList.TTLSeconds)*time.Second))
	}

	transport := &listener.TCPTransport{
		Logger:         log,
		MaxConnections: cfg.MaxConnections,
		Workers:        cfg.AcceptWorkers,
	}

	acc := acceptor.New(transport, log, opts...)
	if err := acc.Bind(cfg.ListenAddress); err != nil {
		return err
	}

	var metricsSrv *http.Server
	if cfg.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: cfg.MetricsAddress, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server failed", logger.Field{Key: "error", Value: err})
			}
		}()
		log.Info("metrics listening", logger.Field{Key: "addr", Value: cfg.MetricsAddress})
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Info("shutting down", logger.Field{Key: "signal", Value: s.String()})

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := acc.Unbind(ctx); err != nil {
		log.Error("unbind failed", logger.Field{Key: "error", Value: err})
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(ctx)
	}

	return nil
}

func buildBanList(cfg config.BanListConfig) (banlist.BanList, error) {
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		return banlist.NewRedisBanList(client), nil
	case "memory":
		return banlist.NewMemoryBanList(time.Minute), nil
	default:
		return nil, fmt.Errorf("unknown ban list backend %q", cfg.Backend)
	}
}
