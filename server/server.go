// Package server answers CDDB requests over HTTP, websockets and CDDBP from
// any protocol backend.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"gocddb/cache"
	"gocddb/config"
	"gocddb/core/protocol"
	"gocddb/logger"
)

// NewConfiguredDispatcher builds a dispatcher over backend with the hooks
// enabled in cfg. The returned cleanup releases hook resources.
func NewConfiguredDispatcher(cfg *config.Config, backend protocol.Backend, metrics *Metrics) (*Dispatcher, func(), error) {
	d := NewDispatcher(backend, metrics)
	cleanup := func() {}

	if cfg.LocalDumpDir != "" {
		d.AddCommandHook(LocalDumpHook(cfg.LocalDumpDir))
	}
	if cfg.EnableCache {
		if err := cache.ConnectRedis(cfg); err != nil {
			return nil, cleanup, err
		}
		cleanup = func() {
			if err := cache.CloseRedis(); err != nil {
				logger.Warn("failed to close Redis", logger.ErrorField(err))
			}
		}
		records := cache.NewRecordCache(cache.NewRedisStore(cache.RedisClient), cfg.CacheTTL)
		d.AddCommandHook(records.Lookup)
		d.AddResponseHook(records.Store)
		logger.Info("response cache enabled", logger.Duration("ttl", cfg.CacheTTL))
	}
	if cfg.LowercaseTitles {
		d.AddResponseHook(LowercaseSmallWords)
	}
	return d, cleanup, nil
}

// Start serves backend on the configured HTTP and CDDBP addresses until
// SIGINT or SIGTERM.
func Start(cfg *config.Config, backend protocol.Backend) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	d, cleanup, err := NewConfiguredDispatcher(cfg, backend, NewMetrics(reg))
	if err != nil {
		return err
	}
	defer cleanup()
	defer func() {
		if err := backend.Disconnect(); err != nil {
			logger.Warn("failed to disconnect backend", logger.ErrorField(err))
		}
	}()

	// 设置服务器超时
	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      NewRouter(d, reg),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	errCh := make(chan error, 2)

	go func() {
		logger.Info("HTTP listener starting",
			logger.String("addr", cfg.ListenAddr),
			logger.String("cgi", CGIPath))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http listener: %w", err)
		}
	}()

	var tcp *TCPListener
	if cfg.CDDBPAddr != "" {
		tcp = NewTCPListener(d, cfg.Host)
		go func() {
			logger.Info("CDDBP listener starting", logger.String("addr", cfg.CDDBPAddr))
			if err := tcp.ListenAndServe(cfg.CDDBPAddr); err != nil {
				errCh <- fmt.Errorf("cddbp listener: %w", err)
			}
		}()
	}

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case err = <-errCh:
		logger.Error("listener failed", logger.ErrorField(err))
	}

	// 创建一个5秒超时的上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if shutdownErr := httpServer.Shutdown(ctx); shutdownErr != nil {
		logger.Error("server forced to shutdown", logger.ErrorField(shutdownErr))
	}
	if tcp != nil {
		if closeErr := tcp.Close(); closeErr != nil {
			logger.Warn("failed to close CDDBP listener", logger.ErrorField(closeErr))
		}
	}
	logger.Info("server stopped")
	return err
}
