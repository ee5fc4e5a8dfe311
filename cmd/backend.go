package cmd

import (
	"fmt"

	"gocddb/config"
	"gocddb/core/client"
	"gocddb/core/protocol"
	"gocddb/core/reader"
	"gocddb/logger"
	"gocddb/storage"
)

func backendOptions(cfg *config.Config) protocol.Options {
	return protocol.Options{
		User:        cfg.User,
		Host:        cfg.Host,
		Timeout:     cfg.Timeout,
		UseMotdFile: cfg.MotdFile,
		UseStatFile: cfg.StatFile,
	}
}

// openBackend builds the backend for dsn. Object store DSNs name the bucket
// as host and get a MinIO client from the MINIO_* settings.
func openBackend(cfg *config.Config, dsn string) (protocol.Backend, error) {
	parsed, err := protocol.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	opts := backendOptions(cfg)
	if parsed.Scheme == protocol.SchemeObjectStore {
		mc, err := storage.NewMinioClientFromConfig(cfg, parsed.Host)
		if err != nil {
			return nil, err
		}
		opts.Store = mc
	}
	return protocol.New(dsn, opts)
}

// newClient builds a query client over the configured server and reader.
// A broken reader DSN only matters to the CD commands, so it is not fatal.
func newClient(cfg *config.Config) (*client.Client, error) {
	backend, err := openBackend(cfg, cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to open backend %s: %w", cfg.Server, err)
	}

	opts := client.Options{Persist: cfg.Persist, Sudo: cfg.Sudo}
	rd, device, err := reader.New(cfg.Reader)
	if err != nil {
		logger.Debug("cd reader unavailable", logger.String("reader", cfg.Reader), logger.ErrorField(err))
	} else {
		opts.Device = device
	}
	return client.New(backend, rd, opts), nil
}
