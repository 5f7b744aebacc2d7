package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"eduvane/api/internal/config"
	"eduvane/api/internal/logging"
	"eduvane/api/internal/orchestrator"
	"eduvane/api/internal/store"
)

type app struct {
	cfg   *config.Config
	log   *zap.Logger
	store *store.Router
}

// newApp loads configuration, the logger and the stores. Model credentials
// are not checked here; see pipeline.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	st, err := store.Open(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	return &app{cfg: cfg, log: log, store: st}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("close store", zap.Error(err))
	}
	_ = a.log.Sync()
}

// pipeline refuses to build when the configuration cannot make model calls.
func (a *app) pipeline() (*orchestrator.Orchestrator, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	return orchestrator.FromConfig(a.cfg, a.log)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
