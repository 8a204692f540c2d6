package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/config"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/importer"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/logger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/registry"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/rules"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/settings"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/store"
)

// app holds the collaborators every command needs.
type app struct {
	cfg      config.Config
	store    store.Store
	settings *settings.Settings
	ledger   *ledger.Ledger
	rules    *rules.Engine
	registry *registry.Registry
	delegate importer.Delegate
	now      func() time.Time
}

// openApp loads the configuration, the settings store, the rules and the
// existing ledger. The returned context carries the configured logger.
func openApp(ctx context.Context, globals *globalFlags, delegate importer.Delegate) (*app, context.Context, error) {
	cfg, err := config.Load(globals.configPath)
	if err != nil {
		return nil, ctx, err
	}
	if globals.ledgerPath != "" {
		cfg.Ledger = globals.ledgerPath
	}
	if globals.logLevel != "" {
		cfg.LogLevel = globals.logLevel
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, ctx, err
	}
	ctx = logger.WithContext(ctx, log)

	engine, err := loadRules(cfg.RulesFile)
	if err != nil {
		return nil, ctx, err
	}

	var l *ledger.Ledger
	if cfg.Ledger != "" {
		path, err := config.ExpandHome(cfg.Ledger)
		if err != nil {
			return nil, ctx, err
		}
		if l, err = ledger.ReadFile(path); err != nil {
			return nil, ctx, err
		}
		log.Debug().Str("ledger", path).Int("accounts", len(l.Accounts())).Msg("ledger loaded")
	}

	s, err := cfg.OpenStore(ctx)
	if err != nil {
		return nil, ctx, fmt.Errorf("failed to open settings store: %w", err)
	}

	reg, err := registry.New()
	if err != nil {
		s.Close()
		return nil, ctx, err
	}

	return &app{
		cfg:      cfg,
		store:    s,
		settings: settings.New(s),
		ledger:   l,
		rules:    engine,
		registry: reg,
		delegate: delegate,
		now:      time.Now,
	}, ctx, nil
}

func loadRules(path string) (*rules.Engine, error) {
	if path == "" {
		return rules.LoadEmbedded()
	}
	expanded, err := config.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	return rules.LoadFromFile(expanded)
}

// env returns the importer collaborators.
func (a *app) env() importer.Env {
	return importer.Env{
		Ledger:   a.ledger,
		Settings: a.settings,
		Delegate: a.delegate,
		Rules:    a.rules,
		Now:      a.now,
	}
}

// Close closes the settings store.
func (a *app) Close() error {
	return a.store.Close()
}
