package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/unftlabs/go-nftbridge/bridge"
	"github.com/unftlabs/go-nftbridge/chain"
	"github.com/unftlabs/go-nftbridge/config"
	"github.com/unftlabs/go-nftbridge/eventlog"
	"github.com/unftlabs/go-nftbridge/observability"
	"github.com/unftlabs/go-nftbridge/registry"
)

// app bundles the wired components every subcommand needs.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	store   registry.Store
	sink    eventlog.Sink
	reg     *registry.Registry
	events  *eventlog.Log
	gateway *bridge.CaptureGateway
	bridge  *bridge.Bridge
}

// openApp loads config, sets up logging, and wires the bridge over the
// sqlite-backed registry and journal. The gateway is a capture gateway: the
// operator inspects the encoded payload instead of relaying it.
func openApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	store, err := registry.OpenSQLite(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open registry store: %w", err)
	}

	sink, err := eventlog.OpenSQLite(cfg.JournalPath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open journal: %w", err)
	}

	authority, err := cfg.Authority()
	if err != nil {
		store.Close()
		sink.Close()
		return nil, err
	}

	reg := registry.New(store)
	events := eventlog.New(sink)
	gateway := &bridge.CaptureGateway{}
	b := bridge.New(bridge.Config{
		GatewayAuthority: authority,
		ChainTag:         cfg.ChainTag,
		RevertGasLimit:   cfg.RevertGasLimit,
	}, reg, bridge.UnbackedLedger{}, bridge.NopMetadata{}, gateway, events, logger)

	return &app{
		cfg:     cfg,
		log:     logger,
		store:   store,
		sink:    sink,
		reg:     reg,
		events:  events,
		gateway: gateway,
		bridge:  b,
	}, nil
}

func (a *app) Close() {
	a.events.Close()
	a.store.Close()
	a.log.Sync()
}

// gatewayCaller resolves the identity used for gateway callbacks. The
// receive and revert subcommands replay deliveries, so they call as the
// pinned authority.
func (a *app) gatewayCaller() (chain.Identity, error) {
	auth, err := a.cfg.Authority()
	if err != nil {
		return chain.Identity{}, err
	}
	if auth.IsZero() {
		return chain.Identity{}, fmt.Errorf("gateway_authority is not configured")
	}
	return auth, nil
}
