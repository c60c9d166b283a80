// Command lnengine is the engine's process entry point: load
// configuration, bring up the engine, serve the Wallet and Payments
// RPCs, and block until an interrupt signal arrives.
//
// Grounded on lnd.go's lndMain/main split (a nested "real main" so
// deferred cleanup still runs on a graceful shutdown), adapted for this
// engine's own config/engine/rpcapi stack instead of lnd's flags-based
// config and lnrpc.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/satsengine/lnengine/config"
	"github.com/satsengine/lnengine/internal/engine"
	"github.com/satsengine/lnengine/internal/rpcapi"
	"github.com/satsengine/lnengine/internal/rpcserver"
	"github.com/satsengine/lnengine/pkg/logger"
)

func run() error {
	configPath := flag.String("config", "./lnengine.toml", "path to the engine's TOML configuration file")
	environment := flag.String("environment", "development", "logging mode: development or production")
	flag.Parse()

	if err := logger.Init(*environment); err != nil {
		return fmt.Errorf("lnengine: initializing logger: %w", err)
	}
	defer logger.Sync()

	var cfg config.EngineConfig
	if err := config.Load(config.Path(*configPath), &cfg); err != nil {
		return fmt.Errorf("lnengine: loading configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := engine.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("lnengine: opening engine: %w", err)
	}
	defer func() {
		if err := eng.Close(); err != nil {
			logger.Warn("lnengine: closing engine", zap.Error(err))
		}
	}()

	go func() {
		if err := eng.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("lnengine: engine stopped", zap.Error(err))
		}
	}()

	lis, err := net.Listen("tcp", cfg.RPCBindAddr)
	if err != nil {
		return fmt.Errorf("lnengine: binding %s: %w", cfg.RPCBindAddr, err)
	}

	grpcServer := grpc.NewServer(rpcapi.ServerCodecOption())
	rpcapi.RegisterWalletServer(grpcServer, rpcserver.NewWalletServer(eng))
	rpcapi.RegisterPaymentsServer(grpcServer, rpcserver.NewPaymentsServer(eng))

	serveErr := make(chan error, 1)
	go func() { serveErr <- grpcServer.Serve(lis) }()

	logger.Info("lnengine: serving", zap.String("addr", cfg.RPCBindAddr), zap.String("network", string(cfg.Network)))

	select {
	case <-ctx.Done():
		logger.Info("lnengine: shutdown signal received")
		grpcServer.GracefulStop()
		return nil
	case err := <-serveErr:
		return fmt.Errorf("lnengine: grpc server stopped: %w", err)
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
