// Command l2dplay plays a character headless, writing rendered frames to
// disk.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/l2drt/internal/config"
	"github.com/Faultbox/l2drt/internal/logger"
	"github.com/Faultbox/l2drt/internal/player"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.InitFromConfig(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== l2dplay ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	p, err := player.New(cfg)
	if err != nil {
		logger.Error("failed to load player", zap.Error(err))
		os.Exit(1)
	}
	defer p.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := p.Run(ctx); err != nil {
		logger.Error("playback error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("player closed normally")
}
