package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/blerpc/internal/devicefactory"
	"github.com/srg/blerpc/pkg/config"
	"github.com/srg/blerpc/pkg/rpc"
)

// session holds what every device command needs: the effective configuration,
// a logger and the channel registry.
type session struct {
	cfg      *config.Config
	logger   *logrus.Logger
	registry *rpc.Registry
}

// loadConfig reads --config (or the defaults) and applies flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if order, _ := cmd.Flags().GetString("byte-order"); order != "" {
		cfg.ByteOrder = order
	}
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout != 0 {
		cfg.ConnectTimeout = timeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSession builds the driver, codec and registry from flags and config
func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	// Without flags the CLI stays quiet unless the config asks for more
	fallback := logrus.PanicLevel
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		fallback = cfg.LogLevel
	}
	logger, err := configureLogger(cmd, "verbose", fallback)
	if err != nil {
		return nil, err
	}

	codec, err := cfg.Codec()
	if err != nil {
		return nil, err
	}

	driver := devicefactory.NewDriver(logger, cfg.ConnectTimeout)
	return &session{
		cfg:      cfg,
		logger:   logger,
		registry: rpc.NewRegistry(driver, codec, logger),
	}, nil
}

// Close disconnects every device the session talked to
func (s *session) Close() {
	s.registry.Close()
}

// callTimeout bounds one unary call, connection setup included
func (s *session) callTimeout() time.Duration {
	return s.cfg.ConnectTimeout
}

// interruptContext is canceled on Ctrl+C or SIGTERM
func interruptContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
