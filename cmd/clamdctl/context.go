package main

import (
	"log/slog"
	"os"
	"time"

	clamd "github.com/clammyhq/clamd-client-go"
	"github.com/clammyhq/clamd-client-go/internal/config"
	"github.com/clammyhq/clamd-client-go/internal/logging"
	"github.com/google/uuid"
)

// commandContext carries flag values and lazily-built collaborators shared
// by every subcommand.
type commandContext struct {
	addressFlag string
	configFlag  string
	timeoutFlag time.Duration
	timeoutSet  bool
	verboseFlag bool
	jsonFlag    bool

	cfg    *config.Config
	logger *slog.Logger
}

// ensureConfig loads the config file once and applies flag overrides.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}

	cfg, err := config.Load(c.configFlag)
	if err != nil {
		return nil, err
	}
	if c.addressFlag != "" {
		cfg.Address = c.addressFlag
	}
	if c.timeoutSet {
		cfg.TimeoutSeconds = c.timeoutFlag.Seconds()
	}
	if c.verboseFlag {
		cfg.LogLevel = "debug"
	}

	c.cfg = &cfg
	return c.cfg, nil
}

// ensureLogger builds the stderr logger once, tagged with a run ID so
// multiple invocations interleaved in one log stream stay separable.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}

	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(os.Stderr, logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	if err != nil {
		return nil, err
	}

	c.logger = logger.With("run_id", uuid.NewString())
	return c.logger, nil
}

// newClient builds the protocol client from the resolved config.
func (c *commandContext) newClient() (*clamd.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	opts := []clamd.ClientOption{
		clamd.WithTimeout(cfg.Timeout()),
		clamd.WithChunkSize(cfg.ChunkSize),
	}
	if cfg.Framing == "null" {
		opts = append(opts, clamd.WithFraming(clamd.FramingNull))
	}

	client, err := clamd.NewClient(cfg.Address, opts...)
	if err != nil {
		return nil, err
	}

	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	logger.Debug("client ready",
		"address", client.Address(),
		"timeout", cfg.Timeout().String(),
		"framing", cfg.Framing,
	)
	return client, nil
}
