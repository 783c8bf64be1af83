// cmd/pzem/root.go
package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tamzrod/pzem004t/internal/config"
)

// app is the state shared by every subcommand once the root has run.
type app struct {
	configPath string
	port       string
	address    string
	timeout    time.Duration
	logLevel   string
	simulate   bool

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "pzem",
		Short:         "PZEM-004T energy meter client over Modbus RTU",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	f.StringVarP(&a.port, "port", "p", "", "serial port (overrides meter.port)")
	f.StringVarP(&a.address, "address", "a", "", "slave address, e.g. 0xF8 (overrides meter.address)")
	f.DurationVar(&a.timeout, "timeout", 0, "response timeout (overrides meter.timeout_ms)")
	f.StringVar(&a.logLevel, "log-level", "", "trace|debug|info|warn|error|fatal")
	f.BoolVar(&a.simulate, "simulate", false, "talk to an in-memory meter instead of a serial port")

	root.AddCommand(
		newReadCmd(a),
		newPollCmd(a),
		newResetEnergyCmd(a),
		newSetAddressCmd(a),
		newSetAlarmCmd(a),
		newInfoCmd(a),
		newConfigCmd(a),
	)

	return root
}

// init loads config, applies flag overrides, validates and builds the logger.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Meter.Port = a.port
	}
	if flags.Changed("address") {
		addr, err := parseAddress(a.address)
		if err != nil {
			return err
		}
		cfg.Meter.Address = int(addr)
	}
	if flags.Changed("timeout") {
		cfg.Meter.TimeoutMs = int(a.timeout.Milliseconds())
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("simulate") {
		cfg.Meter.Simulate = a.simulate
	}

	if err := config.Validate(&cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(&cfg)

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.Level())
	logger, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger.With(zap.String("meter", cfg.Meter.ID))
	return nil
}

func parseAddress(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid slave address %q: %w", s, err)
	}
	return byte(v), nil
}
