package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/kbukum/pmdakit/config"
	"github.com/kbukum/pmdakit/logger"
	"github.com/kbukum/pmdakit/observability"
	"github.com/kbukum/pmdakit/pmda"
	"github.com/kbukum/pmdakit/version"
)

const appName = "pmdactl"

// appConfig is the layout of pmdactl.yaml. Every key can be overridden
// from the environment, e.g. PMDACTL_PMDA_HOST.
type appConfig struct {
	config.BaseConfig `yaml:",inline" mapstructure:",squash"`

	Log           logger.Config        `yaml:"log" mapstructure:"log"`
	PMDA          pmda.Config          `yaml:"pmda" mapstructure:"pmda"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

type options struct {
	configFile string
	host       string
	port       int
	wire       string
	logLevel   string
}

// app carries state shared by subcommands.
type app struct {
	opts     options
	cfg      appConfig
	client   *pmda.Client
	shutdown func(context.Context) error
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Query and update a CA Performance Management data aggregator",
		Version:       version.Get().Short(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close(cmd.Context())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.opts.configFile, "config", "c", "", "path to a config file (default: discovered pmdactl.yaml)")
	flags.StringVar(&a.opts.host, "host", "", "data aggregator host")
	flags.IntVar(&a.opts.port, "port", 0, "data aggregator port (default 8581)")
	flags.StringVar(&a.opts.wire, "wire", "", "wire format: xml or json")
	flags.StringVarP(&a.opts.logLevel, "log-level", "l", "", "log level: debug, info, warn or error")

	cmd.AddCommand(
		newGetCmd(a),
		newListCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newRenderCmd(),
		newVersionCmd(),
	)
	return cmd
}

// load reads configuration, applies flag overrides and sets up logging
// and telemetry. The aggregator client is created on first use.
func (a *app) load(ctx context.Context) error {
	opts := []config.LoaderOption{config.WithDefault("name", appName)}
	if a.opts.configFile != "" {
		opts = append(opts, config.WithConfigFile(a.opts.configFile))
	}
	if err := config.LoadConfig(appName, &a.cfg, opts...); err != nil {
		return err
	}

	if a.opts.host != "" {
		a.cfg.PMDA.Host = a.opts.host
	}
	if a.opts.port != 0 {
		a.cfg.PMDA.Port = a.opts.port
	}
	if a.opts.wire != "" {
		a.cfg.PMDA.Wire = a.opts.wire
	}
	if a.opts.logLevel != "" {
		a.cfg.Log.Level = a.opts.logLevel
	}

	a.cfg.BaseConfig.ApplyDefaults()
	if err := a.cfg.BaseConfig.Validate(); err != nil {
		return err
	}
	a.cfg.Log.ApplyDefaults()
	if err := a.cfg.Log.Validate(); err != nil {
		return err
	}
	logger.Init(&a.cfg.Log)

	if a.cfg.Observability.ServiceName == "" {
		a.cfg.Observability.ServiceName = appName
	}
	if a.cfg.Observability.ServiceVersion == "" {
		a.cfg.Observability.ServiceVersion = version.Get().Short()
	}
	if a.cfg.Observability.Environment == "" {
		a.cfg.Observability.Environment = a.cfg.Environment
	}
	shutdown, err := observability.Init(ctx, &a.cfg.Observability)
	if err != nil {
		return err
	}
	a.shutdown = shutdown
	return nil
}

// pmda returns the aggregator client, creating it on first call.
func (a *app) pmda() (*pmda.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	var opts []pmda.Option
	if a.cfg.Observability.Enabled {
		metrics, err := observability.NewClientMetrics(observability.Meter(appName))
		if err != nil {
			return nil, err
		}
		opts = append(opts, pmda.WithMetrics(metrics))
	}
	client, err := pmda.New(a.cfg.PMDA, opts...)
	if err != nil {
		return nil, err
	}
	a.client = client
	return client, nil
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.client != nil {
		errs = append(errs, a.client.Close(ctx))
		a.client = nil
	}
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(ctx))
		a.shutdown = nil
	}
	return errors.Join(errs...)
}
