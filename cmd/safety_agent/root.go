package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ragcon/safety-assistant/internal/config"
	"github.com/ragcon/safety-assistant/internal/dataset"
	"github.com/ragcon/safety-assistant/internal/fetch"
	"github.com/ragcon/safety-assistant/internal/observability"
	"github.com/ragcon/safety-assistant/internal/ragcon"
	"github.com/ragcon/safety-assistant/internal/safety"
)

const serviceName = "safety_agent"

// rootOptions holds the persistent flags and the configuration resolved from
// them before any subcommand runs.
type rootOptions struct {
	configPath  string
	baseURL     string
	datasetPath string
	timeout     int
	logLevel    string
	logFormat   string
	verbose     bool

	cfg config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   serviceName,
		Short: "Construction-site safety assistant",
		Long: `Construction-site safety assistant: generates a risk assessment, related
accident cases and a Toolbox Talk Meeting (TBM) briefing for a work process,
and answers free-text safety questions.

Configuration is read from a JSON file (--config), RAGCON_* environment
variables (.env is loaded if present) and flags; flags win over the
environment, which wins over the config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	flags.StringVar(&opts.baseURL, "base-url", "", "Base URL of the generation service (defaults to RAGCON_BASE_URL)")
	flags.StringVar(&opts.datasetPath, "dataset", "", "Path to the accident-case JSONL dataset (defaults to RAGCON_DATASET_PATH)")
	flags.IntVar(&opts.timeout, "timeout", 0, "Request timeout in seconds")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format: console or json")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Print every item instead of the first few")

	cmd.AddCommand(
		newGenerateCmd(opts, safety.WorkflowHazard),
		newGenerateCmd(opts, safety.WorkflowAccident),
		newGenerateCmd(opts, safety.WorkflowTbm),
		newCheckCmd(opts),
		newChatCmd(opts),
		newCatalogCmd(opts),
	)
	return cmd
}

// load layers flags over the environment over the config file, validates the
// result and fills the remaining gaps with built-in defaults.
func (o *rootOptions) load(cmd *cobra.Command) error {
	var fileCfg config.Config
	if o.configPath != "" {
		loaded, err := config.LoadConfig(o.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		fileCfg = *loaded
	}

	envCfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	var flagCfg config.Config
	if cmd.Flags().Changed("base-url") {
		flagCfg.BaseURL = o.baseURL
	}
	if cmd.Flags().Changed("dataset") {
		flagCfg.DatasetPath = o.datasetPath
	}
	if cmd.Flags().Changed("timeout") {
		flagCfg.Timeout = o.timeout
	}
	if cmd.Flags().Changed("log-level") {
		flagCfg.LogLevel = o.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		flagCfg.LogFormat = o.logFormat
	}
	flagCfg.Verbose = o.verbose || fileCfg.Verbose

	merged := flagCfg.MergeWithDefaults(envCfg)
	merged = merged.MergeWithDefaults(fileCfg)
	if err := merged.Validate(); err != nil {
		return err
	}
	o.cfg = merged.MergeWithDefaults(config.Defaults())

	observability.InitLogger(serviceName, o.cfg.LogLevel, o.cfg.LogFormat)
	return nil
}

func (o *rootOptions) newClient() (*ragcon.Client, error) {
	fetchOpts := fetch.DefaultOptions()
	if o.cfg.Timeout > 0 {
		fetchOpts.Timeout = o.cfg.TimeoutDuration()
	}
	return ragcon.New(o.cfg.BaseURL, fetchOpts)
}

func (o *rootOptions) newSource(ctx context.Context) (dataset.Source, error) {
	if o.cfg.UsesS3() {
		return dataset.NewS3Source(ctx, dataset.S3Config{
			Bucket:    o.cfg.DatasetS3Bucket,
			Key:       o.cfg.DatasetS3Key,
			Region:    o.cfg.DatasetS3Region,
			Endpoint:  o.cfg.DatasetS3Endpoint,
			PathStyle: o.cfg.DatasetS3Endpoint != "",
		})
	}
	return dataset.FileSource{Path: o.cfg.DatasetPath}, nil
}

func (o *rootOptions) newOrchestrator(ctx context.Context) (*safety.Orchestrator, error) {
	client, err := o.newClient()
	if err != nil {
		return nil, err
	}
	src, err := o.newSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	log.Debug().
		Str("base_url", client.BaseURL()).
		Str("dataset", src.Name()).
		Msg("orchestrator configured")

	return safety.New(client, dataset.NewCache(src), &safety.Options{
		Process:   o.cfg.Process,
		Equipment: o.cfg.Equipment,
	}), nil
}

func (o *rootOptions) printer(out io.Writer) *observability.Printer {
	p := observability.NewPrinter(out)
	p.SetVerbose(o.cfg.Verbose)
	return p
}
