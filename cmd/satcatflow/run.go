package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"satcatflow/config"
	"satcatflow/logger"
	"satcatflow/pipeline"
	"satcatflow/writer"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, normalize and emit the satellite catalog once",
	RunE:  runPipeline,
}

var (
	runMaxRecords int
	runSinks      []string
	runOutputDir  string
	runNoPause    bool
)

func init() {
	runCmd.Flags().IntVar(&runMaxRecords, "max-records", -1, "override pipeline.max_records")
	runCmd.Flags().StringSliceVar(&runSinks, "sinks", nil, "override pipeline.sinks (json, spreadsheet, parquet)")
	runCmd.Flags().StringVar(&runOutputDir, "output-dir", "", "override output.dir")
	runCmd.Flags().BoolVar(&runNoPause, "no-pause", false, "disable rate limit pauses between batches")

	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	log := logger.GetLogger()

	cfg, err := config.LoadConfig(config.ResolvePath(configPath, "config/config.yml"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		return fmt.Errorf("failed to configure logger: %w", err)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Satcatflow.Name,
		"version": cfg.Satcatflow.Version,
		"env":     config.AppEnvironment(),
	}).Info("starting satcatflow")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cw := cfg.Metrics.CloudWatch; cw.Enabled {
		logger.InitCloudWatch(ctx, cw.Region, cw.Namespace, cw.Dashboard)
	}

	var opts []pipeline.Option
	if cfg.Storage.S3.Enabled {
		up, err := writer.NewUploader(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to create S3 uploader: %w", err)
		}
		opts = append(opts, pipeline.WithUploader(up))
	}

	sum, err := pipeline.New(cfg, opts...).Run(ctx)
	if err != nil {
		return err
	}

	log.WithComponent("main").WithFields(logger.Fields{
		"run_id":  sum.RunID,
		"written": sum.Written,
		"files":   strings.Join(sum.Files, ","),
	}).Info("satcatflow finished")
	return nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("max-records") {
		cfg.Pipeline.MaxRecords = runMaxRecords
	}
	if cmd.Flags().Changed("sinks") {
		sinks := make([]string, 0, len(runSinks))
		for _, s := range runSinks {
			sinks = append(sinks, strings.ToLower(strings.TrimSpace(s)))
		}
		cfg.Pipeline.Sinks = sinks
	}
	if runOutputDir != "" {
		cfg.Output.Dir = runOutputDir
	}
	if runNoPause {
		cfg.Pipeline.RateLimitPause = 0
	}
}
