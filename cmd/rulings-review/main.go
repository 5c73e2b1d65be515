// Command rulings-review runs the CBP customs-ruling extraction workflow:
// tiered fetch with caching, regex field extraction, optional LLM-assisted
// extraction, benchmark triage and review exports.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cbp-tools/rulings-review/internal/cache"
	"github.com/cbp-tools/rulings-review/internal/common"
	"github.com/cbp-tools/rulings-review/internal/pipeline"
)

func main() {
	// .env is optional; real environment variables win either way.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(logger)
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	var baseDir string

	root := &cobra.Command{
		Use:           "rulings-review",
		Short:         "CBP ruling extraction: regex + optional LLM, with benchmark comparison",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&baseDir, "base-dir", "",
		"base directory for in/, out/, cache/ (default: current working directory)")

	loadConfig := func() *common.Config {
		if baseDir != "" {
			os.Setenv("RULINGS_BASE_DIR", baseDir)
		}
		return common.LoadConfig()
	}

	root.AddCommand(newExtractCmd(logger, loadConfig))
	root.AddCommand(newFetchersReportCmd(logger, loadConfig))
	root.AddCommand(newClearCacheCmd(logger, loadConfig))
	return root
}

func newExtractCmd(logger *slog.Logger, loadConfig func() *common.Config) *cobra.Command {
	var opts pipeline.Options

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Fetch rulings and extract structured fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pipeline.New(loadConfig(), logger)
			if err != nil {
				return err
			}
			defer p.Close()

			res, err := p.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Rulings processed: %d\n", len(res.RegexRecords))
			fmt.Fprintf(out, "Regex results: %s\n", res.Paths.RegexRaw)
			if res.Paths.LLMRaw != "" {
				fmt.Fprintf(out, "LLM results: %s\n", res.Paths.LLMRaw)
			}
			fmt.Fprintf(out, "Triage report: %s\n", res.Paths.Triage)
			if res.Paths.Review != "" {
				fmt.Fprintf(out, "Excel review: %s\n", res.Paths.Review)
			}
			if res.Paths.FetchersReport != "" {
				fmt.Fprintf(out, "Fetchers report: %s\n", res.Paths.FetchersReport)
			}
			if len(res.Failures) > 0 {
				fmt.Fprintf(out, "Failures (%d):\n", len(res.Failures))
				for id, reason := range res.Failures {
					fmt.Fprintf(out, "  %s: %s\n", id, reason)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.LLM, "llm", false, "also run LLM extraction (requires OPENAI_API_KEY)")
	cmd.Flags().BoolVar(&opts.Excel, "excel", false, "export the review workbook (out/04_review/review.xlsx)")
	cmd.Flags().BoolVar(&opts.FetchersReport, "fetchers-report", false, "also probe every tier and export the comparison workbook")
	return cmd
}

func newFetchersReportCmd(logger *slog.Logger, loadConfig func() *common.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "fetchers-report",
		Short: "Probe all fetch tiers per ruling and export the comparison workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pipeline.New(loadConfig(), logger)
			if err != nil {
				return err
			}
			defer p.Close()

			res, err := p.Run(cmd.Context(), pipeline.Options{FetchersReport: true})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fetchers report: %s\n", res.Paths.FetchersReport)
			return nil
		},
	}
}

func newClearCacheCmd(logger *slog.Logger, loadConfig func() *common.Config) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear-cache",
		Short: "Delete cached ruling texts and raw artifacts for the jurisdiction",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}
			store, err := cache.NewStore(cfg.Paths.CacheDir, cfg.Paths.Jurisdiction, logger)
			if err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("refusing to clear %s without --yes", store.Dir())
			}
			removed, failures := store.Clear()
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached file(s) from %s\n", removed, store.Dir())
			for _, f := range failures {
				fmt.Fprintf(cmd.OutOrStdout(), "  could not remove: %s\n", f)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}
