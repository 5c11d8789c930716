package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikeboe/usecase-scout/pkg/app"
	"github.com/mikeboe/usecase-scout/pkg/config"
	"github.com/mikeboe/usecase-scout/pkg/database"
	"github.com/mikeboe/usecase-scout/pkg/pipeline"
)

var (
	company    string
	seedURL    string
	depth      int
	withCorpus bool
)

func main() {
	cfg := config.Load()
	// Logs go to stderr so the JSON on stdout stays parseable.
	logger := config.NewLoggerTo(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "usecase-scout",
		Short: "Research a company and propose AI use cases",
		Long: `usecase-scout searches the web for a company, reads its Wikipedia article and
official website, and turns what it finds into a business profile, AI use
cases and implementation resources.`,
		SilenceUsage: true,
	}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Collect Wikipedia and website text for a company",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(company) == "" {
				return fmt.Errorf("--company must not be empty")
			}
			info := app.NewEngine(cfg, logger).GetCompanyInfo(cmd.Context(), company)
			return writeJSON(cmd.OutOrStdout(), info)
		},
	}
	infoCmd.Flags().StringVarP(&company, "company", "c", "", "The company name")
	_ = infoCmd.MarkFlagRequired("company")

	crawlCmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl a website and print the extracted text",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(seedURL) == "" {
				return fmt.Errorf("--url must not be empty")
			}
			text := app.NewCrawler(cfg, logger).CrawlText(cmd.Context(), seedURL, depth)
			_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
	crawlCmd.Flags().StringVarP(&seedURL, "url", "u", "", "The seed URL")
	crawlCmd.Flags().IntVarP(&depth, "depth", "d", cfg.CrawlMaxDepth, "Maximum link depth from the seed")
	_ = crawlCmd.MarkFlagRequired("url")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full research and use-case pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("company") {
				input, err := prompt(cmd.InOrStdin(), cmd.ErrOrStderr(), "Enter company name: ")
				if err != nil {
					return err
				}
				company = input
			}
			if strings.TrimSpace(company) == "" {
				return fmt.Errorf("company cannot be empty")
			}
			return runPipeline(cmd, cfg, logger)
		},
	}
	runCmd.Flags().StringVarP(&company, "company", "c", "", "The company name")
	runCmd.Flags().BoolVar(&withCorpus, "index", false, "Store the researched text in the vector database")

	rootCmd.AddCommand(infoCmd, crawlCmd, runCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

func runPipeline(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	ctx := cmd.Context()
	logger.Info("Starting pipeline", "company", company)

	model, err := app.NewModel(ctx, cfg)
	if err != nil {
		return err
	}

	var indexer pipeline.CorpusIndexer
	if withCorpus {
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		ix, err := app.NewCorpus(ctx, cfg, db, logger)
		if err != nil {
			return err
		}
		indexer = ix
	}

	p := app.PipelineFactory(cfg, model, indexer)(logger)
	p.OnStateUpdate = func(state pipeline.State) {
		logger.Debug("Pipeline state", "stage", state.Stage, "use_cases", state.UseCases, "enriched", state.Enriched)
	}

	report, err := p.Run(ctx, company)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), report)
}

func prompt(in io.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
