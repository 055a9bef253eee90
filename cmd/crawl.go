package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stylistiq/fashionbot/internal/app"
)

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Run a single crawl session and exit",
		Long: `Runs one discovery-crawl-index session against the configured
stores and vector index, prints the session report, and exits. Useful for
seeding the index before starting the service.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := app.Build(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("build application: %w", err)
			}
			defer a.Close()

			report := a.RunSession(cmd.Context())
			a.Logger().Info("crawl finished",
				zap.Int("domains_discovered", report.DomainsDiscovered),
				zap.Int("domains_crawled", report.DomainsCrawled),
				zap.Int("products_indexed", report.ProductsIndexed),
				zap.Int("products_skipped", report.ProductsSkipped),
				zap.Int("products_failed", report.ProductsFailed),
				zap.Bool("budget_exhausted", report.BudgetExhausted),
			)
			return nil
		},
	}
}
