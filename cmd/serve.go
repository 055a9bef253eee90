package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stylistiq/fashionbot/internal/app"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the crawl scheduler and the retrieval API",
		Long: `Starts the full service: crawl sessions run on the configured
interval and the HTTP API serves grounded answers over the shared index.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := app.Build(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("build application: %w", err)
			}
			return a.Run(cmd.Context())
		},
	}
}
