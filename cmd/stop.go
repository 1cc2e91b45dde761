package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KuschiKuschbert/prepflow-scraper/internal/stopper"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Request a running scrape to stop",
	Long: `stop writes a sentinel file under the storage root. A running scrape
checks it between batches and before each fetch; in-flight requests finish
naturally. The next run clears the flag automatically.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() {
			_ = logger.Sync()
		}()

		if err := stopper.New(cfg.Storage.Root).Stop(); err != nil {
			return err
		}
		fmt.Println("Stop requested. In-flight fetches will finish before the run halts.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
