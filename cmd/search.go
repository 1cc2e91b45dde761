package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/KuschiKuschbert/prepflow-scraper/internal/storage"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <ingredient>",
	Short: "Find stored recipes using an ingredient",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() {
			_ = logger.Sync()
		}()

		engine, err := storage.New(cfg.Storage.Root, nil, logger)
		if err != nil {
			return err
		}
		matches, err := engine.SearchByIngredient(args[0], searchLimit)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			fmt.Printf("No recipes found using %q\n", args[0])
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Recipe", "Source", "Ingredients", "URL"})
		for _, r := range matches {
			t.AppendRow(table.Row{r.Name, r.Source, len(r.Ingredients), r.SourceURL})
		}
		t.Render()
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "maximum number of results")
	rootCmd.AddCommand(searchCmd)
}
