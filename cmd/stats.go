package cmd

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/KuschiKuschbert/prepflow-scraper/internal/progress"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/sites"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/storage"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show stored recipe totals and per-source progress",
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
		stats, err := engine.Statistics()
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Source", "Recipes", "Discovered", "Scraped", "Failed", "Remaining", "ETA"})

		tracker := progress.NewTracker(cfg.Storage.Root, nil, logger)
		names := make([]string, 0, len(stats.BySource))
		for name := range stats.BySource {
			names = append(names, name)
		}
		for _, name := range sites.Names() {
			if _, ok := stats.BySource[name]; !ok {
				names = append(names, name)
			}
		}
		sort.Strings(names)

		for _, name := range names {
			row := table.Row{name, stats.BySource[name], "-", "-", "-", "-", "-"}
			if p, err := tracker.Load(name); err == nil && p != nil {
				st := tracker.Statistics(p)
				row = table.Row{name, stats.BySource[name],
					st.Discovered, st.Scraped, st.Failed, st.Remaining,
					st.ETA.Round(time.Second).String()}
			}
			t.AppendRow(row)
		}
		t.AppendFooter(table.Row{"Total", stats.TotalRecipes, "", "", "", "", ""})
		t.Render()

		if !stats.LastUpdated.IsZero() {
			fmt.Printf("Last updated: %s\n", stats.LastUpdated.Format("2006-01-02 15:04:05 MST"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
