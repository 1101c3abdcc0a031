package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"saa-question-importer/internal/app"
	"saa-question-importer/internal/config"
)

// NewImportCmd fetches the dump once and writes the dataset.
func NewImportCmd(cfg *config.Config) *cobra.Command {
	var (
		location string
		out      string
		workers  int
		xlsxPath string
		dbPath   string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Fetch, parse and classify the exam dump, then write the question bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := *cfg
			flags := cmd.Flags()
			if flags.Changed("source") {
				c.Source.Location = location
			}
			if flags.Changed("out") {
				c.Output.Dir = out
			}
			if flags.Changed("workers") {
				c.Import.Workers = workers
			}
			if flags.Changed("xlsx") {
				c.Output.XLSX = xlsxPath
			}
			if flags.Changed("sqlite") {
				c.Output.SQLite = dbPath
			}

			ctx := cmd.Context()
			b, err := openBackends(ctx, c)
			if err != nil {
				return err
			}
			defer b.Close()

			var extra []app.Publisher
			if b.redis != nil {
				extra = append(extra, b.questionCache(c))
			}
			importer, err := newImporter(ctx, c, b, extra...)
			if err != nil {
				return err
			}
			report, err := importer.Run(ctx, nil)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "run %s: %d blocks, %d questions, %d skipped\n",
				report.RunID, report.BlocksSeen, report.Produced, report.Skipped)
			topics := make([]string, 0, len(report.TopicCounts))
			for t := range report.TopicCounts {
				topics = append(topics, t)
			}
			sort.Strings(topics)
			for _, t := range topics {
				fmt.Fprintf(w, "  %-22s %d\n", t, report.TopicCounts[t])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&location, "source", "", "answers document URL or local path (default: upstream repository)")
	cmd.Flags().StringVar(&out, "out", "", "output directory for the JSON dataset")
	cmd.Flags().IntVar(&workers, "workers", 1, "parallel block parsers")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also export a workbook to this path")
	cmd.Flags().StringVar(&dbPath, "sqlite", "", "also publish to this SQLite database")
	return cmd
}
