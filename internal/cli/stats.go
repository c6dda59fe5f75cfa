package cli

import (
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

// NewStatsCmd создаёт команду статистики библиотеки.
func NewStatsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show library statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := clientFn().Stats()
			if err != nil {
				return err
			}

			categories := make([]string, 0, len(stats.Categories))
			for c := range stats.Categories {
				categories = append(categories, c)
			}
			sort.Strings(categories)

			rows := [][]string{
				{"prompts", strconv.Itoa(stats.TotalPrompts)},
				{"usage", strconv.Itoa(stats.TotalUsage)},
			}
			for _, c := range categories {
				rows = append(rows, []string{"category:" + c, strconv.Itoa(stats.Categories[c])})
			}

			outputFn().Print([]string{"METRIC", "VALUE"}, rows, stats)
			return nil
		},
	}
}
