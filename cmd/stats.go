package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/abhisek/blueprint/internal/itempool"
	"github.com/abhisek/blueprint/internal/ui/theme"
)

var statsCmd = &cobra.Command{
	Use:   "stats <template-id>",
	Short: "Show delivery statistics for the latest item bank",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		doc, err := loadBlueprint(args[0])
		if err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ver, records, pool, err := bankPool(ctx, st, doc)
		if err != nil {
			return err
		}
		list, err := st.Bank().Stats(ctx, ver.ID)
		if err != nil {
			return err
		}
		stats := itempool.StatsByItem(list)
		items := itempool.Index(pool)

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, theme.Title.Render(doc.Name))
		fmt.Fprintln(out, theme.Subtitle.Render(fmt.Sprintf("bank %s · v%s · %d items", ver.ID, ver.BlueprintVersion, len(records))))

		rows := make([][]string, 0, len(records))
		for _, rec := range records {
			s := stats[rec.ItemID]
			it := items[rec.Code]
			rows = append(rows, []string{
				rec.Code, rec.Dimension, rec.Difficulty,
				strconv.Itoa(s.Shown), strconv.Itoa(s.Correct),
				ratio(s.Facility, false), ratio(it.ExposureRatio, it.OverExposed()),
			})
		}
		fmt.Fprintln(out, theme.Table([]string{"Code", "Dimension", "Difficulty", "Shown", "Correct", "Facility", "Exposure"}, rows))
		return nil
	},
}

func ratio(v *float64, alert bool) string {
	if v == nil {
		return ""
	}
	s := strconv.FormatFloat(*v, 'f', 2, 64)
	if alert {
		return theme.Failure.Render(s)
	}
	return s
}
