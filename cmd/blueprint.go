package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/abhisek/blueprint/internal/blueprint"
	"github.com/abhisek/blueprint/internal/ui/theme"
)

var blueprintListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available blueprints",
	RunE: func(cmd *cobra.Command, args []string) error {
		summaries, err := registry.Summaries()
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(summaries))
		for _, s := range summaries {
			rows = append(rows, []string{
				s.TemplateID, s.Name, s.Version,
				strconv.Itoa(s.Anchors), strconv.Itoa(s.TotalQuota),
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), theme.Table([]string{"Template", "Name", "Version", "Anchors", "Items"}, rows))
		return nil
	},
}

var blueprintValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a blueprint file (JSON or YAML)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		format, ok := blueprint.FormatForPath(path)
		if !ok {
			return fmt.Errorf("unsupported blueprint file %s: want .json, .yaml or .yml", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read blueprint: %w", err)
		}
		doc, err := blueprint.Parse(data, format)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), theme.Failure.Render("invalid"), path)
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s v%s, %d items)\n",
			theme.Bucket("GREEN"), path, doc.TemplateID, doc.Version, doc.TotalQuota())
		return nil
	},
}

var blueprintShowCmd = &cobra.Command{
	Use:   "show <template-id>",
	Short: "Show the quotas and scoring policy of a blueprint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadBlueprint(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, theme.Title.Render(doc.Name))
		fmt.Fprintln(out, theme.Subtitle.Render(fmt.Sprintf("%s v%s · %d anchors · %d items", doc.TemplateID, doc.Version, doc.Anchors, doc.TotalQuota())))

		rows := make([][]string, 0, len(doc.Dimensions))
		for _, q := range doc.Dimensions {
			policy, _ := doc.Scoring.Policy(q.Code)
			critical := "-"
			if p, ok := doc.Critical.Policy(q.Code); ok {
				critical = string(p.Mode)
			}
			rows = append(rows, []string{
				q.Code,
				strconv.Itoa(q.Easy), strconv.Itoa(q.Medium), strconv.Itoa(q.Hard),
				strconv.Itoa(q.Anchors),
				strconv.FormatFloat(policy.Weight, 'f', 2, 64),
				critical,
			})
		}
		fmt.Fprintln(out, theme.Table([]string{"Dimension", "Easy", "Medium", "Hard", "Anchors", "Weight", "Critical"}, rows))

		buckets := ""
		for i, b := range doc.Scoring.Buckets {
			if i > 0 {
				buckets += "  "
			}
			buckets += fmt.Sprintf("%s≥%g", theme.Bucket(b.Code), b.Min)
		}
		fmt.Fprintln(out, buckets)
		fmt.Fprintln(out, theme.Hint.Render("knockout → "+doc.Scoring.OverallKnockoutBucket))
		return nil
	},
}
