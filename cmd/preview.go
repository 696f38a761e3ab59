package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/abhisek/blueprint/internal/selection"
	"github.com/abhisek/blueprint/internal/ui/theme"
)

var previewCmd = &cobra.Command{
	Use:   "preview <template-id>",
	Short: "Draw a deterministic selection from a blueprint's sample pool (no database)",
	Long: `Run the selection engine over the inline sample pool of a blueprint.

This is a stateless developer tool: no database, no exposure tracking.
The same seed always yields the same selection.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().Uint64("seed", selection.DefaultPreviewSeed, "Random seed (0 means the default seed)")
	previewCmd.Flags().Bool("json", false, "Print the preview as JSON")
}

func runPreview(cmd *cobra.Command, args []string) error {
	seed, _ := cmd.Flags().GetUint64("seed")
	asJSON, _ := cmd.Flags().GetBool("json")

	doc, err := loadBlueprint(args[0])
	if err != nil {
		return err
	}
	res := selection.Preview(doc, seed)
	log.Debug("preview drawn", "template_id", doc.TemplateID, "seed", res.Seed, "items", len(res.Items))

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintln(out, theme.Title.Render(res.Blueprint.Name))
	fmt.Fprintln(out, theme.Subtitle.Render(fmt.Sprintf("seed %d · %d of %d items", res.Seed, len(res.Items), res.Blueprint.TotalQuota)))

	rows := make([][]string, len(res.Items))
	for i, it := range res.Items {
		rows[i] = []string{
			strconv.Itoa(i + 1), it.Code, it.Dimension, string(it.Difficulty),
			strconv.FormatFloat(it.Weight, 'f', -1, 64), flag(it.Anchor), flag(it.Critical),
		}
	}
	fmt.Fprintln(out, theme.Table([]string{"#", "Code", "Dimension", "Difficulty", "Weight", "Anchor", "Critical"}, rows))
	return nil
}

func flag(b bool) string {
	if b {
		return "✓"
	}
	return ""
}
