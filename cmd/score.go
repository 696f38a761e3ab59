package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abhisek/blueprint/internal/itempool"
	"github.com/abhisek/blueprint/internal/scoring"
	"github.com/abhisek/blueprint/internal/store"
	"github.com/abhisek/blueprint/internal/ui/theme"
)

var scoreCmd = &cobra.Command{
	Use:   "score <template-id>",
	Short: "Score the responses of an assessment",
	Long: `Score an assessment against a blueprint's scoring policy.

The responses file is a JSON object mapping item codes to scores in [0,1].
Items delivered to the assessment count toward the maximum even without a
response. Responses and the resulting summary are persisted.`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().String("assessment", "", "Assessment id (required)")
	scoreCmd.Flags().String("responses", "", "Path to a JSON file of code to score (required)")
	scoreCmd.Flags().Bool("json", false, "Print the summary as JSON")
	_ = scoreCmd.MarkFlagRequired("assessment")
	_ = scoreCmd.MarkFlagRequired("responses")
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	assessmentFlag, _ := cmd.Flags().GetString("assessment")
	responsesPath, _ := cmd.Flags().GetString("responses")
	asJSON, _ := cmd.Flags().GetBool("json")

	assessmentID, err := uuid.Parse(assessmentFlag)
	if err != nil {
		return fmt.Errorf("invalid --assessment: %w", err)
	}
	responses, err := readResponses(responsesPath)
	if err != nil {
		return err
	}

	doc, err := loadBlueprint(args[0])
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	_, records, pool, err := bankPool(ctx, st, doc)
	if err != nil {
		return err
	}
	delivered, err := st.Responses().SeenCodes(ctx, []uuid.UUID{assessmentID})
	if err != nil {
		return err
	}

	idByCode := make(map[string]uuid.UUID, len(records))
	for _, rec := range records {
		idByCode[rec.Code] = rec.ItemID
	}
	for code := range responses {
		if _, ok := idByCode[code]; !ok {
			return fmt.Errorf("response for unknown item %q", code)
		}
	}

	var administered []itempool.Item
	for _, it := range pool {
		_, answered := responses[it.Code]
		if delivered[it.Code] || answered {
			administered = append(administered, it)
		}
	}

	summary := scoring.Score(administered, responses, doc)

	saved := make([]store.Response, 0, len(responses))
	for code, v := range responses {
		saved = append(saved, store.Response{ItemID: idByCode[code], Score: v})
	}
	if err := st.Responses().Save(ctx, assessmentID, saved); err != nil {
		return err
	}
	result, err := st.Results().Save(ctx, assessmentID, doc.TemplateID, summary)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintln(out, theme.Title.Render(doc.Name))
	fmt.Fprintln(out, theme.Subtitle.Render(fmt.Sprintf("assessment %s · %d items scored", assessmentID, len(administered))))
	rows := make([][]string, len(summary.Dimensions))
	for i, d := range summary.Dimensions {
		knockout := ""
		if d.KnockoutTriggered {
			knockout = theme.Failure.Render("knockout")
		}
		rows[i] = []string{
			d.Code,
			strconv.FormatFloat(d.RawScore, 'f', 2, 64),
			strconv.FormatFloat(d.MaxScore, 'f', 2, 64),
			strconv.FormatFloat(d.Percentage, 'f', 2, 64) + "%",
			theme.Bucket(d.Bucket),
			knockout,
		}
	}
	fmt.Fprintln(out, theme.Table([]string{"Dimension", "Raw", "Max", "Score", "Bucket", ""}, rows))
	fmt.Fprintf(out, "Overall %.2f%% %s\n", summary.OverallScore, theme.Bucket(summary.OverallBucket))
	return nil
}

func readResponses(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read responses: %w", err)
	}
	var responses map[string]float64
	if err := json.Unmarshal(data, &responses); err != nil {
		return nil, fmt.Errorf("parse responses %s: %w", path, err)
	}
	return responses, nil
}
