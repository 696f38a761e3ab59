package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abhisek/blueprint/internal/selection"
	"github.com/abhisek/blueprint/internal/ui/theme"
)

var selectCmd = &cobra.Command{
	Use:   "select <template-id>",
	Short: "Select the items of an assessment from the imported item bank",
	Long: `Select items for one assessment from the latest imported item bank.

Items already delivered to the --prior assessments, and codes passed with
--seen, are excluded. The delivery is recorded so exposure ratios stay current.`,
	Args: cobra.ExactArgs(1),
	RunE: runSelect,
}

func init() {
	selectCmd.Flags().String("assessment", "", "Assessment id (default: a new random id)")
	selectCmd.Flags().StringSlice("seen", nil, "Item codes to exclude")
	selectCmd.Flags().StringSlice("prior", nil, "Earlier assessment ids of the same respondent")
	selectCmd.Flags().Uint64("seed", 0, "Random seed (0 draws fresh randomness)")
	selectCmd.Flags().Bool("json", false, "Print the selection as JSON")
}

func runSelect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	assessmentFlag, _ := cmd.Flags().GetString("assessment")
	seenFlag, _ := cmd.Flags().GetStringSlice("seen")
	priorFlag, _ := cmd.Flags().GetStringSlice("prior")
	seedFlag, _ := cmd.Flags().GetUint64("seed")
	asJSON, _ := cmd.Flags().GetBool("json")

	assessmentID := uuid.New()
	if assessmentFlag != "" {
		id, err := uuid.Parse(assessmentFlag)
		if err != nil {
			return fmt.Errorf("invalid --assessment: %w", err)
		}
		assessmentID = id
	}
	prior, err := parseIDs(priorFlag)
	if err != nil {
		return fmt.Errorf("invalid --prior: %w", err)
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

	ver, records, pool, err := bankPool(ctx, st, doc)
	if err != nil {
		return err
	}

	seen, err := st.Responses().SeenCodes(ctx, prior)
	if err != nil {
		return err
	}
	for _, code := range seenFlag {
		seen[code] = true
	}

	var seed *uint64
	if seedFlag != 0 {
		seed = &seedFlag
	}
	selected := selection.Select(doc, pool, seen, selection.NewRand(seed))
	if len(selected) < doc.TotalQuota() {
		log.Warn("selection short of quota", "template_id", doc.TemplateID, "selected", len(selected), "quota", doc.TotalQuota())
	}

	idByCode := make(map[string]uuid.UUID, len(records))
	for _, rec := range records {
		idByCode[rec.Code] = rec.ItemID
	}
	itemIDs := make([]uuid.UUID, len(selected))
	for i, it := range selected {
		itemIDs[i] = idByCode[it.Code]
	}
	if err := st.Bank().RecordAdministration(ctx, ver.ID, assessmentID, itemIDs); err != nil {
		return err
	}
	log.Info("assessment selected", "template_id", doc.TemplateID, "assessment_id", assessmentID, "items", len(selected))

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			AssessmentID uuid.UUID `json:"assessment_id"`
			VersionID    uuid.UUID `json:"version_id"`
			Items        any       `json:"selected_items"`
		}{assessmentID, ver.ID, selected})
	}

	fmt.Fprintln(out, theme.Title.Render(doc.Name))
	fmt.Fprintln(out, theme.Subtitle.Render(fmt.Sprintf("assessment %s · %d of %d items", assessmentID, len(selected), doc.TotalQuota())))
	rows := make([][]string, len(selected))
	for i, it := range selected {
		exposure := ""
		if it.ExposureRatio != nil {
			exposure = strconv.FormatFloat(*it.ExposureRatio, 'f', 2, 64)
		}
		rows[i] = []string{strconv.Itoa(i + 1), it.Code, it.Dimension, string(it.Difficulty), flag(it.Anchor), flag(it.Critical), exposure}
	}
	fmt.Fprintln(out, theme.Table([]string{"#", "Code", "Dimension", "Difficulty", "Anchor", "Critical", "Exposure"}, rows))
	return nil
}

func parseIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
