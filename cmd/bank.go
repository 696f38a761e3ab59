package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/blueprint/internal/itempool"
	"github.com/abhisek/blueprint/internal/ui/theme"
)

var bankCmd = &cobra.Command{
	Use:   "bank",
	Short: "Manage item banks",
}

var bankImportCmd = &cobra.Command{
	Use:   "import <template-id>",
	Short: "Import a blueprint's sample pool as a new item-bank version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		doc, err := loadBlueprint(args[0])
		if err != nil {
			return err
		}
		if len(doc.SamplePool) == 0 {
			return fmt.Errorf("blueprint %s has no sample pool to import", doc.TemplateID)
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ver, err := st.Versions().Create(ctx, doc.TemplateID, doc.Name, doc.Version)
		if err != nil {
			return err
		}
		records, err := st.Bank().Import(ctx, ver.ID, itempool.SampleBankRecords(doc))
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), theme.Title.Render(fmt.Sprintf("Imported %d items for %s v%s", len(records), doc.TemplateID, doc.Version)))
		fmt.Fprintln(cmd.OutOrStdout(), theme.Hint.Render("version "+ver.ID.String()))
		return nil
	},
}

func init() {
	bankCmd.AddCommand(bankImportCmd)
}
