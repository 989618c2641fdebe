package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mrlokans/notebridge/internal/vault"
)

var brokenStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the vault for broken links and embeds",
	Long: `Parses every markdown note in the vault and reports links or embeds that
point at files which do not exist, for example attachments whose download
failed during import.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := vault.NewVault(cfg.Vault.Dir)
		if err != nil {
			return err
		}

		broken, err := v.Verify()
		if err != nil {
			return err
		}

		if len(broken) == 0 {
			fmt.Println("No broken references found.")
			return nil
		}

		for _, ref := range broken {
			fmt.Printf("%s %s -> %s\n", brokenStyle.Render("broken"), ref.Note, ref.Target)
		}
		return fmt.Errorf("%d broken reference(s) found", len(broken))
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
