package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mrlokans/notebridge/internal/attachments"
	"github.com/mrlokans/notebridge/internal/database"
	"github.com/mrlokans/notebridge/internal/database/state"
	"github.com/mrlokans/notebridge/internal/hierarchy"
	"github.com/mrlokans/notebridge/internal/importer"
	"github.com/mrlokans/notebridge/internal/progress"
	"github.com/mrlokans/notebridge/internal/transform"
	"github.com/mrlokans/notebridge/internal/vault"
)

var (
	importSections     []string
	importNoSkip       bool
	importIncompatible bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import notebook pages into the vault",
	Long: `Runs a full migration: discovers the notebook hierarchy, fetches every
page of the selected sections, converts the content to markdown and writes
it into the vault. Pages imported by a previous run are skipped, so an
interrupted import can simply be restarted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		_, err := runImport(ctx, progress.NewConsole(ctx))
		return err
	},
}

// runImport wires one import run from configuration. Shared with the sync
// scheduler.
func runImport(ctx context.Context, reporter progress.Reporter) (*importer.Summary, error) {
	store, err := openTokenStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	client, err := newGraphClient(store)
	if err != nil {
		return nil, err
	}

	db, err := database.NewDatabase(cfg.Database.StatePath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	v, err := vault.NewVault(cfg.Vault.Dir)
	if err != nil {
		return nil, err
	}

	fetcher := attachments.NewFetcher(client, v, cfg.Attachments.BatchSize, cfg.Attachments.PauseDuration)
	transformer := transform.NewTransformer(fetcher, transform.Options{
		IncludeIncompatible: importIncompatible || cfg.Import.IncludeIncompatible,
	})

	runner := importer.NewRunner(
		client,
		hierarchy.NewIndexer(client, cfg.Graph.BaseURL),
		transformer,
		v,
		state.NewRepository(db.DB),
		reporter,
		importer.Options{
			BaseURL:                cfg.Graph.BaseURL,
			SectionIDs:             importSections,
			NoSkip:                 importNoSkip,
			MaxConsecutiveFailures: cfg.Import.MaxConsecutiveFailures,
			IncludeIncompatible:    importIncompatible || cfg.Import.IncludeIncompatible,
			AttachmentDir:          cfg.Vault.AttachmentsDir,
		},
	)
	return runner.Run(ctx)
}

func init() {
	importCmd.Flags().StringSliceVar(&importSections, "sections", nil, "section IDs to import (default: all sections)")
	importCmd.Flags().BoolVar(&importNoSkip, "no-skip", false, "re-import pages that were already imported")
	importCmd.Flags().BoolVar(&importIncompatible, "include-incompatible", false, "also download attachment types the vault cannot preview")
	rootCmd.AddCommand(importCmd)
}
