package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mrlokans/notebridge/internal/config"
	"github.com/mrlokans/notebridge/internal/graph"
	"github.com/mrlokans/notebridge/internal/logger"
	"github.com/mrlokans/notebridge/internal/oauth2"
	"github.com/mrlokans/notebridge/internal/oauth2/providers"
	"github.com/mrlokans/notebridge/internal/tokenstore"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "notebridge",
	Short: "Migrate OneNote notebooks into a local markdown vault",
	Long: `notebridge discovers your OneNote notebooks through the Microsoft Graph
API and migrates their pages into a folder of markdown files, preserving
the notebook/section/page hierarchy, attachments and formatting.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env file is fine; the environment may be set directly.
		_ = godotenv.Load()
		cfg = config.NewConfig()
		return logger.Init(cfg.Logging.Level)
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openTokenStore opens the credential database.
func openTokenStore() (*tokenstore.TokenStore, error) {
	return tokenstore.New(cfg.Database.TokenPath)
}

func newProvider() *providers.MicrosoftProvider {
	return providers.NewMicrosoftProvider(cfg.OAuth2.ClientID)
}

// newGraphClient builds the authenticated fetch client from the stored
// credential. Fails with a login hint when no credential exists.
func newGraphClient(store *tokenstore.TokenStore) (*graph.Client, error) {
	tokens, err := oauth2.ProviderTokenSource(newProvider(), store)
	if err != nil {
		return nil, err
	}
	return graph.NewClient(tokens, graph.NewSessionHealth(), graph.Options{
		MaxRetries:        cfg.Fetch.MaxRetries,
		RetryDelay:        cfg.Fetch.RetryDelay,
		RateLimitDefault:  cfg.Fetch.RateLimitDefault,
		RateLimitMaxWaits: cfg.Fetch.RateLimitMaxWaits,
		StallTimeout:      cfg.Fetch.StallTimeout,
		RequestTimeout:    cfg.Fetch.RequestTimeout,
	}), nil
}
