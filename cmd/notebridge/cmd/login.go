package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrlokans/notebridge/internal/oauth2"
)

var loginManual bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with your Microsoft account",
	Long: `Starts the OAuth2 authorization flow. By default a local callback server
receives the authorization code; with --manual the code is pasted into the
terminal instead (useful on headless machines).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.OAuth2.ClientID == "" {
			return fmt.Errorf("OAUTH_CLIENT_ID is not set: register an app at https://portal.azure.com and export its client ID")
		}

		store, err := openTokenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		handler := oauth2.NewFlowHandler(newProvider(), store)

		if loginManual {
			return runManualLogin(cmd, handler)
		}

		flowCfg := oauth2.DefaultCLIFlowConfig(cfg.OAuth2.CallbackPort)
		flowCfg.Timeout = cfg.OAuth2.AuthTimeout
		_, err = handler.RunCLIFlow(cmd.Context(), flowCfg)
		return err
	},
}

func runManualLogin(cmd *cobra.Command, handler *oauth2.FlowHandler) error {
	authURL, codeVerifier, err := handler.GetManualAuthURL()
	if err != nil {
		return err
	}

	fmt.Println("Open this URL in your browser and authorize access:")
	fmt.Println()
	fmt.Println(authURL)
	fmt.Println()
	fmt.Print("Paste the authorization code here: ")

	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("no authorization code provided")
	}

	result, err := handler.RunManualFlow(cmd.Context(), code, codeVerifier, nil)
	if err != nil {
		return err
	}
	fmt.Printf("Successfully authenticated account: %s\n", result.AccountID)
	return nil
}

func init() {
	loginCmd.Flags().BoolVar(&loginManual, "manual", false, "paste the authorization code manually instead of using a local callback server")
	rootCmd.AddCommand(loginCmd)
}
