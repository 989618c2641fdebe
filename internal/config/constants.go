package config

// Default paths for local storage
const (
	// DefaultStatePath is the default path for the import-state database
	DefaultStatePath = "./notebridge-state.db"

	// DefaultTokenPath is the default path for the OAuth token database
	DefaultTokenPath = "./notebridge-tokens.db"

	// DefaultVaultDir is the default output vault directory
	DefaultVaultDir = "./vault"
)
