package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		Vault
		Database
		Graph
		OAuth2
		Fetch
		Attachments
		Import
		Sync
		Logging
	}

	Vault struct {
		Dir            string // Root directory of the output vault
		AttachmentsDir string // Subfolder for downloaded attachments
	}
	Database struct {
		StatePath string
		TokenPath string
	}
	Graph struct {
		BaseURL string // Microsoft Graph API root
	}
	OAuth2 struct {
		ClientID     string
		CallbackPort int
		AuthTimeout  time.Duration
	}
	Fetch struct {
		MaxRetries        int           // Bounded retry budget per request
		RetryDelay        time.Duration // Delay between bounded retries
		RateLimitDefault  time.Duration // Backoff when no Retry-After is given
		RateLimitMaxWaits int           // 0 = retry throttled requests indefinitely
		StallTimeout      time.Duration // Abort when no fetch succeeded for this long
		RequestTimeout    time.Duration
	}
	Attachments struct {
		BatchSize     int           // Downloads between pacing pauses
		PauseDuration time.Duration // Pause inserted after each batch
	}
	Import struct {
		MaxConsecutiveFailures int  // Circuit breaker threshold
		IncludeIncompatible    bool // Import attachment types Obsidian cannot render
	}
	Sync struct {
		Schedule string // Cron format: "0 * * * *" = hourly
	}
	Logging struct {
		Level string
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("vault_dir", DefaultVaultDir)
	v.SetDefault("vault_attachments_dir", "attachments")
	v.SetDefault("state_path", DefaultStatePath)
	v.SetDefault("token_path", DefaultTokenPath)
	v.SetDefault("graph_base_url", "https://graph.microsoft.com/v1.0")
	v.SetDefault("oauth_client_id", "")
	v.SetDefault("oauth_callback_port", 8189)
	v.SetDefault("oauth_auth_timeout", "5m")

	// Fetch defaults
	v.SetDefault("fetch_max_retries", 3)
	v.SetDefault("fetch_retry_delay", "1s")
	v.SetDefault("fetch_rate_limit_default", "15s")
	v.SetDefault("fetch_rate_limit_max_waits", 0)
	v.SetDefault("fetch_stall_timeout", "5m")
	v.SetDefault("fetch_request_timeout", "60s")

	// Attachment pacing defaults
	v.SetDefault("attachments_batch_size", 7)
	v.SetDefault("attachments_pause", "5s")

	// Import defaults
	v.SetDefault("import_max_consecutive_failures", 5)
	v.SetDefault("import_include_incompatible", false)

	// Scheduled sync defaults
	v.SetDefault("sync_schedule", "0 * * * *") // Hourly at :00

	v.SetDefault("log_level", "info")

	return &Config{
		Vault: Vault{
			Dir:            v.GetString("VAULT_DIR"),
			AttachmentsDir: v.GetString("VAULT_ATTACHMENTS_DIR"),
		},
		Database: Database{
			StatePath: v.GetString("STATE_PATH"),
			TokenPath: v.GetString("TOKEN_PATH"),
		},
		Graph: Graph{
			BaseURL: v.GetString("GRAPH_BASE_URL"),
		},
		OAuth2: OAuth2{
			ClientID:     v.GetString("OAUTH_CLIENT_ID"),
			CallbackPort: v.GetInt("OAUTH_CALLBACK_PORT"),
			AuthTimeout:  v.GetDuration("OAUTH_AUTH_TIMEOUT"),
		},
		Fetch: Fetch{
			MaxRetries:        v.GetInt("FETCH_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("FETCH_RETRY_DELAY"),
			RateLimitDefault:  v.GetDuration("FETCH_RATE_LIMIT_DEFAULT"),
			RateLimitMaxWaits: v.GetInt("FETCH_RATE_LIMIT_MAX_WAITS"),
			StallTimeout:      v.GetDuration("FETCH_STALL_TIMEOUT"),
			RequestTimeout:    v.GetDuration("FETCH_REQUEST_TIMEOUT"),
		},
		Attachments: Attachments{
			BatchSize:     v.GetInt("ATTACHMENTS_BATCH_SIZE"),
			PauseDuration: v.GetDuration("ATTACHMENTS_PAUSE"),
		},
		Import: Import{
			MaxConsecutiveFailures: v.GetInt("IMPORT_MAX_CONSECUTIVE_FAILURES"),
			IncludeIncompatible:    v.GetBool("IMPORT_INCLUDE_INCOMPATIBLE"),
		},
		Sync: Sync{
			Schedule: v.GetString("SYNC_SCHEDULE"),
		},
		Logging: Logging{
			Level: v.GetString("LOG_LEVEL"),
		},
	}
}
