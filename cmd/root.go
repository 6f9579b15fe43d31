package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ragis-group/ragis-cli/internal"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	apiBase string
	dataDir string
	version string = "dev"
	commit  string = "unknown"
	date    string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ragis",
	Short: "Terminal client for the RAGIS retrieval-augmented chat service",
	Long: `A command-line client for the RAGIS RAG service.

Chat with your document base, manage saved conversations, upload
documents, and administer service parameters and users — all over the
service's HTTP API.

Quick Start:
  ragis login <username>        # Authenticate against the service
  ragis chat                    # Start an interactive conversation
  ragis history list            # Browse saved conversations
  ragis upload contract.pdf     # Add a document to the index

Admin commands (params, models, users) require an admin account.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiBase, "api", "", "Base URL of the RAGIS service (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory for local state (default ~/.ragis)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// resolveDataDir returns the local state directory, honoring --data-dir.
func resolveDataDir() (string, error) {
	if dataDir != "" {
		return dataDir, nil
	}
	dir, err := internal.DefaultDataDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return dir, nil
}

// loadConfig reads the config file from the data dir, applying the
// --api override.
func loadConfig() (*internal.Config, string, error) {
	dir, err := resolveDataDir()
	if err != nil {
		return nil, "", err
	}
	cfg, err := internal.LoadConfig(filepath.Join(dir, internal.ConfigFileName))
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	if apiBase != "" {
		cfg.APIBase = apiBase
	}
	return cfg, dir, nil
}

// newClient builds an API client with the stored session token, when
// one exists. The session may be nil (logged out).
func newClient() (*internal.Client, *internal.AuthSession, string, error) {
	cfg, dir, err := loadConfig()
	if err != nil {
		return nil, nil, "", err
	}
	client := internal.NewClient(cfg.APIBase, cfg.Timeout())
	session := internal.LoadAuthSession(filepath.Join(dir, internal.SessionFileName))
	if session != nil {
		client.SetToken(session.Token)
	}
	return client, session, dir, nil
}

// requireLogin is newClient for commands that need a bearer token.
func requireLogin() (*internal.Client, *internal.AuthSession, string, error) {
	client, session, dir, err := newClient()
	if err != nil {
		return nil, nil, "", err
	}
	if session == nil {
		return nil, nil, "", fmt.Errorf("not logged in (run `ragis login <username>` first)")
	}
	return client, session, dir, nil
}
