package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	v := newViper()
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "bughunt",
		Short: "CLI tool for the bughunt game API",
		Long: `bughunt is a CLI tool for interacting with the bughunt game server.

It covers accounts, game rooms, the lobby, scores and the leaderboard, and can
follow lobby and game events as they happen.

Settings come from flags, BUGHUNT_* environment variables or a YAML config file.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := readConfigFile(v, configFile); err != nil {
				return err
			}

			loaded, err := loadConfig(v)
			if err != nil {
				return err
			}
			cfg = loaded

			// Create HTTP client
			client = NewClient(cfg.ServerURL)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", filepath.Join(configDir(), "config.yaml"), "Config file")
	flags.String(keyServer, v.GetString(keyServer), "Server URL (env: BUGHUNT_SERVER)")
	flags.String(keyProfileFile, v.GetString(keyProfileFile), "Saved profile path (env: BUGHUNT_PROFILE_FILE)")
	flags.StringP(keyOutput, "o", v.GetString(keyOutput), "Output format: text, json")
	flags.BoolP(keyVerbose, "v", false, "Verbose output")

	for _, key := range []string{keyServer, keyProfileFile, keyOutput, keyVerbose} {
		_ = v.BindPFlag(key, flags.Lookup(key))
	}

	// Add subcommands
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newGameCmd())
	rootCmd.AddCommand(newLobbyCmd())
	rootCmd.AddCommand(newScoreCmd())
	rootCmd.AddCommand(newLeaderboardCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
