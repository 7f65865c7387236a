// Package cli defines the bridge's command line: serve runs the HTTP bridge,
// ledger inspects the durable dedup ledger offline.
package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-superchat-bridge/internal/server"
)

// Root builds the command tree. Running it without a subcommand serves.
func Root() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "superchat-bridge",
		Short:         "Post settled crypto payments to live chat, exactly once per payment",
		Version:       server.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A .env file is a local convenience; real deployments set the environment.
			if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
				log.Warn().Err(err).Str("file", envFile).Msg("env file not loaded")
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read before configuration is loaded")

	serve := serveCmd()
	root.RunE = serve.RunE
	root.AddCommand(serve, ledgerCmd(), sessionsCmd())
	return root
}

// Execute runs the root command with os.Args.
func Execute() {
	if err := Root().Execute(); err != nil {
		log.Fatal().Err(err).Send()
	}
}
