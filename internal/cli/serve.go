package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-superchat-bridge/internal/config"
	"github.com/tbourn/go-superchat-bridge/internal/server"
	"github.com/tbourn/go-superchat-bridge/internal/sysutil"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := server.New(ctx, cfg)
			if err != nil {
				return err
			}
			log.Info().
				Str("provider", cfg.ChatProvider).
				Str("db", cfg.DBPath).
				Int("ledger_records", srv.Ledger().Len()).
				Msg("bridge ready")
			return srv.Run(ctx)
		},
	}
}
