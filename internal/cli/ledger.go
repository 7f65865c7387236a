package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-superchat-bridge/internal/repo"
	"github.com/tbourn/go-superchat-bridge/internal/sysutil"
)

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the durable superchat ledger",
	}
	cmd.AddCommand(ledgerDumpCmd(), ledgerStatsCmd(), ledgerShowCmd())
	return cmd
}

func dbPathFlag(cmd *cobra.Command, p *string) {
	cmd.Flags().StringVar(p, "db", "", "SQLite ledger path (defaults to $DB_PATH, then superchat.db)")
}

func resolveDBPath(flag string) string {
	return sysutil.FirstNonEmpty(flag, os.Getenv("DB_PATH"), "superchat.db")
}

// openLedgerDB opens and migrates the database for an offline command.
// The returned func closes it.
func openLedgerDB(flag string) (*gorm.DB, func(), error) {
	db, err := repo.OpenSQLite(resolveDBPath(flag))
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		closeDB()
		return nil, nil, err
	}
	return db, closeDB, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ledgerDumpCmd prints every record as one JSON object per line, in append order.
func ledgerDumpCmd() *cobra.Command {
	var dbPath, videoID string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print ledger records as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := openLedgerDB(dbPath)
			if err != nil {
				return err
			}
			defer closeDB()
			recs, err := repo.ListSuperchats(cmd.Context(), db)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, r := range recs {
				if videoID != "" && r.VideoID != videoID {
					continue
				}
				if err := enc.Encode(r); err != nil {
					return err
				}
			}
			return nil
		},
	}
	dbPathFlag(cmd, &dbPath)
	cmd.Flags().StringVar(&videoID, "video", "", "only records for this video id")
	return cmd
}

func ledgerStatsCmd() *cobra.Command {
	var dbPath, videoID string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print record count and highest sequence number",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := openLedgerDB(dbPath)
			if err != nil {
				return err
			}
			defer closeDB()
			n, maxSeq, err := repo.SuperchatsStats(cmd.Context(), db, videoID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "records=%d max_seq=%d\n", n, maxSeq)
			return err
		},
	}
	dbPathFlag(cmd, &dbPath)
	cmd.Flags().StringVar(&videoID, "video", "", "only records for this video id")
	return cmd
}

func ledgerShowCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "show <paymentId>",
		Short: "Print the record for one payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := openLedgerDB(dbPath)
			if err != nil {
				return err
			}
			defer closeDB()

			rec, err := repo.GetSuperchat(cmd.Context(), db, args[0])
			if errors.Is(err, repo.ErrNotFound) {
				return fmt.Errorf("payment %q has not been posted", args[0])
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, rec)
		},
	}
	dbPathFlag(cmd, &dbPath)
	return cmd
}
