package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-superchat-bridge/internal/repo"
)

// sessionsCmd reads the monitor snapshots a running bridge persists, e.g. to
// see which sessions the next start will resume.
func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect persisted chat monitor sessions",
	}

	var listDB string
	list := &cobra.Command{
		Use:   "list",
		Short: "Print every monitor snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := openLedgerDB(listDB)
			if err != nil {
				return err
			}
			defer closeDB()

			sessions, err := repo.ListMonitorSessions(cmd.Context(), db)
			if err != nil {
				return err
			}
			for _, s := range sessions {
				resumable := ""
				if s.Status.Active() {
					resumable = " (resumes on start)"
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s%s\n", s.VideoID, s.Status, resumable); err != nil {
					return err
				}
			}
			return nil
		},
	}
	dbPathFlag(list, &listDB)

	var showDB string
	show := &cobra.Command{
		Use:   "show <videoId>",
		Short: "Print the snapshot for one video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := openLedgerDB(showDB)
			if err != nil {
				return err
			}
			defer closeDB()

			s, err := repo.GetMonitorSession(cmd.Context(), db, args[0])
			if errors.Is(err, repo.ErrNotFound) {
				return fmt.Errorf("no monitor session for video %q", args[0])
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, s)
		},
	}
	dbPathFlag(show, &showDB)

	cmd.AddCommand(list, show)
	return cmd
}
