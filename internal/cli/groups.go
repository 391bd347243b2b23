package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tOgg1/foldline/internal/store"
)

func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	if err := a.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return store.Open(ctx, a.cfg.DatabasePath(), a.cfg.Database.BusyTimeoutMs)
}

func newGroupsCmd(a *app) *cobra.Command {
	var (
		room   string
		latest bool
	)

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Recompute and snapshot the groups of an imported room",
		Long: `Load the stored timeline of a room, recompute its groups, save them as a new
snapshot and print them. With --latest, print the most recent snapshot instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			roomID, err := a.resolveRoom(room, "")
			if err != nil {
				return err
			}

			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			if latest {
				snap, err := s.LatestSnapshot(ctx, roomID)
				if err != nil {
					return fmt.Errorf("%s: %w", roomID, err)
				}
				return a.writeGroups(snap.Groups)
			}

			raws, err := s.LoadTimeline(ctx, roomID)
			if err != nil {
				return fmt.Errorf("%s: %w", roomID, err)
			}
			items := a.decodeStored(roomID, raws)

			engine, err := a.newEngine(roomID)
			if err != nil {
				return err
			}
			engine.Recompute(items)

			snap, err := s.SaveSnapshot(ctx, roomID, engine.Index())
			if err != nil {
				return err
			}
			a.logger.Debug().Str("snapshot_id", snap.ID).Msg("snapshot recorded")
			return a.writeGroups(snap.Groups)
		},
	}
	cmd.Flags().StringVarP(&room, "room", "r", "", "room id (default: selected room)")
	cmd.Flags().BoolVar(&latest, "latest", false, "print the latest snapshot without recomputing")
	return cmd
}
