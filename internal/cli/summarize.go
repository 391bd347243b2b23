package cli

import (
	"github.com/spf13/cobra"

	"github.com/tOgg1/foldline/internal/store"
)

func newSummarizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize FILE",
		Short: "Print the groups of a timeline document",
		Long: `Decode a room timeline (JSON or YAML, either a list of client-format events or
an object with room_id and timeline) and print every folded group with its summary.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tl, err := a.readTimelineFile(args[0])
			if err != nil {
				return err
			}
			engine, err := a.newEngine(tl.RoomID)
			if err != nil {
				return err
			}
			engine.Recompute(tl.Items)
			return a.writeGroups(store.RecordsFromIndex(engine.Index()))
		},
	}
}
