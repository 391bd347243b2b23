package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newImportCmd(a *app) *cobra.Command {
	var room string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Store a timeline document for a room",
		Long: `Decode a timeline document and store its events, replacing any timeline
previously imported for the room. Events that cannot be decoded are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tl, err := a.readTimelineFile(args[0])
			if err != nil {
				return err
			}
			roomID, err := a.resolveRoom(room, tl.RoomID)
			if err != nil {
				return err
			}

			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.SaveTimeline(cmd.Context(), roomID, tl.Events); err != nil {
				return err
			}
			if a.jsonOutput {
				return writeJSON(a.stdout, map[string]any{"room_id": roomID, "events": len(tl.Events)})
			}
			_, err = fmt.Fprintf(a.stdout, "Imported %d events into %s\n", len(tl.Events), roomID)
			return err
		},
	}
	cmd.Flags().StringVarP(&room, "room", "r", "", "room id (default: document room_id or selected room)")
	return cmd
}
