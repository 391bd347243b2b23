package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tOgg1/foldline/internal/matrix"
	"github.com/tOgg1/foldline/internal/tui"
)

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func newViewCmd(a *app) *cobra.Command {
	var room string

	cmd := &cobra.Command{
		Use:   "view [FILE]",
		Short: "Browse a timeline with folded groups",
		Long: `Open the interactive viewer on a timeline document, or on the stored
timeline of --room when no file is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !hasTTY() {
				return errors.New("view requires an interactive terminal; use 'foldline summarize' instead")
			}

			var (
				roomID string
				items  []matrix.RawItem
			)
			if len(args) == 1 {
				tl, err := a.readTimelineFile(args[0])
				if err != nil {
					return err
				}
				roomID, items = tl.RoomID, tl.Items
			} else {
				id, err := a.resolveRoom(room, "")
				if err != nil {
					return err
				}
				s, err := a.openStore(cmd.Context())
				if err != nil {
					return err
				}
				raws, err := s.LoadTimeline(cmd.Context(), id)
				_ = s.Close()
				if err != nil {
					return fmt.Errorf("%s: %w", id, err)
				}
				items = a.decodeStored(id, raws)
				roomID = id
			}

			engine, err := a.newEngine(roomID)
			if err != nil {
				return err
			}
			title := roomID
			if title == "" && len(args) == 1 {
				title = args[0]
			}
			return tui.Run(tui.Config{
				Title:        title,
				Items:        items,
				Engine:       engine,
				ExpandAll:    a.cfg.TUI.ExpandAll,
				ShowEventIDs: a.cfg.TUI.ShowEventIDs,
			})
		},
	}
	cmd.Flags().StringVarP(&room, "room", "r", "", "room id to load from the database")
	return cmd
}
