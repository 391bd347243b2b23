package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tOgg1/foldline/internal/config"
)

func newRoomsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rooms",
		Short: "List imported rooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			rooms, err := s.ListRooms(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return writeJSON(a.stdout, rooms)
			}
			if len(rooms) == 0 {
				_, err := fmt.Fprintln(a.stdout, "No rooms imported.")
				return err
			}
			rows := make([][]string, 0, len(rooms))
			for _, r := range rooms {
				rows = append(rows, []string{r.RoomID, strconv.Itoa(r.EventCount), r.ImportedAt.Local().Format(time.DateTime)})
			}
			return writeTable(a.stdout, []string{"ROOM", "EVENTS", "IMPORTED"}, rows)
		},
	}
}

func newRoomCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Manage the selected room",
	}

	var name string
	use := &cobra.Command{
		Use:   "use ROOM",
		Short: "Select the room used when --room is omitted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := config.NewContextStore(a.cfg.ContextPath()).Update(func(c *config.Context) error {
				c.SetRoom(args[0], name)
				return nil
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.stdout, "Selected %s\n", ctx.String())
			return err
		},
	}
	use.Flags().StringVar(&name, "name", "", "label shown with the room id")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the selected room",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := config.NewContextStore(a.cfg.ContextPath()).Load()
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return writeJSON(a.stdout, map[string]string{"room_id": ctx.RoomID, "room_name": ctx.RoomName})
			}
			_, err = fmt.Fprintln(a.stdout, ctx.String())
			return err
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget the selected room",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.NewContextStore(a.cfg.ContextPath()).Clear()
		},
	}

	cmd.AddCommand(use, show, clearCmd)
	return cmd
}
