package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tOgg1/foldline/internal/store"
)

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type groupRow struct {
	Key          string   `json:"key"`
	Start        int      `json:"start"`
	End          int      `json:"end"`
	Size         int      `json:"size"`
	RoomCreation bool     `json:"room_creation"`
	Summary      string   `json:"summary"`
	Avatars      []string `json:"avatars"`
}

func groupRows(records []store.GroupRecord) []groupRow {
	rows := make([]groupRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, groupRow(r))
	}
	return rows
}

func (a *app) writeGroups(records []store.GroupRecord) error {
	if a.jsonOutput {
		return writeJSON(a.stdout, groupRows(records))
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(a.stdout, "No groups.")
		return err
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			fmt.Sprintf("%d-%d", r.Start, r.End-1),
			r.Key,
			fmt.Sprintf("%d", r.Size),
			formatYesNo(r.RoomCreation),
			r.Summary,
			strings.Join(r.Avatars, " "),
		})
	}
	return writeTable(a.stdout, []string{"RANGE", "KEY", "SIZE", "CREATION", "SUMMARY", "AVATARS"}, rows)
}
