package cli

import (
	"bufio"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

const tablePadding = 2

// writeTable writes left-aligned columns sized by display width, so wide runes in
// display names and styled cells line up.
func writeTable(out io.Writer, headers []string, rows [][]string) error {
	colCount := len(headers)
	for _, row := range rows {
		colCount = max(colCount, len(row))
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	measure := func(row []string) {
		for idx, cell := range row {
			widths[idx] = max(widths[idx], cellWidth(cell))
		}
	}
	measure(headers)
	for _, row := range rows {
		measure(row)
	}

	w := bufio.NewWriter(out)
	writeRow := func(row []string) {
		var line strings.Builder
		for idx := 0; idx < colCount; idx++ {
			cell := ""
			if idx < len(row) {
				cell = row[idx]
			}
			line.WriteString(cell)
			if idx < colCount-1 {
				line.WriteString(strings.Repeat(" ", max(widths[idx]-cellWidth(cell), 0)+tablePadding))
			}
		}
		// Trailing padding of an empty last column is noise.
		_, _ = w.WriteString(strings.TrimRight(line.String(), " "))
		_ = w.WriteByte('\n')
	}

	if len(headers) > 0 {
		writeRow(headers)
	}
	for _, row := range rows {
		writeRow(row)
	}
	return w.Flush()
}

func cellWidth(cell string) int {
	return runewidth.StringWidth(stripANSI(cell))
}

func formatYesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// stripANSI removes CSI escape sequences.
func stripANSI(value string) string {
	if !strings.Contains(value, "\x1b[") {
		return value
	}
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		if value[i] != 0x1b || i+1 >= len(value) || value[i+1] != '[' {
			b.WriteByte(value[i])
			continue
		}
		i += 2
		for i < len(value) && (value[i] < 0x40 || value[i] > 0x7e) {
			i++
		}
	}
	return b.String()
}
