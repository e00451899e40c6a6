package display

import (
	"fmt"
	"sort"
	"strings"

	"restaurant-foh/internal/kitchen/board"
)

// renderView lays the board out as plain text, one station block per column
// of the physical display.
func renderView(v board.View) string {
	var b strings.Builder

	b.WriteString("\033[H\033[2J") // clear terminal
	fmt.Fprintf(&b, "KITCHEN BOARD  items=%d urgent=%d", v.Total, v.Urgent)
	if v.Filter != board.FilterAll {
		fmt.Fprintf(&b, "  [table %s]", v.Filter)
	}
	b.WriteString("\n")
	if len(v.Tables) > 0 {
		fmt.Fprintf(&b, "tables: %s\n", strings.Join(v.Tables, " "))
	}

	stations := make([]board.StationView, 0, len(v.Stations))
	for _, sv := range v.Stations {
		stations = append(stations, sv)
	}
	sort.Slice(stations, func(i, j int) bool { return stations[i].Name < stations[j].Name })

	for _, sv := range stations {
		name := sv.Name
		if name == "" {
			name = "Other"
		}
		fmt.Fprintf(&b, "\n== %s ==\n", name)
		items := append([]board.ItemView(nil), sv.Items...)
		sort.Slice(items, func(i, j int) bool { return items[i].QueuePos < items[j].QueuePos })
		for _, it := range items {
			b.WriteString(renderItem(it))
		}
	}
	b.WriteString("\n")
	return b.String()
}

func renderItem(it board.ItemView) string {
	var marks []string
	if it.Overdue {
		marks = append(marks, "OVERDUE")
	}
	if it.Processing {
		marks = append(marks, "...")
	}
	if it.IsTakeaway {
		marks = append(marks, "takeaway")
	}
	suffix := ""
	if len(marks) > 0 {
		suffix = "  [" + strings.Join(marks, " ") + "]"
	}
	line := fmt.Sprintf("%2d. #%-5d %dx %-24s %-9s %s  %s%s\n",
		it.QueuePos, it.ID, it.Quantity, it.RecipeName, it.Status, it.OrderTable, it.Elapsed, suffix)
	if it.Notes != "" {
		line += fmt.Sprintf("      * %s\n", it.Notes)
	}
	return line
}
