package pipeline

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func printPlan(w io.Writer, plan []PlanEntry) {
	fmt.Fprint(w, "\n=== DRY RUN: Categorization Plan ===\n\n")
	total := 0
	for _, entry := range plan {
		fmt.Fprintf(w, "  %s\n", entry.Path)
		for _, seg := range entry.Segments {
			fmt.Fprintf(w, "   → %s/%s → %s\n", seg.Category, seg.SubcategoryOr("general"), quoteList(seg.Paths))
		}
		total += len(entry.Segments)
	}
	if total > 0 {
		fmt.Fprintf(w, "\n%s\n", categoryTable(plan))
	}
	fmt.Fprintf(w, "\nTotal: %d notes → %d segments\n", len(plan), total)
	fmt.Fprintln(w, "Run without --dry-run to process and write files.")
}

// categoryTable summarizes the plan per category: segment count and the
// distinct output files it would produce.
func categoryTable(plan []PlanEntry) string {
	segments := make(map[string]int)
	files := make(map[string]map[string]struct{})
	for _, entry := range plan {
		for _, seg := range entry.Segments {
			name := seg.Category.String()
			segments[name]++
			if files[name] == nil {
				files[name] = make(map[string]struct{})
			}
			for _, p := range seg.TargetPaths() {
				files[name][p] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(segments))
	for n := range segments {
		names = append(names, n)
	}
	sort.Strings(names)

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Category", "Segments", "Files"})
	for _, n := range names {
		tw.AppendRow(table.Row{n, strconv.Itoa(segments[n]), strconv.Itoa(len(files[n]))})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = strconv.Quote(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
