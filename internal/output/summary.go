package output

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/devgoel186/tracemon/internal/aggregator"
)

// WriteSummary prints per-kind event counts as an aligned table.
func WriteSummary(w io.Writer, stats aggregator.Stats) error {
	kinds := make([]string, 0, len(stats.KindCounts))
	for k := range stats.KindCounts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "lines\t%d\n", stats.TotalLines)
	fmt.Fprintf(tw, "events\t%d\n", stats.TotalEvents)
	for _, k := range kinds {
		fmt.Fprintf(tw, "  %s\t%d\n", k, stats.KindCounts[k])
	}
	return tw.Flush()
}
