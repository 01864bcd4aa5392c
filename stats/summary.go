package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/fatih/color"
)

var summaryPercentiles = []int{100, 99, 98, 97, 96, 95, 94, 93, 92, 91, 90, 85, 80}

// WriteSummary renders the per-request latency and throughput report.
func WriteSummary(w io.Writer, snap Snapshot) {
	header := color.New(color.FgCyan, color.Bold)

	names := make([]string, 0, len(snap.Entries))
	for name := range snap.Entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := snap.Entries[name]

		fmt.Fprintln(w)
		header.Fprintf(w, "Latencies for: %s\n", name)
		fmt.Fprintln(w, "============================")

		ascending := ascendingLatencies(entry)
		if len(ascending) == 0 {
			fmt.Fprintln(w, "no results")
			continue
		}
		for _, p := range summaryPercentiles {
			value, position := PercentileValue(p, ascending)
			fmt.Fprintf(w, "% 4d%% <= %5.1f ms  (%d/%d)\n", p, value, position, len(ascending))
		}
	}

	for _, name := range names {
		entry := snap.Entries[name]

		fmt.Fprintln(w)
		header.Fprintf(w, "Summary for: %s\n", name)
		fmt.Fprintln(w, "============================")
		fmt.Fprintf(w, "Requests:    %d\n", entry.Requests)
		fmt.Fprintf(w, "Failures:    %d\n", entry.Failures)
		fmt.Fprintf(w, "Avg latency: %0.2f ms\n", toMs(entry.AverageLatency()))
		fmt.Fprintf(w, "Min latency: %0.2f ms\n", toMs(entry.MinLatency))
		fmt.Fprintf(w, "Max latency: %0.2f ms\n", toMs(entry.MaxLatency))
		if snap.Elapsed > 0 {
			fmt.Fprintf(w, "Throughput:  %0.2f ops/sec\n", float64(entry.Requests)/snap.Elapsed.Seconds())
		}
	}

	fmt.Fprintln(w)
	header.Fprintln(w, "Totals")
	fmt.Fprintln(w, "============================")
	fmt.Fprintf(w, "Total Requests: %d\n", snap.TotalRequests)
	fmt.Fprintf(w, "Cache Hits:     %d\n", snap.CacheHits)
	if snap.TotalRequests > 0 {
		fmt.Fprintf(w, "Cache Hit Rate: %0.2f%%\n", snap.HitRate()*100)
	} else {
		fmt.Fprintln(w, "Cache Hit Rate: N/A")
	}
	fmt.Fprintln(w)
}

// ascendingLatencies expands the millisecond buckets into a sorted slice
// of per-result latency values.
func ascendingLatencies(entry *Entry) []int {
	keys := make([]int, 0, len(entry.Buckets))
	total := 0
	for ms, n := range entry.Buckets {
		keys = append(keys, int(ms))
		total += int(n)
	}
	sort.Ints(keys)

	ascending := make([]int, 0, total)
	for _, ms := range keys {
		for i := int64(0); i < entry.Buckets[int64(ms)]; i++ {
			ascending = append(ascending, ms)
		}
	}
	return ascending
}

// PercentileValue returns the value of the given percentile and the
// position in the sorted results at which it occurs.
func PercentileValue(percentile int, sortedData []int) (float64, int) {
	if percentile == 100 {
		return float64(sortedData[len(sortedData)-1]), len(sortedData)
	}

	position := float64(len(sortedData)) * (float64(percentile) / 100)
	intPosition := int(math.Min(math.Ceil(position), float64(len(sortedData)-1)))

	if intPosition == int(position) {
		return float64(sortedData[intPosition]), intPosition
	}
	return float64(sortedData[intPosition]+sortedData[intPosition-1]) / 2, intPosition
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
