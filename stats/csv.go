package stats

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
)

var csvHeader = []string{
	"Request Name",
	"Total Requests",
	"Failures",
	"Average Response Time",
	"Min Response Time",
	"Max Response Time",
	"RPS",
}

// WriteCSV saves the per-request aggregates to filename. Response times
// are milliseconds.
func WriteCSV(filename string, snap Snapshot) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create results file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write results file: %w", err)
	}

	names := make([]string, 0, len(snap.Entries))
	for name := range snap.Entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := snap.Entries[name]
		rps := 0.0
		if snap.Elapsed > 0 {
			rps = float64(entry.Requests) / snap.Elapsed.Seconds()
		}
		record := []string{
			entry.Name,
			strconv.FormatInt(entry.Requests, 10),
			strconv.FormatInt(entry.Failures, 10),
			strconv.FormatFloat(toMs(entry.AverageLatency()), 'f', 2, 64),
			strconv.FormatFloat(toMs(entry.MinLatency), 'f', 2, 64),
			strconv.FormatFloat(toMs(entry.MaxLatency), 'f', 2, 64),
			strconv.FormatFloat(rps, 'f', 2, 64),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write results file: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}
