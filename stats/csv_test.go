package stats_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"cachebench/stats"
)

var _ = Describe("WriteCSV", func() {
	It("writes one row per request name", func() {
		snap := stats.Snapshot{
			Entries: map[string]*stats.Entry{
				"set_value_dummy": {
					Name:         "set_value_dummy",
					RequestType:  "Redis",
					Requests:     5,
					Failures:     1,
					TotalLatency: 50 * time.Millisecond,
					MinLatency:   2 * time.Millisecond,
					MaxLatency:   30 * time.Millisecond,
					Buckets:      map[int64]int64{11: 5},
				},
				"get_value_default": {
					Name:         "get_value_default",
					RequestType:  "Redis",
					Requests:     20,
					TotalLatency: 40 * time.Millisecond,
					MinLatency:   1 * time.Millisecond,
					MaxLatency:   4 * time.Millisecond,
					Buckets:      map[int64]int64{3: 20},
				},
			},
			TotalRequests: 25,
			CacheHits:     10,
			Elapsed:       10 * time.Second,
		}

		path := filepath.Join(GinkgoT().TempDir(), "results.csv")
		Expect(stats.WriteCSV(path, snap)).To(Succeed())

		f, err := os.Open(path)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		records, err := csv.NewReader(f).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(3))

		Expect(records[0]).To(Equal([]string{
			"Request Name", "Total Requests", "Failures",
			"Average Response Time", "Min Response Time", "Max Response Time", "RPS",
		}))

		// rows are sorted by name
		Expect(records[1]).To(Equal([]string{"get_value_default", "20", "0", "2.00", "1.00", "4.00", "2.00"}))
		Expect(records[2]).To(Equal([]string{"set_value_dummy", "5", "1", "10.00", "2.00", "30.00", "0.50"}))
	})
})
