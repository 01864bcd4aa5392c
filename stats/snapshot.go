package stats

import "time"

// Snapshot is a point-in-time copy of a collector's aggregates. It is
// JSON-serializable so workers can ship it to the master over the
// control channel.
type Snapshot struct {
	Entries       map[string]*Entry `json:"entries"`
	TotalRequests int64             `json:"total_requests"`
	CacheHits     int64             `json:"cache_hits"`
	Elapsed       time.Duration     `json:"elapsed_ns"`
}

// HitRate is the observed fraction of steps that found their key.
func (s Snapshot) HitRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(s.TotalRequests)
}

// Merge combines cumulative snapshots from independent collectors, one
// per worker. Elapsed takes the max: workers run concurrently, not
// back to back.
func Merge(snaps ...Snapshot) Snapshot {
	merged := Snapshot{Entries: make(map[string]*Entry)}

	for _, snap := range snaps {
		merged.TotalRequests += snap.TotalRequests
		merged.CacheHits += snap.CacheHits
		if snap.Elapsed > merged.Elapsed {
			merged.Elapsed = snap.Elapsed
		}

		for name, entry := range snap.Entries {
			dst, ok := merged.Entries[name]
			if !ok {
				dst = newEntry(entry.Name, entry.RequestType)
				merged.Entries[name] = dst
			}
			if dst.Requests == 0 || (entry.Requests > 0 && entry.MinLatency < dst.MinLatency) {
				dst.MinLatency = entry.MinLatency
			}
			if entry.MaxLatency > dst.MaxLatency {
				dst.MaxLatency = entry.MaxLatency
			}
			dst.Requests += entry.Requests
			dst.Failures += entry.Failures
			dst.TotalLatency += entry.TotalLatency
			for ms, n := range entry.Buckets {
				dst.Buckets[ms] += n
			}
		}
	}

	return merged
}
