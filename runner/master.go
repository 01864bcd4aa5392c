package runner

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"cachebench/stats"
)

// masterGrace bounds how long the master waits for final worker reports
// past the nominal test duration. Workers finish in-flight retries
// before reporting, so this must cover a worst-case backoff chain.
const masterGrace = 30 * time.Second

// RunMaster coordinates a distributed run. The master itself generates
// no load: it waits for every worker to connect, hands each its share of
// users, aggregates their stats snapshots, and writes the combined
// report.
func (r *Runner) RunMaster(ctx context.Context) error {
	cfg := r.Config
	if err := r.checkWorkload(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", cfg.MasterBindHost, cfg.MasterBindPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bind master on %s: %w", addr, err)
	}
	defer ln.Close()

	r.Log.Infof("master waiting for %d workers on %s", cfg.NumWorkers, addr)

	workers := make([]*workerConn, 0, cfg.NumWorkers)
	for len(workers) < cfg.NumWorkers {
		c, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("accept worker: %w", err)
		}
		wc := newWorkerConn(c)
		hello, err := wc.read()
		if err != nil || hello.Type != msgHello {
			r.Log.Warn("dropping connection without hello")
			wc.Close()
			continue
		}
		wc.id = hello.WorkerID
		workers = append(workers, wc)
		r.Log.Infof("worker %s connected (%d/%d)", wc.id, len(workers), cfg.NumWorkers)
	}

	userShares := SplitUsers(cfg.Connections, len(workers))
	spawnShares := SplitUsers(cfg.SpawnRate, len(workers))
	for i, wc := range workers {
		spawn := spawnShares[i]
		if spawn < 1 {
			spawn = 1
		}
		start := &message{
			Type:        msgStart,
			Users:       userShares[i],
			SpawnRate:   spawn,
			DurationSec: cfg.Duration,
		}
		if err := wc.write(start); err != nil {
			return fmt.Errorf("send start to worker %s: %w", wc.id, err)
		}
	}
	r.Log.Infof("all %d workers connected, load test started", len(workers))

	var mu sync.Mutex
	latest := make(map[string]stats.Snapshot)
	finals := make(chan string, len(workers))

	for _, wc := range workers {
		go func(wc *workerConn) {
			for {
				m, err := wc.read()
				if err != nil {
					finals <- wc.id
					return
				}
				if m.Type != msgStats || m.Stats == nil {
					continue
				}
				mu.Lock()
				latest[wc.id] = *m.Stats
				mu.Unlock()
				if m.Final {
					finals <- wc.id
					return
				}
			}
		}(wc)
	}

	// Workers stop themselves after DurationSec; wait for their final
	// reports with a bounded grace period.
	deadline := time.NewTimer(cfg.TestDuration() + masterGrace)
	defer deadline.Stop()

	received := 0
waiting:
	for received < len(workers) {
		select {
		case id := <-finals:
			received++
			r.Log.Infof("worker %s finished (%d/%d)", id, received, len(workers))
		case <-deadline.C:
			r.Log.Warnf("timed out waiting for final reports (%d/%d received)", received, len(workers))
			break waiting
		case <-ctx.Done():
			r.Log.Warn("master interrupted")
			break waiting
		}
	}

	for _, wc := range workers {
		_ = wc.write(&message{Type: msgQuit})
		wc.Close()
	}

	mu.Lock()
	snaps := make([]stats.Snapshot, 0, len(latest))
	for _, snap := range latest {
		snaps = append(snaps, snap)
	}
	mu.Unlock()

	merged := stats.Merge(snaps...)
	stats.WriteSummary(r.Out, merged)
	return stats.WriteCSV(r.resultsFile(MasterResultsFile), merged)
}
