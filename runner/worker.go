package runner

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const workerReportInterval = 3 * time.Second

// RunWorker connects to the master, runs its assigned share of users,
// and streams cumulative stats snapshots until the run ends.
func (r *Runner) RunWorker(ctx context.Context) error {
	cfg := r.Config
	if err := r.checkWorkload(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", cfg.MasterBindHost, cfg.MasterBindPort)
	c, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to master at %s: %w", addr, err)
	}
	wc := newWorkerConn(c)
	defer wc.Close()

	id := uuid.NewString()
	if err := wc.write(&message{Type: msgHello, WorkerID: id}); err != nil {
		return fmt.Errorf("send hello: %w", err)
	}
	r.Log.Infof("worker %s connected to master at %s", id, addr)

	start, err := wc.read()
	if err != nil {
		return fmt.Errorf("read start message: %w", err)
	}
	if start.Type != msgStart {
		return fmt.Errorf("unexpected %s message before start", start.Type)
	}

	quit := make(chan struct{})
	var once sync.Once
	stop := func() { once.Do(func() { close(quit) }) }

	timer := time.AfterFunc(time.Duration(start.DurationSec)*time.Second, stop)
	defer timer.Stop()

	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-quit:
		}
	}()

	// The master may cut the run short with a quit message.
	go func() {
		for {
			m, err := wc.read()
			if err != nil {
				stop()
				return
			}
			if m.Type == msgQuit {
				stop()
				return
			}
		}
	}()

	go r.Collector.Run()

	reportDone := make(chan struct{})
	go func() {
		defer close(reportDone)
		ticker := time.NewTicker(workerReportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				snap := r.Collector.Snapshot()
				if err := wc.write(&message{Type: msgStats, WorkerID: id, Stats: &snap}); err != nil {
					return
				}
			case <-quit:
				return
			}
		}
	}()

	r.Log.WithFields(logrus.Fields{
		"users":      start.Users,
		"spawn_rate": start.SpawnRate,
		"duration":   start.DurationSec,
	}).Info("worker load test started")

	if start.Users > 0 {
		r.spawnUsers(start.Users, start.SpawnRate, quit)
	} else {
		<-quit
	}

	stop()
	<-reportDone
	r.Collector.Close()

	snap := r.Collector.Snapshot()
	if err := wc.write(&message{Type: msgStats, WorkerID: id, Stats: &snap, Final: true}); err != nil {
		return fmt.Errorf("send final report: %w", err)
	}
	r.Log.Info("worker load test completed")
	return nil
}
