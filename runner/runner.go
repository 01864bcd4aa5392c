package runner

import (
	"context"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"cachebench/config"
	"cachebench/conn"
	"cachebench/retry"
	"cachebench/stats"
	"cachebench/workload"
)

// Results file names, one per run mode.
const (
	LocalResultsFile  = "redis_test_results.csv"
	MasterResultsFile = "redis_test_results_master.csv"
)

// Runner spawns simulated users against a cache client and reports the
// aggregate outcome. One Runner drives exactly one test run.
type Runner struct {
	Config    *config.Config
	Client    conn.Client
	Collector *stats.Collector
	Log       *logrus.Entry
	Out       io.Writer
	OnAttempt func(retry.Attempt)

	// ResultsFile overrides the per-mode default CSV path when set.
	ResultsFile string
}

func (r *Runner) resultsFile(fallback string) string {
	if r.ResultsFile != "" {
		return r.ResultsFile
	}
	return fallback
}

func New(cfg *config.Config, client conn.Client, collector *stats.Collector, log *logrus.Entry, out io.Writer) *Runner {
	return &Runner{
		Config:    cfg,
		Client:    client,
		Collector: collector,
		Log:       log,
		Out:       out,
	}
}

// RunLocal drives a complete single-process test: spawn users, run for
// the configured duration, drain, then print the summary and write the
// results file.
func (r *Runner) RunLocal(ctx context.Context) error {
	cfg := r.Config
	if err := r.checkWorkload(); err != nil {
		return err
	}

	go r.Collector.Run()

	quit := make(chan struct{})
	var once sync.Once
	stop := func() { once.Do(func() { close(quit) }) }

	timer := time.AfterFunc(cfg.TestDuration(), stop)
	defer timer.Stop()

	// Stop early on interrupt; in-flight operations still drain.
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-quit:
		}
	}()

	r.Log.WithFields(logrus.Fields{
		"users":      cfg.Connections,
		"spawn_rate": cfg.SpawnRate,
		"duration":   cfg.TestDuration().String(),
	}).Info("starting load test")

	r.spawnUsers(cfg.Connections, cfg.SpawnRate, quit)

	r.Collector.Close()
	r.Log.Info("load test completed")

	snap := r.Collector.Snapshot()
	stats.WriteSummary(r.Out, snap)
	return stats.WriteCSV(r.resultsFile(LocalResultsFile), snap)
}

// checkWorkload rejects an unrunnable workload before any operation is
// attempted.
func (r *Runner) checkWorkload() error {
	keys := workload.NewKeySpace(r.Config.SetKeys)
	_, err := workload.NewGenerator(r.Config.HitRate, r.Config.ValueSize, r.Config.TTLDuration(), keys, nil)
	return err
}

// spawnUsers starts users at spawnRate per second and blocks until every
// spawned user has drained after quit closes. In-flight operations run
// to completion; quit only stops new work from being scheduled.
func (r *Runner) spawnUsers(users, spawnRate int, quit <-chan struct{}) {
	keys := workload.NewKeySpace(r.Config.SetKeys)
	interval := time.Second / time.Duration(spawnRate)
	wg := &sync.WaitGroup{}

spawning:
	for i := 0; i < users; i++ {
		wg.Add(1)
		go r.runUser(i, keys, quit, wg)

		if i+1 == users {
			break
		}
		select {
		case <-time.After(interval):
		case <-quit:
			break spawning
		}
	}

	wg.Wait()
}

func (r *Runner) runUser(id int, keys *workload.KeySpace, quit <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	cfg := r.Config

	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))
	gen, err := workload.NewGenerator(cfg.HitRate, cfg.ValueSize, cfg.TTLDuration(), keys, rng)
	if err != nil {
		r.Log.WithError(err).Error("user rejected")
		return
	}

	exec := retry.NewExecutor(cfg.RetryAttempts, cfg.RetryWaitDuration())
	exec.OnAttempt = r.OnAttempt

	// Pacing may be interrupted at shutdown; operations may not.
	paceCtx, cancelPace := context.WithCancel(context.Background())
	defer cancelPace()
	go func() {
		<-quit
		cancelPace()
	}()

	limiter := rate.NewLimiter(rate.Limit(cfg.RequestRate), 1)
	value := workload.Value(cfg.ValueSize)

	for {
		select {
		case <-quit:
			return
		default:
		}
		if err := limiter.Wait(paceCtx); err != nil {
			return
		}
		r.step(gen, exec, value)
	}
}

// step performs one simulated request: a GET on the decided key, and a
// SET writing the value back whenever the key was absent. A hit-kind
// decision whose key has expired server-side degrades into a re-seed.
func (r *Runner) step(gen *workload.Generator, exec *retry.Executor, value string) {
	decision := gen.Next()
	suffix := "default"
	if decision.Kind == workload.Miss {
		suffix = "dummy"
	}
	requestType := r.Config.RequestType()
	ctx := context.Background()

	var found bool
	getResult := exec.Execute(ctx, retry.Operation{
		Name: "GET",
		Key:  decision.Key,
		Do: func(ctx context.Context) error {
			_, ok, err := r.Client.Get(ctx, decision.Key)
			found = ok
			return err
		},
	})
	r.Collector.Record(&stats.Result{
		Name:          "get_value_" + suffix,
		RequestType:   requestType,
		Failure:       getResult.Outcome == retry.Failure,
		Hit:           decision.Kind == workload.Hit && getResult.Outcome == retry.Success && found,
		CountsRequest: true,
		Latency:       getResult.Latency,
	})

	if getResult.Outcome != retry.Success || found {
		return
	}

	setResult := exec.Execute(ctx, retry.Operation{
		Name: "SET",
		Key:  decision.Key,
		Do: func(ctx context.Context) error {
			return r.Client.Set(ctx, decision.Key, value, decision.TTL)
		},
	})
	r.Collector.Record(&stats.Result{
		Name:        "set_value_" + suffix,
		RequestType: requestType,
		Failure:     setResult.Outcome == retry.Failure,
		Latency:     setResult.Latency,
	})
}

// SplitUsers divides total users across n workers, spreading the
// remainder over the first workers.
func SplitUsers(total, n int) []int {
	if n < 1 {
		return nil
	}
	shares := make([]int, n)
	base := total / n
	rem := total % n
	for i := range shares {
		shares[i] = base
		if i < rem {
			shares[i]++
		}
	}
	return shares
}
