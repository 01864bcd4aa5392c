package retry

import (
	"context"
	"time"
)

type Outcome int

const (
	Success Outcome = iota
	Failure
)

func (o Outcome) String() string {
	if o == Success {
		return "success"
	}
	return "failure"
}

// Operation is one cache call to run under retry.
type Operation struct {
	Name string // GET or SET
	Key  string
	Do   func(ctx context.Context) error
}

// Attempt describes a single try, handed to the OnAttempt observer so
// per-attempt signal survives even though callers only see the final
// Result.
type Attempt struct {
	Operation string
	Key       string
	Number    int // 1-based
	Latency   time.Duration
	Err       error
}

// Result is the terminal state of one (possibly retried) operation.
// It carries the error's classification rather than its message.
type Result struct {
	Operation string
	Outcome   Outcome
	Class     Class
	Latency   time.Duration
	Attempts  int
}

// Executor retries transient failures with capped exponential backoff.
// Permanent failures return immediately. The sleep function is injectable
// so backoff behavior is testable without real delays; it suspends only
// the calling goroutine.
type Executor struct {
	MaxRetries  int
	BackoffBase time.Duration
	BackoffCap  time.Duration
	Sleep       func(time.Duration)
	OnAttempt   func(Attempt)
}

func NewExecutor(maxRetries int, backoffCap time.Duration) *Executor {
	return &Executor{
		MaxRetries:  maxRetries,
		BackoffBase: DefaultBase,
		BackoffCap:  backoffCap,
		Sleep:       time.Sleep,
	}
}

// Execute runs op until it succeeds, fails permanently, or exhausts
// MaxRetries+1 attempts.
func (e *Executor) Execute(ctx context.Context, op Operation) Result {
	for attempt := 0; ; attempt++ {
		start := time.Now()
		err := op.Do(ctx)
		latency := time.Since(start)

		if e.OnAttempt != nil {
			e.OnAttempt(Attempt{
				Operation: op.Name,
				Key:       op.Key,
				Number:    attempt + 1,
				Latency:   latency,
				Err:       err,
			})
		}

		if err == nil {
			return Result{
				Operation: op.Name,
				Outcome:   Success,
				Class:     ClassNone,
				Latency:   latency,
				Attempts:  attempt + 1,
			}
		}
		if !Transient(err) {
			return Result{
				Operation: op.Name,
				Outcome:   Failure,
				Class:     ClassPermanent,
				Latency:   latency,
				Attempts:  attempt + 1,
			}
		}
		if attempt >= e.MaxRetries {
			return Result{
				Operation: op.Name,
				Outcome:   Failure,
				Class:     ClassTransient,
				Latency:   latency,
				Attempts:  attempt + 1,
			}
		}

		e.Sleep(Backoff(e.BackoffBase, e.BackoffCap, attempt))
	}
}
