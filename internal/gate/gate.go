// Package gate implements the bounded readiness wait between browser
// acquisition and API startup.
package gate

import (
	"time"

	"github.com/loykin/browserboot/internal/probe"
)

// Result is the terminal outcome of a readiness wait.
type Result int

const (
	// Ready means the probe succeeded within the attempt budget.
	Ready Result = iota
	// TimedOutSoft means the budget was exhausted but the caller may proceed;
	// the browser can still finish starting concurrently with the API.
	TimedOutSoft
	// TimedOutHard means the budget was exhausted and startup must abort.
	TimedOutHard
)

func (r Result) String() string {
	switch r {
	case Ready:
		return "ready"
	case TimedOutSoft:
		return "timed_out_soft"
	case TimedOutHard:
		return "timed_out_hard"
	default:
		return "unknown"
	}
}

// Gate polls a probe at a fixed interval up to MaxAttempts. There is no
// backoff: the awaited operation is process startup, which either completes
// within a few seconds or not at all.
type Gate struct {
	Probe       probe.Probe
	MaxAttempts int
	Interval    time.Duration
	// HardFail selects the exhaustion result: TimedOutHard when true
	// (container mode), TimedOutSoft otherwise.
	HardFail bool
	// Sleep is the inter-attempt wait; defaults to time.Sleep. Tests inject a
	// recording stub so no wall-clock time passes.
	Sleep func(time.Duration)
}

// Wait polls until the probe reports ready or the attempt budget is spent.
// It short-circuits on the first success and reports the number of attempts
// actually made. Worst-case duration is MaxAttempts*Interval.
func (g Gate) Wait() (Result, int) {
	sleep := g.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	attempts := g.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for i := 1; i <= attempts; i++ {
		if g.Probe.Ready() {
			return Ready, i
		}
		if i < attempts {
			sleep(g.Interval)
		}
	}
	if g.HardFail {
		return TimedOutHard, attempts
	}
	return TimedOutSoft, attempts
}
