package gate

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/loykin/browserboot/internal/probe"
)

// fakeProbe reports ready starting at the readyOn-th call.
type fakeProbe struct {
	calls   int
	readyOn int // 0 = never
}

func (f *fakeProbe) Ready() bool {
	f.calls++
	return f.readyOn > 0 && f.calls >= f.readyOn
}

func (f *fakeProbe) Describe() string { return "fake" }

func TestWaitShortCircuitsOnFirstSuccess(t *testing.T) {
	var slept []time.Duration
	p := &fakeProbe{readyOn: 1}
	res, attempts := Gate{
		Probe:       p,
		MaxAttempts: 10,
		Interval:    time.Hour,
		Sleep:       func(d time.Duration) { slept = append(slept, d) },
	}.Wait()
	if res != Ready || attempts != 1 {
		t.Fatalf("got %v after %d attempts, want Ready on first", res, attempts)
	}
	if len(slept) != 0 {
		t.Fatalf("must not sleep when immediately ready: %v", slept)
	}
}

func TestWaitReadyMidBudget(t *testing.T) {
	var slept []time.Duration
	p := &fakeProbe{readyOn: 3}
	res, attempts := Gate{
		Probe:       p,
		MaxAttempts: 10,
		Interval:    250 * time.Millisecond,
		Sleep:       func(d time.Duration) { slept = append(slept, d) },
	}.Wait()
	if res != Ready || attempts != 3 {
		t.Fatalf("got %v after %d attempts, want Ready on third", res, attempts)
	}
	if len(slept) != 2 {
		t.Fatalf("want 2 inter-attempt sleeps, got %d", len(slept))
	}
	for _, d := range slept {
		if d != 250*time.Millisecond {
			t.Fatalf("interval must be fixed, got %v", d)
		}
	}
}

func TestWaitExhaustionSoftVsHard(t *testing.T) {
	for _, tc := range []struct {
		hard bool
		want Result
	}{
		{hard: false, want: TimedOutSoft},
		{hard: true, want: TimedOutHard},
	} {
		p := &fakeProbe{} // never ready
		res, attempts := Gate{
			Probe:       p,
			MaxAttempts: 4,
			Interval:    time.Millisecond,
			HardFail:    tc.hard,
			Sleep:       func(time.Duration) {},
		}.Wait()
		if res != tc.want || attempts != 4 {
			t.Fatalf("hard=%v: got %v after %d, want %v after 4", tc.hard, res, attempts, tc.want)
		}
		// No sleep after the final attempt.
		if p.calls != 4 {
			t.Fatalf("probe called %d times, want 4", p.calls)
		}
	}
}

func TestWaitAgainstDelayedListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	_ = ln.Close()

	// Re-open the port after a delay shorter than the gate budget.
	go func() {
		time.Sleep(60 * time.Millisecond)
		l, err := net.Listen("tcp", "127.0.0.1:"+strconv.Itoa(port))
		if err != nil {
			return
		}
		time.Sleep(2 * time.Second)
		_ = l.Close()
	}()

	res, _ := Gate{
		Probe:       probe.TCPProbe{Host: "127.0.0.1", Port: port, Timeout: 100 * time.Millisecond},
		MaxAttempts: 50,
		Interval:    20 * time.Millisecond,
	}.Wait()
	if res != Ready {
		t.Fatalf("gate must observe the delayed listener, got %v", res)
	}
}

func TestResultString(t *testing.T) {
	if Ready.String() != "ready" || TimedOutSoft.String() != "timed_out_soft" || TimedOutHard.String() != "timed_out_hard" {
		t.Fatalf("unexpected result strings: %v %v %v", Ready, TimedOutSoft, TimedOutHard)
	}
}
