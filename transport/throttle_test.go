package transport

import (
	"testing"
	"time"
)

type countingExecutor struct {
	calls int
}

func (e *countingExecutor) Execute() (int, []byte, time.Time, error) {
	e.calls++
	return 200, []byte("ok"), time.Now(), nil
}

func TestThrottledPassesThrough(t *testing.T) {
	exec := &countingExecutor{}
	th := NewThrottled(exec, 0)

	for i := 0; i < 3; i++ {
		status, body, _, err := th.Execute()
		if err != nil {
			t.Fatalf("execute %d: %v", i, err)
		}
		if status != 200 || string(body) != "ok" {
			t.Fatalf("unexpected result (%d, %q)", status, body)
		}
	}
	if exec.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", exec.calls)
	}
}

func TestThrottledPacesCalls(t *testing.T) {
	exec := &countingExecutor{}
	th := NewThrottled(exec, 100)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, _, _, err := th.Execute(); err != nil {
			t.Fatalf("execute %d: %v", i, err)
		}
	}
	// Burst of 1 means the 2nd and 3rd calls each wait ~10ms.
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Fatalf("expected pacing delay, finished in %v", elapsed)
	}
	if exec.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", exec.calls)
	}
}
