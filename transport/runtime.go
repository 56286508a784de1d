package transport

import (
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// The runtime is process-wide state shared by every connection: a guard
// flag plus the dialer whose sockets all engine handles use. Initialize
// must happen-before the first connection is constructed and Teardown
// must happen-after the last one is closed; sequencing between the two
// is the caller's job. Both are safe to call more than once.
var runtime struct {
	initOnce sync.Once
	downOnce sync.Once
	up       atomic.Bool
	dialer   *net.Dialer
}

// Initialize brings up the shared transport runtime. It must run exactly
// once before any connection is constructed; extra calls are no-ops.
func Initialize() {
	runtime.initOnce.Do(func() {
		runtime.dialer = &net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}
		runtime.up.Store(true)
	})
}

// Teardown shuts the runtime down after the last connection has been
// closed. Extra calls are no-ops.
func Teardown() {
	runtime.downOnce.Do(func() {
		runtime.up.Store(false)
	})
}

func runtimeUp() bool {
	return runtime.up.Load()
}
