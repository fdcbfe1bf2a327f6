// Package metrics is pgdb's in-process counter/gauge registry. It is
// deliberately not wired to an HTTP or database exporter; it exists so
// components can record counts the front-end prints on demand (record
// volume, relay merge counts, SBD hit rate).
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/shirou/gopsutil/mem"
	"golang.org/x/sys/unix"
)

// Counter is a monotonically increasing named value.
type Counter struct {
	v int64
}

func (c *Counter) Inc()            { atomic.AddInt64(&c.v, 1) }
func (c *Counter) Add(n int64)     { atomic.AddInt64(&c.v, n) }
func (c *Counter) Snapshot() int64 { return atomic.LoadInt64(&c.v) }

// Gauge is a named value that can move in either direction.
type Gauge struct {
	v int64
}

func (g *Gauge) Set(n int64)     { atomic.StoreInt64(&g.v, n) }
func (g *Gauge) Snapshot() int64 { return atomic.LoadInt64(&g.v) }

// Registry is a flat name->metric map: an RWMutex around a plain Go map
// rather than a sharded or lock-free structure.
type Registry struct {
	mu       sync.RWMutex
	counters map[string]*Counter
	gauges   map[string]*Gauge
}

func NewRegistry() *Registry {
	return &Registry{counters: make(map[string]*Counter), gauges: make(map[string]*Gauge)}
}

func (r *Registry) Counter(name string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.counters[name]
	if !ok {
		c = &Counter{}
		r.counters[name] = c
	}
	return c
}

func (r *Registry) Gauge(name string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.gauges[name]
	if !ok {
		g = &Gauge{}
		r.gauges[name] = g
	}
	return g
}

// Snapshot is a point-in-time dump of every registered metric, in the
// shape the front-end's "stats" builtin verb prints.
type Snapshot struct {
	Counters map[string]int64
	Gauges   map[string]int64
}

func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Snapshot{Counters: make(map[string]int64, len(r.counters)), Gauges: make(map[string]int64, len(r.gauges))}
	for k, c := range r.counters {
		s.Counters[k] = c.Snapshot()
	}
	for k, g := range r.gauges {
		s.Gauges[k] = g.Snapshot()
	}
	return s
}

// SystemSample is a process/host resource reading, used to report
// front-end memory headroom and CPU time in the stats display.
type SystemSample struct {
	TotalMemoryBytes     uint64
	AvailableMemoryBytes uint64
	CPUTimeCentiseconds  int64
}

// SampleSystem reads current host memory and this process' CPU time.
// Errors reading memory are non-fatal; the sample is returned zeroed
// for that field so a transient /proc read failure never takes down
// the front-end's stats display.
func SampleSystem() SystemSample {
	var s SystemSample
	if vm, err := mem.VirtualMemory(); err == nil {
		s.TotalMemoryBytes = vm.Total
		s.AvailableMemoryBytes = vm.Available
	}
	var usage unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &usage); err == nil {
		s.CPUTimeCentiseconds = int64(usage.Utime.Sec+usage.Stime.Sec)*100 + int64(usage.Utime.Usec+usage.Stime.Usec)/10000
	}
	return s
}
