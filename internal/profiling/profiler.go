// Package profiling captures CPU, heap and execution-trace profiles around
// a single CLI run.
package profiling

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Options names the output file of each profile. Empty paths are skipped.
type Options struct {
	CPU   string
	Heap  string
	Trace string
}

// Enabled reports whether any profile was requested.
func (o Options) Enabled() bool {
	return o.CPU != "" || o.Heap != "" || o.Trace != ""
}

// Run is an active profiling run. Stop must be called exactly once.
type Run struct {
	opts      Options
	cpuFile   *os.File
	traceFile *os.File
}

// Start begins CPU profiling and tracing as requested by opts.
// The heap profile is written by Stop.
func Start(opts Options) (*Run, error) {
	r := &Run{opts: opts}

	if opts.CPU != "" {
		f, err := os.Create(opts.CPU)
		if err != nil {
			return nil, fmt.Errorf("failed to create CPU profile file: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to start CPU profile: %w", err)
		}
		r.cpuFile = f
	}

	if opts.Trace != "" {
		f, err := os.Create(opts.Trace)
		if err != nil {
			r.stopCPU()
			return nil, fmt.Errorf("failed to create trace file: %w", err)
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			r.stopCPU()
			return nil, fmt.Errorf("failed to start trace: %w", err)
		}
		r.traceFile = f
	}

	return r, nil
}

// Stop flushes the running profiles and writes the heap snapshot.
func (r *Run) Stop() error {
	r.stopCPU()

	var errs []error
	if r.traceFile != nil {
		trace.Stop()
		errs = append(errs, r.traceFile.Close())
		r.traceFile = nil
	}

	if r.opts.Heap != "" {
		errs = append(errs, writeHeap(r.opts.Heap))
	}

	m := MemStats()
	slog.Debug("profiling_stopped",
		slog.String("heap_in_use", FormatBytes(m.HeapInuse)),
		slog.String("total_alloc", FormatBytes(m.TotalAlloc)),
		slog.Int("goroutines", runtime.NumGoroutine()))

	return errors.Join(errs...)
}

func (r *Run) stopCPU() {
	if r.cpuFile == nil {
		return
	}
	pprof.StopCPUProfile()
	_ = r.cpuFile.Close()
	r.cpuFile = nil
}

func writeHeap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create heap profile file: %w", err)
	}
	defer func() { _ = f.Close() }()

	// Collect first so the snapshot reflects live objects only
	runtime.GC()

	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("failed to write heap profile: %w", err)
	}
	return nil
}

// MemStats returns current memory statistics.
func MemStats() runtime.MemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m
}

// FormatBytes formats bytes into human-readable form.
func FormatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
