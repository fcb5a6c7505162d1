package fpcodec

import (
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sys/cpu"
)

// Accelerator abstracts the data-parallel runtime the core codec dispatches
// onto: device memory allocation, host<->device transfer, stream creation,
// kernel launch, and synchronization (spec §6, "Accelerator runtime
// contract"). The core never talks to a real SIMT backend directly — every
// group/block routine goes through this interface, so swapping
// hostAccelerator for a CUDA/Metal/Vulkan-compute binding retargets the
// codec without touching any format code.
type Accelerator interface {
	// Alloc reserves n bytes of device memory and returns a handle to it.
	Alloc(n int) (DeviceBuffer, error)
	// Free releases a handle returned by Alloc. Freeing an already-freed or
	// zero DeviceBuffer is a no-op.
	Free(buf DeviceBuffer) error
	// CopyToDevice copies src into dst, which must have been sized to hold it.
	CopyToDevice(dst DeviceBuffer, src []byte) error
	// CopyFromDevice copies len(dst) bytes out of src into dst.
	CopyFromDevice(dst []byte, src DeviceBuffer) error
	// NewStream creates an execution stream that Launch/Synchronize operate
	// against.
	NewStream() (Stream, error)
	// DestroyStream releases a stream created by NewStream.
	DestroyStream(s Stream) error
	// Launch dispatches fn once per worker in [0, grid) on stream,
	// asynchronously: Launch may return before fn has run for every worker.
	// An error a worker returns is recorded as the accelerator's LastError.
	Launch(s Stream, grid int, fn func(worker int) error) error
	// Synchronize blocks until every kernel launched on s has completed and
	// returns the recorded error, if any. Recorded errors are sticky: once a
	// launch has failed, Synchronize on any stream may report that error.
	Synchronize(s Stream) error
	// LastError returns the most recent error recorded on any stream
	// (surfaced independently of Synchronize for parity with real device
	// runtimes that expose a sticky last-error register).
	LastError() error
}

// DeviceBuffer is an opaque handle to device memory. The host accelerator
// backs it with a plain byte slice; a real accelerator would back it with a
// device pointer instead.
type DeviceBuffer struct {
	id    uint64
	bytes []byte
}

// Stream is an opaque handle to an execution stream.
type Stream struct {
	id uint64
}

// hostAccelerator simulates the device runtime with a goroutine pool sized
// to GOMAXPROCS, one "kernel launch" per call to Launch. It is grounded on
// the worker/assemble goroutine pattern used for parallel block
// decompression in cosnicolaou/pbzip2: each Launch starts one goroutine per
// worker, a semaphore bounds how many run at once, and a per-launch WaitGroup
// makes Launch itself return only after every worker has finished.
type hostAccelerator struct {
	mu       sync.Mutex
	nextID   uint64
	lastErr  error
	poolSize int
	simdTier string
}

// newHostAccelerator returns an Accelerator that runs kernels on the host
// using a worker pool sized to the number of available CPUs.
func newHostAccelerator() *hostAccelerator {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}
	return &hostAccelerator{poolSize: n, simdTier: detectSIMDTier()}
}

// detectSIMDTier reports the widest x86 SIMD instruction set the running
// host supports: "avx2", "sse2", or "scalar". It does not map that tier to
// an internal/avogen interleave tile width. cpu.X86 reads as all-false on
// non-x86 architectures, so this degrades to "scalar" there without a build
// tag.
func detectSIMDTier() string {
	switch {
	case cpu.X86.HasAVX2:
		return "avx2"
	case cpu.X86.HasSSE2:
		return "sse2"
	default:
		return "scalar"
	}
}

// SIMDTier reports the SIMD instruction-set tier detectSIMDTier found on
// this host ("avx2", "sse2", or "scalar"). The host accelerator always runs the scalar Go interleave/deinterleave
// regardless of this value today; it exists so a caller comparing
// accelerators (or deciding whether building internal/avogen's asm kernels
// is worthwhile on this machine) has something to inspect.
func (h *hostAccelerator) SIMDTier() string { return h.simdTier }

func (h *hostAccelerator) Alloc(n int) (DeviceBuffer, error) {
	if n < 0 {
		return DeviceBuffer{}, fmt.Errorf("fpcodec: negative allocation size %d", n)
	}
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.mu.Unlock()
	return DeviceBuffer{id: id, bytes: make([]byte, n)}, nil
}

func (h *hostAccelerator) Free(buf DeviceBuffer) error {
	// The host backing array is reclaimed by the garbage collector once the
	// last reference drops; Free exists so call sites keep the scoped
	// release discipline a real accelerator requires.
	return nil
}

func (h *hostAccelerator) CopyToDevice(dst DeviceBuffer, src []byte) error {
	if len(src) > len(dst.bytes) {
		return fmt.Errorf("fpcodec: copy-to-device overflow: %d > %d", len(src), len(dst.bytes))
	}
	copy(dst.bytes, src)
	return nil
}

func (h *hostAccelerator) CopyFromDevice(dst []byte, src DeviceBuffer) error {
	if len(dst) > len(src.bytes) {
		return fmt.Errorf("fpcodec: copy-from-device overflow: %d > %d", len(dst), len(src.bytes))
	}
	copy(dst, src.bytes)
	return nil
}

func (h *hostAccelerator) NewStream() (Stream, error) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.mu.Unlock()
	return Stream{id: id}, nil
}

func (h *hostAccelerator) DestroyStream(s Stream) error {
	return nil
}

// Launch runs fn once per worker in [0, grid) over a pool bounded to
// h.poolSize concurrent goroutines, and blocks until all workers finish.
// Real asynchronous dispatch is not exercised by the host fallback — every
// launch is synchronous with respect to the caller — but Synchronize still
// observes and reports the same errors a genuinely async backend would only
// surface at the next synchronize point.
func (h *hostAccelerator) Launch(s Stream, grid int, fn func(worker int) error) error {
	if grid <= 0 {
		return nil
	}
	sem := make(chan struct{}, h.poolSize)
	var wg sync.WaitGroup
	var errOnce sync.Once
	var firstErr error

	for w := 0; w < grid; w++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(worker int) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := fn(worker); err != nil {
				errOnce.Do(func() { firstErr = err })
			}
		}(w)
	}
	wg.Wait()

	if firstErr != nil {
		h.mu.Lock()
		h.lastErr = firstErr
		h.mu.Unlock()
		return firstErr
	}
	return nil
}

// Synchronize has nothing to wait for, since Launch already blocks until its
// workers finish. It returns the most recent error recorded by any Launch on
// this accelerator, whichever stream that launch used.
func (h *hostAccelerator) Synchronize(s Stream) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

func (h *hostAccelerator) LastError() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}
