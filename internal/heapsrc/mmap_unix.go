//go:build unix

package heapsrc

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MmapArena is a Source backed by one anonymous mmap reservation. The
// OS commits physical pages lazily as they're touched, so reserving
// the whole ceiling up front costs address space, not RAM.
type MmapArena struct {
	mu     sync.Mutex
	region []byte
	used   uintptr
	base   uintptr
	closed bool
}

// NewMmapArena reserves a ceilingBytes-sized anonymous mapping.
func NewMmapArena(ceilingBytes uintptr) (*MmapArena, error) {
	region, err := unix.Mmap(-1, 0, int(ceilingBytes), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}

	var base uintptr
	if len(region) > 0 {
		base = uintptr(unsafe.Pointer(&region[0]))
	}

	return &MmapArena{region: region, base: base}, nil
}

// Extend implements Source.
func (m *MmapArena) Extend(n uintptr) (uintptr, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || n == 0 || m.used+n > uintptr(len(m.region)) {
		return 0, false
	}

	ret := m.base + m.used
	m.used += n

	return ret, true
}

// Lo implements Source.
func (m *MmapArena) Lo() uintptr {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.base
}

// Hi implements Source.
func (m *MmapArena) Hi() uintptr {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.base + m.used
}

// Close releases the mapping. Any blockRef derived from this arena is
// invalid afterward.
func (m *MmapArena) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true

	return unix.Munmap(m.region)
}
