//go:build unix

package heapsrc

// NewDefault returns the best Source available on this platform: a
// real anonymous mmap reservation on unix targets.
func NewDefault(ceilingBytes uintptr) (Source, error) {
	return NewMmapArena(ceilingBytes)
}
