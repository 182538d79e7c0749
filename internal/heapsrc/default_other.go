//go:build !unix

package heapsrc

// NewDefault returns the best Source available on this platform: a
// pre-reserved Go slice on non-unix targets (no portable anonymous
// mmap primitive in golang.org/x/sys outside the unix build tag).
func NewDefault(ceilingBytes uintptr) (Source, error) {
	return NewByteArena(ceilingBytes), nil
}
