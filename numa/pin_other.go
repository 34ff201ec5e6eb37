//go:build !linux

package numa

// Thread affinity is not available outside Linux, threads stay unpinned.
func pinCurrentThread(int) error {
	return nil
}
