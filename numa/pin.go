package numa

// Pinner binds the calling goroutine's OS thread to a logical CPU. The
// caller must have called runtime.LockOSThread beforehand.
type Pinner interface {
	Pin(cpu int) error
}

// NopPinner leaves threads wherever the scheduler puts them.
type NopPinner struct{}

func (NopPinner) Pin(int) error { return nil }

// AffinityPinner pins via the platform's thread affinity call.
type AffinityPinner struct{}

func (AffinityPinner) Pin(cpu int) error {
	return pinCurrentThread(cpu)
}
