package session

// Lock is a single-slot lock. TryAcquire never blocks. Only the goroutine
// that acquired the lock may Release it; releasing an unheld lock panics.
type Lock struct {
	slot chan struct{}
}

func NewLock() *Lock {
	return &Lock{slot: make(chan struct{}, 1)}
}

func (l *Lock) TryAcquire() bool {
	select {
	case l.slot <- struct{}{}:
		return true
	default:
		return false
	}
}

func (l *Lock) Release() {
	select {
	case <-l.slot:
	default:
		panic("session: release of unheld lock")
	}
}

func (l *Lock) Held() bool {
	return len(l.slot) == 1
}
