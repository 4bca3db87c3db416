package chunksystem

import "testing"

func TestSignalCollapsesRedundantNotifies(t *testing.T) {
	s := NewSignal()

	s.Notify()
	s.Notify()
	s.Notify()

	select {
	case <-s.Wake():
	default:
		t.Fatal("expected a wake after the first notify")
	}
	select {
	case <-s.Wake():
		t.Fatal("redundant notifies should not queue a second wake")
	default:
	}

	if !s.CheckAndClear() {
		t.Fatal("expected triggered=true before CheckAndClear")
	}
	if s.CheckAndClear() {
		t.Fatal("CheckAndClear should clear the flag on read")
	}
}

func TestSignalRearmsAfterClear(t *testing.T) {
	s := NewSignal()
	s.Notify()
	s.CheckAndClear()

	s.Notify()
	select {
	case <-s.Wake():
	default:
		t.Fatal("expected a new wake after the flag was cleared and re-notified")
	}
	if !s.CheckAndClear() {
		t.Fatal("expected triggered=true again")
	}
}
