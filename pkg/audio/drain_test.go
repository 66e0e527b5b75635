package audio

import (
	"testing"
	"time"
)

func TestDrain_ConsumesUntilClose(t *testing.T) {
	t.Parallel()

	ch := make(chan Frame)
	done := make(chan struct{})
	go func() {
		Drain(ch)
		close(done)
	}()

	// An unbuffered producer must never block once the drain is running.
	for i := 0; i < 10; i++ {
		select {
		case ch <- Frame{SampleRate: 48000}:
		case <-time.After(2 * time.Second):
			t.Fatal("send blocked while draining")
		}
	}
	close(ch)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Drain did not return after channel close")
	}
}
