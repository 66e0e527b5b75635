package audio

// Drain reads from ch until the channel is closed, discarding all values.
// Use this to prevent goroutine leaks when a stream's frames are no longer
// needed but the producer has not yet shut down.
func Drain[T any](ch <-chan T) {
	for range ch {
	}
}
