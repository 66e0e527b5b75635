package source

// MemReader is a [Reader] over an in-memory sample slice. It backs the
// decoded file readers and doubles as a test fixture.
type MemReader struct {
	samples []float32
	rate    int
}

// NewMemReader wraps samples taken at rate Hz. The slice is not copied;
// the caller must not mutate it afterwards.
func NewMemReader(samples []float32, rate int) *MemReader {
	return &MemReader{samples: samples, rate: rate}
}

// ReadAt implements [Reader].
func (m *MemReader) ReadAt(dst []float32, offset int64) int {
	if offset < 0 {
		offset = 0
	}

	n := 0
	if offset < int64(len(m.samples)) {
		n = copy(dst, m.samples[offset:])
	}
	clear(dst[n:])
	return n
}

// SampleRate implements [Reader].
func (m *MemReader) SampleRate() int { return m.rate }

// Len implements [Reader].
func (m *MemReader) Len() int64 { return int64(len(m.samples)) }

// Close implements [Reader].
func (m *MemReader) Close() error {
	m.samples = nil
	return nil
}
