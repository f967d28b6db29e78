package protocol

// Buffer accumulates stream chunks and yields complete messages.
// It is not safe for concurrent use.
type Buffer struct {
	data []byte
}

// Write appends a chunk read from the stream
func (b *Buffer) Write(chunk []byte) {
	b.data = append(b.data, chunk...)
}

// Next returns the next complete message, or nil when more bytes are
// needed. A malformed frame is dropped and its error returned; when the
// frame boundary itself is unreadable the whole buffer is discarded.
func (b *Buffer) Next() (Message, error) {
	msg, n, err := Decode(b.data)
	if err != nil {
		if n == 0 {
			b.Reset()
		} else {
			b.consume(n)
		}
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	b.consume(n)
	return msg, nil
}

// Len returns the number of buffered bytes
func (b *Buffer) Len() int {
	return len(b.data)
}

// Reset discards buffered bytes
func (b *Buffer) Reset() {
	b.data = b.data[:0]
}

func (b *Buffer) consume(n int) {
	rest := copy(b.data, b.data[n:])
	b.data = b.data[:rest]
}
