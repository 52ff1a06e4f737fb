package printer

import (
	"context"
	"time"
)

// Transmission defaults sized for the BLE minimum MTU.
const (
	DefaultChunkSize    = 20
	DefaultChunkDelay   = 10 * time.Millisecond
	DefaultWriteTimeout = 2 * time.Second
)

// ChunkWriter writes one chunk to the active channel.
type ChunkWriter interface {
	WriteChunk(ctx context.Context, p []byte) error
}

// SplitChunks cuts buf into size-byte pieces; only the last may be shorter.
// The pieces alias buf.
func SplitChunks(buf []byte, size int) [][]byte {
	if size <= 0 {
		size = DefaultChunkSize
	}
	chunks := make([][]byte, 0, (len(buf)+size-1)/size)
	for start := 0; start < len(buf); start += size {
		end := min(start+size, len(buf))
		chunks = append(chunks, buf[start:end:end])
	}
	return chunks
}

// Transmitter writes buffers chunk by chunk with a fixed pause between writes.
// It assumes a single writer; callers serialize Send.
type Transmitter struct {
	ChunkSize    int
	Delay        time.Duration
	WriteTimeout time.Duration

	// OnChunk, when set, is called after every successful chunk write.
	OnChunk func(n int)

	sleep func(time.Duration)
}

// NewTransmitter returns a transmitter with the default chunking.
func NewTransmitter() *Transmitter {
	return &Transmitter{
		ChunkSize:    DefaultChunkSize,
		Delay:        DefaultChunkDelay,
		WriteTimeout: DefaultWriteTimeout,
		sleep:        time.Sleep,
	}
}

// Send writes buf to w. Once started, the sequence is not cancelled by ctx;
// it ends after the last chunk or at the first failing chunk.
func (t *Transmitter) Send(ctx context.Context, w ChunkWriter, buf []byte) error {
	// cancellation is ignored mid-sequence, deadlines come from WriteTimeout
	base := context.WithoutCancel(ctx)
	sleep := t.sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	for i, chunk := range SplitChunks(buf, t.ChunkSize) {
		if i > 0 && t.Delay > 0 {
			sleep(t.Delay)
		}
		if err := t.writeOne(base, w, chunk); err != nil {
			return &WriteError{chunk: i, Err: err}
		}
		if t.OnChunk != nil {
			t.OnChunk(len(chunk))
		}
	}
	return nil
}

func (t *Transmitter) writeOne(ctx context.Context, w ChunkWriter, chunk []byte) error {
	if t.WriteTimeout <= 0 {
		return w.WriteChunk(ctx, chunk)
	}
	ctx, cancel := context.WithTimeout(ctx, t.WriteTimeout)
	defer cancel()
	return w.WriteChunk(ctx, chunk)
}
