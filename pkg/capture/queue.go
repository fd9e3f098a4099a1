// Package capture runs the background producers that feed the pipeline:
// microphone chunks into a bounded queue and camera frames into a single slot.
package capture

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-jarvis/pkg/audioio"
)

// ErrQueueOverflow is returned by Offer when the queue is full and the chunk was dropped.
var ErrQueueOverflow = errors.New("capture: chunk queue full")

// ChunkQueue is a bounded single-producer, single-consumer chunk queue that
// drops the newest chunk instead of blocking the producer.
type ChunkQueue struct {
	ch        chan audioio.AudioChunk
	drops     atomic.Int64
	closeOnce sync.Once
}

// NewChunkQueue creates a queue holding up to size chunks.
func NewChunkQueue(size int) *ChunkQueue {
	if size < 1 {
		size = 1
	}
	return &ChunkQueue{ch: make(chan audioio.AudioChunk, size)}
}

// Offer enqueues c without blocking. When the queue is full c is dropped,
// the drop counter is incremented and ErrQueueOverflow is returned.
func (q *ChunkQueue) Offer(c audioio.AudioChunk) error {
	select {
	case q.ch <- c:
		return nil
	default:
		q.drops.Add(1)
		return ErrQueueOverflow
	}
}

// C returns the receive side of the queue. It is closed when the producer exits.
func (q *ChunkQueue) C() <-chan audioio.AudioChunk {
	return q.ch
}

// Drops returns the number of chunks dropped so far.
func (q *ChunkQueue) Drops() int64 {
	return q.drops.Load()
}

// Len returns the number of queued chunks.
func (q *ChunkQueue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *ChunkQueue) Cap() int {
	return cap(q.ch)
}

// Close closes the queue. Only the producer may call it.
func (q *ChunkQueue) Close() {
	q.closeOnce.Do(func() { close(q.ch) })
}
