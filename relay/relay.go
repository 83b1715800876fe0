// Package relay carries structured log records from execution units back to
// the log sink of the pool that owns them.
//
// Units never write to the real sink directly. Each unit logs through a
// zapcore.Core (see NewCore) that pushes records onto a shared Channel, and a
// single Relay loop per owning pool drains that channel and re-emits every
// record into the pool's *zap.Logger, preserving level and fields.
//
// Nesting composes by passing the Channel down explicitly: a job that builds
// its own pool hands the parent's Channel to the child, so the child starts no
// relay of its own and records from arbitrarily deep descendants travel over
// one channel to a single consumer. There is no global registry of channels.
package relay

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultBuffer is the record buffer used by NewChannel when no size is given.
const DefaultBuffer = 1024

// Record is one log message produced inside an execution unit.
type Record struct {
	Time    time.Time
	Level   zapcore.Level
	Message string
	Fields  []zapcore.Field
}

// Channel is a many-producer, single-consumer conduit of Records.
// Producers are execution units (including units of nested pools); the
// consumer is exactly one Relay. Close is idempotent and must only be called
// by the channel's owner after all producers have stopped.
type Channel struct {
	records   chan Record
	closeOnce sync.Once
}

// NewChannel creates a Channel with the given buffer size.
// A size <= 0 selects DefaultBuffer.
func NewChannel(size int) *Channel {
	if size <= 0 {
		size = DefaultBuffer
	}
	return &Channel{records: make(chan Record, size)}
}

// Send enqueues a record, blocking while the buffer is full.
func (c *Channel) Send(rec Record) {
	c.records <- rec
}

// Records exposes the receive side of the channel to the relay loop.
func (c *Channel) Records() <-chan Record {
	return c.records
}

// Close stops the channel. Pending records remain readable until drained.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.records)
	})
}

// Relay is the single consumer loop that forwards records from a Channel into
// the real log sink. One relay runs per pool that owns its channel; pools
// handed an external channel start none, which is what keeps records from
// being emitted twice as they travel up through nested pools.
type Relay struct {
	ch        *Channel
	sink      *zap.Logger
	done      chan struct{}
	startOnce sync.Once
}

// New creates a relay forwarding records from ch into sink.
func New(ch *Channel, sink *zap.Logger) *Relay {
	return &Relay{
		ch:   ch,
		sink: sink,
		done: make(chan struct{}),
	}
}

// Start launches the drain loop. The loop runs until the channel is closed
// and fully drained; Start is idempotent.
func (r *Relay) Start() {
	r.startOnce.Do(func() {
		go r.drain()
	})
}

// Done is closed once the drain loop has forwarded every record.
func (r *Relay) Done() <-chan struct{} {
	return r.done
}

func (r *Relay) drain() {
	defer close(r.done)
	for rec := range r.ch.Records() {
		r.sink.Log(rec.Level, rec.Message, rec.Fields...)
	}
	_ = r.sink.Sync()
}
