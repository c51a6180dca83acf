package eventlog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Log appends events to a sink, maintains the hash chain, and fans each
// appended event out to subscribers. Appends are serialized; subscribers
// with full buffers are skipped rather than blocking a state transition.
type Log struct {
	mu       sync.Mutex
	sink     Sink
	lastSeq  uint64
	lastHash string
	loaded   bool

	subMu sync.Mutex
	subs  map[int]chan Event
	nextS int
}

// New creates a log over a sink. The chain head is recovered from the sink
// on first append, so reopening a persistent journal continues the chain.
func New(sink Sink) *Log {
	return &Log{sink: sink, subs: make(map[int]chan Event)}
}

// Append records one state transition and returns the stored event.
func (l *Log) Append(ctx context.Context, typ Type, tokenID uint64, attrs map[string]string) (Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.recover(ctx); err != nil {
		return Event{}, err
	}

	e := Event{
		ID:        uuid.New().String(),
		Seq:       l.lastSeq + 1,
		Type:      typ,
		TokenID:   tokenID,
		Timestamp: time.Now().UTC(),
		Attrs:     attrs,
		PrevHash:  l.lastHash,
	}
	hash, err := chainHash(l.lastHash, e)
	if err != nil {
		return Event{}, err
	}
	e.ChainHash = hash

	if err := l.sink.Append(ctx, e); err != nil {
		return Event{}, err
	}
	l.lastSeq = e.Seq
	l.lastHash = e.ChainHash

	l.publish(e)
	return e.Clone(), nil
}

// Events returns the full journal in order.
func (l *Log) Events(ctx context.Context) ([]Event, error) {
	return l.sink.Events(ctx)
}

// Subscribe registers a buffered listener for future events. The returned
// cancel function must be called to release the channel.
func (l *Log) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	l.subMu.Lock()
	id := l.nextS
	l.nextS++
	l.subs[id] = ch
	l.subMu.Unlock()

	cancel := func() {
		l.subMu.Lock()
		if _, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(ch)
		}
		l.subMu.Unlock()
	}
	return ch, cancel
}

func (l *Log) publish(e Event) {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	for _, ch := range l.subs {
		select {
		case ch <- e.Clone():
		default:
			// Slow subscriber: drop rather than stall the bridge.
		}
	}
}

// recover loads the chain head from the sink once.
func (l *Log) recover(ctx context.Context) error {
	if l.loaded {
		return nil
	}
	events, err := l.sink.Events(ctx)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		l.lastSeq = 0
		l.lastHash = genesisHash
	} else {
		last := events[len(events)-1]
		l.lastSeq = last.Seq
		l.lastHash = last.ChainHash
	}
	l.loaded = true
	return nil
}

// Close closes the underlying sink.
func (l *Log) Close() error { return l.sink.Close() }
