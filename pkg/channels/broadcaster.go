package channels

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// subscriber holds a channel and its send timeout configuration.
type subscriber[T any] struct {
	ch       chan<- T
	timeout  time.Duration // zero means non-blocking
	inactive atomic.Bool
	dropped  atomic.Int32
}

func (s *subscriber[T]) send(msg T) {
	if s.inactive.Load() {
		s.dropped.Add(1)
		return
	}

	var err error
	if s.timeout > 0 {
		err = SendWithTimeout(s.ch, msg, s.timeout)
	} else {
		err = SendNonBlock(s.ch, msg)
	}

	if err != nil {
		s.dropped.Add(1)
		if errors.Is(err, ErrChannelClosed) {
			s.inactive.Store(true)
		}
	}
}

// Broadcaster copies every message written to its input channel to each
// subscriber channel. It owns the input channel: cancelling the context passed
// to Run closes it and the remaining messages are drained to subscribers.
//
// Subscribers registered with Subscribe never block the broadcaster and lose
// messages when full. Subscribers registered with SubscribeWithTimeout wait up
// to their timeout before a message is dropped.
type Broadcaster[T any] struct {
	subscribers []*subscriber[T]
	input       chan T
	started     atomic.Bool
	wg          sync.WaitGroup
}

// NewBroadcaster creates an empty Broadcaster for messages of type T.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{}
}

// Subscribe adds a non-blocking subscriber. Must be called before Run.
func (b *Broadcaster[T]) Subscribe(ch chan<- T) error {
	if ch == nil {
		return fmt.Errorf("subscribe: %w", ErrNilChannel)
	}

	b.subscribers = append(b.subscribers, &subscriber[T]{ch: ch})

	return nil
}

// SubscribeWithTimeout adds a subscriber that may block the broadcaster for up
// to timeout per message. Must be called before Run.
func (b *Broadcaster[T]) SubscribeWithTimeout(ch chan<- T, timeout time.Duration) error {
	if ch == nil {
		return fmt.Errorf("subscribe: %w", ErrNilChannel)
	}

	if timeout <= 0 {
		return errors.New("subscribe: timeout must be positive")
	}

	b.subscribers = append(b.subscribers, &subscriber[T]{ch: ch, timeout: timeout})

	return nil
}

// Run starts broadcasting and returns the input channel. The channel is
// closed by the Broadcaster once ctx is done; callers must stop writing to it
// before cancelling.
func (b *Broadcaster[T]) Run(ctx context.Context) (chan<- T, error) {
	if len(b.subscribers) == 0 {
		return nil, errors.New("no subscribers available")
	}

	if !b.started.CompareAndSwap(false, true) {
		return nil, errors.New("broadcaster already started")
	}

	b.input = make(chan T, len(b.subscribers)*2)

	b.wg.Go(func() {
		for msg := range b.input {
			for _, sub := range b.subscribers {
				sub.send(msg)
			}
		}
	})

	go func() {
		<-ctx.Done()
		close(b.input)
	}()

	return b.input, nil
}

// Wait blocks until the input channel is closed and fully drained.
func (b *Broadcaster[T]) Wait() {
	b.wg.Wait()
}

// SubscriberStats reports delivery health for one subscriber.
type SubscriberStats struct {
	Dropped  int
	Inactive bool
}

// Stats returns per-subscriber stats in subscription order.
func (b *Broadcaster[T]) Stats() []SubscriberStats {
	stats := make([]SubscriberStats, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		stats = append(stats, SubscriberStats{
			Dropped:  int(sub.dropped.Load()),
			Inactive: sub.inactive.Load(),
		})
	}

	return stats
}
