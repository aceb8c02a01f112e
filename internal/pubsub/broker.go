package pubsub

import (
	"sync"

	"github.com/stakeplay/tictactoe-arena/internal/entity"
)

const subscriberBuffer = 8

// Broker fans committed room snapshots out to per-room subscribers. A
// client's "refresh" is an event delivered on commit rather than a poll;
// unsubscribing is the cancellation.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan *entity.Room]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan *entity.Room]struct{}),
	}
}

// Subscribe registers for snapshots of one room. The returned cancel func
// must be called exactly once; it closes the channel.
func (that *Broker) Subscribe(roomID string) (<-chan *entity.Room, func()) {
	ch := make(chan *entity.Room, subscriberBuffer)

	that.mu.Lock()
	if that.subs[roomID] == nil {
		that.subs[roomID] = make(map[chan *entity.Room]struct{})
	}
	that.subs[roomID][ch] = struct{}{}
	that.mu.Unlock()

	cancel := func() {
		that.mu.Lock()
		defer that.mu.Unlock()

		if set, ok := that.subs[roomID]; ok {
			if _, ok = set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(that.subs, roomID)
			}
		}
	}

	return ch, cancel
}

// Publish delivers a snapshot to every subscriber of the room. Publishing
// never blocks a commit: a subscriber whose buffer is full misses that
// snapshot and catches up on the next one.
func (that *Broker) Publish(roomID string, room *entity.Room) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	for ch := range that.subs[roomID] {
		select {
		case ch <- room:
		default:
		}
	}
}
