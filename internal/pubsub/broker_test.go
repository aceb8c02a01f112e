package pubsub

import (
	"testing"

	"github.com/stakeplay/tictactoe-arena/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_PublishSubscribe(t *testing.T) {
	t.Run("Delivers snapshots to every subscriber of the room", func(t *testing.T) {
		// Given: two subscribers on one room and one on another
		broker := NewBroker()
		ch1, cancel1 := broker.Subscribe("room-1")
		defer cancel1()
		ch2, cancel2 := broker.Subscribe("room-1")
		defer cancel2()
		other, cancelOther := broker.Subscribe("room-2")
		defer cancelOther()

		// When: publishing a snapshot of room-1
		snapshot := &entity.Room{ID: "room-1", Version: 3}
		broker.Publish("room-1", snapshot)

		// Then: both room-1 subscribers get it, the room-2 one does not
		assert.Equal(t, snapshot, <-ch1)
		assert.Equal(t, snapshot, <-ch2)
		assert.Empty(t, other)
	})

	t.Run("Publishing to a room without subscribers is a no-op", func(t *testing.T) {
		broker := NewBroker()

		broker.Publish("room-1", &entity.Room{ID: "room-1"})
	})

	t.Run("Cancel closes the channel and stops delivery", func(t *testing.T) {
		// Given: a subscriber that unsubscribes
		broker := NewBroker()
		ch, cancel := broker.Subscribe("room-1")
		cancel()

		// When: publishing after the unsubscribe
		broker.Publish("room-1", &entity.Room{ID: "room-1"})

		// Then: the channel is closed and empty
		_, open := <-ch
		assert.False(t, open)
	})

	t.Run("A slow subscriber never blocks a publish", func(t *testing.T) {
		// Given: a subscriber that never reads
		broker := NewBroker()
		ch, cancel := broker.Subscribe("room-1")
		defer cancel()

		// When: publishing far more snapshots than the buffer holds
		for version := 0; version < 100; version++ {
			broker.Publish("room-1", &entity.Room{ID: "room-1", Version: int64(version)})
		}

		// Then: the publisher returned and the buffer holds the oldest snapshots
		first := <-ch
		require.NotNil(t, first)
		assert.Equal(t, int64(0), first.Version)
	})
}
