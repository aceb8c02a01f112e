package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	gws "github.com/gorilla/websocket"
	"github.com/stakeplay/tictactoe-arena/internal/apperror"
	"github.com/stakeplay/tictactoe-arena/internal/entity"
	"github.com/stakeplay/tictactoe-arena/internal/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeDirectory serves a fixed room. When commitDuringRead is set, the second
// GetRoom call publishes it before returning the stale snapshot, mimicking a
// move that commits while the client is still connecting.
type fakeDirectory struct {
	broker *pubsub.Broker

	mu               sync.Mutex
	room             *entity.Room
	reads            int
	commitDuringRead *entity.Room
}

func (that *fakeDirectory) GetRoom(_ context.Context, roomID string) (*entity.Room, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.room == nil {
		return nil, apperror.ErrRoomNotFound
	}

	that.reads++
	if that.reads == 2 && that.commitDuringRead != nil {
		that.broker.Publish(roomID, that.commitDuringRead)
	}

	return that.room, nil
}

func newStreamFixture(t *testing.T, directory *fakeDirectory, broker *pubsub.Broker) *gws.Conn {
	t.Helper()

	router := mux.NewRouter()
	router.Handle("/ws/rooms/{roomID}", New(testLogger, directory, broker))

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/rooms/room-1"

	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	return conn
}

func TestServer_ServeHTTP(t *testing.T) {
	t.Run("Sends the current snapshot on connect and pushes commits", func(t *testing.T) {
		broker := pubsub.NewBroker()
		room := &entity.Room{ID: "room-1", Status: entity.StatusInProgress, Version: 1}
		conn := newStreamFixture(t, &fakeDirectory{broker: broker, room: room}, broker)

		// Then: the initial snapshot arrives without any commit happening
		var initial entity.Room
		require.NoError(t, conn.ReadJSON(&initial))
		assert.Equal(t, int64(1), initial.Version)

		// When: a later commit publishes
		broker.Publish("room-1", &entity.Room{ID: "room-1", Status: entity.StatusInProgress, Version: 2})

		var pushed entity.Room
		require.NoError(t, conn.ReadJSON(&pushed))
		assert.Equal(t, int64(2), pushed.Version)
	})

	t.Run("Delivers a commit that lands while the client connects", func(t *testing.T) {
		broker := pubsub.NewBroker()

		// Given: the terminal move commits in the window between the
		// subscription and the initial snapshot read
		stale := &entity.Room{ID: "room-1", Status: entity.StatusInProgress, Version: 1}
		terminal := &entity.Room{ID: "room-1", Status: entity.StatusCompleted, Winner: "alice-id", Version: 2}
		directory := &fakeDirectory{broker: broker, room: stale, commitDuringRead: terminal}

		conn := newStreamFixture(t, directory, broker)

		// Then: the stale initial snapshot arrives first
		var initial entity.Room
		require.NoError(t, conn.ReadJSON(&initial))
		assert.Equal(t, int64(1), initial.Version)

		// And: the completion is not lost, it follows on the stream
		var completed entity.Room
		require.NoError(t, conn.ReadJSON(&completed))
		assert.Equal(t, entity.StatusCompleted, completed.Status)
		assert.Equal(t, "alice-id", completed.Winner)
	})

	t.Run("Rejects an unknown room before upgrading", func(t *testing.T) {
		broker := pubsub.NewBroker()

		router := mux.NewRouter()
		router.Handle("/ws/rooms/{roomID}", New(testLogger, &fakeDirectory{broker: broker}, broker))

		server := httptest.NewServer(router)
		t.Cleanup(server.Close)

		url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/rooms/missing"

		_, resp, err := gws.DefaultDialer.Dial(url, nil)

		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
