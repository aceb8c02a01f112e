package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stakeplay/tictactoe-arena/internal/apperror"
	"github.com/stakeplay/tictactoe-arena/internal/entity"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

type roomDirectory interface {
	GetRoom(ctx context.Context, roomID string) (*entity.Room, error)
}

type broker interface {
	Subscribe(roomID string) (<-chan *entity.Room, func())
}

// Server streams room snapshots to subscribed clients: one snapshot on
// connect, then one per committed mutation until the client disconnects.
type Server struct {
	logger *slog.Logger

	directory roomDirectory
	broker    broker

	upgrader websocket.Upgrader
}

func New(logger *slog.Logger, directory roomDirectory, broker broker) *Server {
	return &Server{
		logger:    logger.With("component", "websocket"),
		directory: directory,
		broker:    broker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(_ *http.Request) bool { return true },
		},
	}
}

func (that *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]

	if _, err := that.directory.GetRoom(r.Context(), roomID); err != nil {
		if errors.Is(err, apperror.ErrRoomNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		that.logger.Error("failed to get room", "roomID", roomID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		that.logger.Error("failed to upgrade connection", "roomID", roomID, "error", err)
		return
	}
	defer conn.Close()

	log := that.logger.With("roomID", roomID)
	log.Info("room subscription established")

	// Subscribe before reading the initial snapshot: a commit landing in the
	// connect window then shows up either in that read or on the channel. A
	// duplicate snapshot is harmless, a missed one is not.
	snapshots, cancel := that.broker.Subscribe(roomID)
	defer cancel()

	room, err := that.directory.GetRoom(r.Context(), roomID)
	if err != nil {
		log.Error("failed to get room", "error", err)
		return
	}

	if err = that.writeSnapshot(conn, room); err != nil {
		log.Error("failed to send initial snapshot", "error", err)
		return
	}

	// The read loop exists only to notice the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			log.Info("client disconnected")
			return
		case snapshot := <-snapshots:
			if err = that.writeSnapshot(conn, snapshot); err != nil {
				log.Error("failed to send snapshot", "error", err)
				return
			}
		case <-ticker.C:
			if err = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Error("failed to ping client", "error", err)
				return
			}
		}
	}
}

func (that *Server) writeSnapshot(conn *websocket.Conn, room *entity.Room) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return conn.WriteJSON(room)
}
