package usecase

import (
	"context"
	"fmt"

	"github.com/stakeplay/tictactoe-arena/internal/entity"
)

// Directory is the operation surface presentation layers consume: create,
// list, join, move and read room snapshots.
type Directory interface {
	CreateRoom(ctx context.Context, userID, name string, wagerAmount int64) (*entity.Room, error)
	ListRooms(ctx context.Context, statusFilter string) ([]entity.RoomSummary, error)
	JoinRoom(ctx context.Context, roomID, userID string) (*entity.Room, error)
	ApplyMove(ctx context.Context, roomID, userID string, cell int) (*entity.Room, error)
	GetRoom(ctx context.Context, roomID string) (*entity.Room, error)
}

type roomService interface {
	CreateRoom(ctx context.Context, userID, name string, wagerAmount int64) (*entity.Room, error)
	JoinRoom(ctx context.Context, roomID, userID string) (*entity.Room, error)
	ListRooms(ctx context.Context, statusFilter string) ([]entity.RoomSummary, error)
	GetRoom(ctx context.Context, roomID string) (*entity.Room, error)
}

type gameplayService interface {
	ApplyMove(ctx context.Context, roomID, userID string, cell int) (*entity.Room, error)
}

type directory struct {
	roomService     roomService
	gameplayService gameplayService
}

func NewDirectory(roomService roomService, gameplayService gameplayService) Directory {
	return &directory{
		roomService:     roomService,
		gameplayService: gameplayService,
	}
}

func (that *directory) CreateRoom(ctx context.Context, userID, name string, wagerAmount int64) (*entity.Room, error) {
	room, err := that.roomService.CreateRoom(ctx, userID, name, wagerAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	return room, nil
}

func (that *directory) ListRooms(ctx context.Context, statusFilter string) ([]entity.RoomSummary, error) {
	summaries, err := that.roomService.ListRooms(ctx, statusFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	return summaries, nil
}

func (that *directory) JoinRoom(ctx context.Context, roomID, userID string) (*entity.Room, error) {
	room, err := that.roomService.JoinRoom(ctx, roomID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to join room: %w", err)
	}

	return room, nil
}

func (that *directory) ApplyMove(ctx context.Context, roomID, userID string, cell int) (*entity.Room, error) {
	room, err := that.gameplayService.ApplyMove(ctx, roomID, userID, cell)
	if err != nil {
		return nil, fmt.Errorf("failed to apply move: %w", err)
	}

	return room, nil
}

func (that *directory) GetRoom(ctx context.Context, roomID string) (*entity.Room, error) {
	room, err := that.roomService.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	return room, nil
}
