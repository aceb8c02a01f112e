package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stakeplay/tictactoe-arena/internal/apperror"
	"github.com/stakeplay/tictactoe-arena/internal/entity"
)

var validate = validator.New()

var statusPriority = map[string]int{
	entity.StatusWaiting:    0,
	entity.StatusInProgress: 1,
	entity.StatusCompleted:  2,
}

// RoomService owns the room collection: it is the only path through which
// rooms are created, joined or listed.
type RoomService interface {
	CreateRoom(ctx context.Context, userID, name string, wagerAmount int64) (*entity.Room, error)
	JoinRoom(ctx context.Context, roomID, userID string) (*entity.Room, error)
	ListRooms(ctx context.Context, statusFilter string) ([]entity.RoomSummary, error)
	GetRoom(ctx context.Context, roomID string) (*entity.Room, error)
}

type roomRepo interface {
	CreateWithDebit(ctx context.Context, room *entity.Room, debit entity.LedgerOp) error
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	List(ctx context.Context) ([]*entity.Room, error)
	CommitWithLedger(ctx context.Context, room *entity.Room, expectedVersion int64, ops []entity.LedgerOp) error
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
}

type publisher interface {
	Publish(roomID string, room *entity.Room)
}

type createRoomRequest struct {
	Name        string `validate:"required,min=1,max=64"`
	WagerAmount int64  `validate:"required,min=1"`
}

type roomService struct {
	logger *slog.Logger

	roomRepo  roomRepo
	users     userFinder
	publisher publisher

	commitRetries int
}

func NewRoomService(logger *slog.Logger, roomRepo roomRepo, users userFinder, publisher publisher, commitRetries int) RoomService {
	return &roomService{
		logger:        logger.With("component", "room-service"),
		roomRepo:      roomRepo,
		users:         users,
		publisher:     publisher,
		commitRetries: commitRetries,
	}
}

// CreateRoom opens a new waiting room and escrows the creator's stake in the
// same commit. The create watches the creator's balance, so an unrelated
// deposit or settlement landing at the same moment aborts it; such conflicts
// are retried a bounded number of times before surfacing.
func (that *roomService) CreateRoom(ctx context.Context, userID, name string, wagerAmount int64) (*entity.Room, error) {
	req := createRoomRequest{Name: name, WagerAmount: wagerAmount}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", apperror.ErrInvalidInput, err)
	}

	creator, err := that.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	room := entity.NewRoom(uuid.NewString(), name, creator, wagerAmount)

	for attempt := 0; attempt < that.commitRetries; attempt++ {
		err = that.roomRepo.CreateWithDebit(ctx, room, entity.Debit(creator.ID, wagerAmount))
		if errors.Is(err, apperror.ErrStateConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create room: %w", err)
		}

		that.logger.Info("room created", "roomID", room.ID, "creator", creator.ID, "wager", wagerAmount)

		return room, nil
	}

	return nil, apperror.ErrStateConflict
}

// JoinRoom seats userID as player2 and escrows their stake. The
// read-validate-commit cycle retries on version conflicts a bounded number of
// times; when the room was taken by a racing joiner the retry observes
// in_progress and fails with ErrRoomUnavailable.
func (that *roomService) JoinRoom(ctx context.Context, roomID, userID string) (*entity.Room, error) {
	joiner, err := that.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	for attempt := 0; attempt < that.commitRetries; attempt++ {
		room, err := that.roomRepo.GetByID(ctx, roomID)
		if err != nil {
			return nil, fmt.Errorf("failed to get room by id: %w", err)
		}

		version := room.Version
		if err = room.Seat(joiner); err != nil {
			return nil, err
		}

		err = that.roomRepo.CommitWithLedger(ctx, room, version, []entity.LedgerOp{entity.Debit(joiner.ID, room.WagerAmount)})
		if errors.Is(err, apperror.ErrStateConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to commit join: %w", err)
		}

		that.publisher.Publish(room.ID, room)

		that.logger.Info("player joined room", "roomID", room.ID, "player", joiner.ID)

		return room, nil
	}

	return nil, apperror.ErrStateConflict
}

// ListRooms returns a point-in-time snapshot ordered waiting first, then
// in progress, then completed, newest first within each group.
func (that *roomService) ListRooms(ctx context.Context, statusFilter string) ([]entity.RoomSummary, error) {
	switch statusFilter {
	case "", entity.StatusWaiting, entity.StatusInProgress, entity.StatusCompleted:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", apperror.ErrInvalidInput, statusFilter)
	}

	rooms, err := that.roomRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	if statusFilter != "" {
		rooms = lo.Filter(rooms, func(room *entity.Room, _ int) bool {
			return room.Status == statusFilter
		})
	}

	sort.Slice(rooms, func(i, j int) bool {
		if statusPriority[rooms[i].Status] != statusPriority[rooms[j].Status] {
			return statusPriority[rooms[i].Status] < statusPriority[rooms[j].Status]
		}
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})

	return lo.Map(rooms, func(room *entity.Room, _ int) entity.RoomSummary {
		return room.Summary()
	}), nil
}

func (that *roomService) GetRoom(ctx context.Context, roomID string) (*entity.Room, error) {
	room, err := that.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room by id: %w", err)
	}

	return room, nil
}
