package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stakeplay/tictactoe-arena/internal/apperror"
	"github.com/stakeplay/tictactoe-arena/internal/entity"
)

type GameplayService interface {
	ApplyMove(ctx context.Context, roomID, userID string, cell int) (*entity.Room, error)
}

type gameplayService struct {
	logger *slog.Logger

	roomRepo  roomRepo
	escrow    EscrowService
	publisher publisher

	commitRetries int
}

func NewGameplayService(logger *slog.Logger, roomRepo roomRepo, escrow EscrowService, publisher publisher, commitRetries int) GameplayService {
	return &gameplayService{
		logger:        logger.With("component", "gameplay-service"),
		roomRepo:      roomRepo,
		escrow:        escrow,
		publisher:     publisher,
		commitRetries: commitRetries,
	}
}

// ApplyMove runs one read-validate-commit cycle per attempt. A terminal move
// carries its settlement ops in the same commit as the status transition, so
// the pot can never be paid out without the room completing or vice versa.
func (that *gameplayService) ApplyMove(ctx context.Context, roomID, userID string, cell int) (*entity.Room, error) {
	for attempt := 0; attempt < that.commitRetries; attempt++ {
		room, err := that.roomRepo.GetByID(ctx, roomID)
		if err != nil {
			return nil, fmt.Errorf("failed to get room by id: %w", err)
		}

		version := room.Version
		if err = room.ApplyMove(userID, cell); err != nil {
			return nil, err
		}

		var ops []entity.LedgerOp
		if room.IsCompleted() {
			ops, err = that.escrow.SettlementOps(room)
			if err != nil {
				return nil, fmt.Errorf("failed to compute settlement: %w", err)
			}
			room.Settled = true
		}

		err = that.roomRepo.CommitWithLedger(ctx, room, version, ops)
		if errors.Is(err, apperror.ErrStateConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to commit move: %w", err)
		}

		that.publisher.Publish(room.ID, room)

		if room.IsCompleted() {
			that.logger.Info("room completed", "roomID", room.ID, "winner", room.Winner)
		}

		return room, nil
	}

	return nil, apperror.ErrStateConflict
}
