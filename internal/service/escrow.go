package service

import (
	"fmt"

	"github.com/stakeplay/tictactoe-arena/internal/apperror"
	"github.com/stakeplay/tictactoe-arena/internal/entity"
)

type EscrowService interface {
	SettlementOps(room *entity.Room) ([]entity.LedgerOp, error)
}

type escrowService struct{}

func NewEscrowService() EscrowService {
	return &escrowService{}
}

// SettlementOps computes the credit transfer implied by a completed room:
// a draw refunds each player's stake, a win pays the whole pot of
// 2 x wager to the winner. The Settled flag guards against replays; the
// caller flips it and commits it atomically with these ops.
func (that *escrowService) SettlementOps(room *entity.Room) ([]entity.LedgerOp, error) {
	if !room.IsCompleted() {
		return nil, fmt.Errorf("%w: settlement requires a completed room", apperror.ErrGameNotActive)
	}

	if room.Settled {
		return nil, apperror.ErrReplaySettlement
	}

	if room.Winner == entity.WinnerDraw {
		return []entity.LedgerOp{
			entity.Credit(room.Player1ID, room.WagerAmount),
			entity.Credit(room.Player2ID, room.WagerAmount),
		}, nil
	}

	return []entity.LedgerOp{
		entity.Credit(room.Winner, 2 * room.WagerAmount),
	}, nil
}
