package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/stakeplay/tictactoe-arena/internal/apperror"
	"github.com/stakeplay/tictactoe-arena/internal/entity"
)

const (
	roomKeyPrefix = "room:"
	roomIndexKey  = "rooms:index"
)

type RoomRepository interface {
	CreateWithDebit(ctx context.Context, room *entity.Room, debit entity.LedgerOp) error
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	List(ctx context.Context) ([]*entity.Room, error)
	CommitWithLedger(ctx context.Context, room *entity.Room, expectedVersion int64, ops []entity.LedgerOp) error
}

type dbRoom struct {
	client *redis.Client
}

func NewRoomRepository(client *redis.Client) RoomRepository {
	return &dbRoom{
		client: client,
	}
}

// CreateWithDebit stores a fresh room and debits the creator's stake in one
// transaction. The room key and the creator's balance are watched, so a racing
// create on the same id or a concurrent balance change aborts the commit.
func (that *dbRoom) CreateWithDebit(ctx context.Context, room *entity.Room, debit entity.LedgerOp) error {
	roomJSON, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("could not marshal room: %w", err)
	}

	roomKey := roomKeyPrefix + room.ID
	balKey := balanceKey(debit.UserID)

	txFn := func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, roomKey).Result()
		if err != nil {
			return fmt.Errorf("failed to check room existence: %w", err)
		}
		if exists != 0 {
			return fmt.Errorf("%w: room %s already exists", apperror.ErrStateConflict, room.ID)
		}

		balance, err := readBalance(ctx, tx, debit.UserID)
		if err != nil {
			return err
		}
		if balance < debit.Amount {
			return apperror.ErrInsufficientCredits
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, roomKey, roomJSON, 0)
			pipe.SAdd(ctx, roomIndexKey, room.ID)
			pipe.DecrBy(ctx, balKey, debit.Amount)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to pipeline room create: %w", err)
		}

		return nil
	}

	if err = that.client.Watch(ctx, txFn, roomKey, balKey); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return apperror.ErrStateConflict
		}
		return err
	}

	return nil
}

func (that *dbRoom) GetByID(ctx context.Context, id string) (*entity.Room, error) {
	roomKey := roomKeyPrefix + id

	response, err := that.client.Get(ctx, roomKey).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room by id: %w", err)
	}

	var existingRoom entity.Room
	if err = json.Unmarshal([]byte(response), &existingRoom); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &existingRoom, nil
}

// List returns a lock-free snapshot of every room. Entries deleted between
// the index read and the bulk fetch are skipped.
func (that *dbRoom) List(ctx context.Context) ([]*entity.Room, error) {
	ids, err := that.client.SMembers(ctx, roomIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read room index: %w", err)
	}

	if len(ids) == 0 {
		return []*entity.Room{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, roomKeyPrefix+id)
	}

	values, err := that.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rooms: %w", err)
	}

	rooms := make([]*entity.Room, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}

		var room entity.Room
		if err = json.Unmarshal([]byte(raw), &room); err != nil {
			return nil, fmt.Errorf("failed to unmarshal room: %w", err)
		}

		rooms = append(rooms, &room)
	}

	return rooms, nil
}

// CommitWithLedger is the per-room compare-and-swap: the new snapshot is
// written only if the stored version still equals expectedVersion, and every
// ledger op rides the same MULTI/EXEC as the room write. Debits are checked
// against the watched balances, so an accepted commit can never drive a
// balance negative.
func (that *dbRoom) CommitWithLedger(ctx context.Context, room *entity.Room, expectedVersion int64, ops []entity.LedgerOp) error {
	roomJSON, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("could not marshal room: %w", err)
	}

	roomKey := roomKeyPrefix + room.ID

	watchKeys := []string{roomKey}
	for _, op := range ops {
		watchKeys = append(watchKeys, balanceKey(op.UserID))
	}

	txFn := func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, roomKey).Result()
		if errors.Is(err, redis.Nil) {
			return apperror.ErrRoomNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get room by id: %w", err)
		}

		var stored entity.Room
		if err = json.Unmarshal([]byte(response), &stored); err != nil {
			return fmt.Errorf("failed to unmarshal room: %w", err)
		}

		if stored.Version != expectedVersion {
			return fmt.Errorf("%w: version %d, expected %d", apperror.ErrStateConflict, stored.Version, expectedVersion)
		}

		for _, op := range ops {
			if op.Kind != entity.OpDebit {
				continue
			}

			balance, err := readBalance(ctx, tx, op.UserID)
			if err != nil {
				return err
			}
			if balance < op.Amount {
				return apperror.ErrInsufficientCredits
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, roomKey, roomJSON, 0)
			for _, op := range ops {
				switch op.Kind {
				case entity.OpDebit:
					pipe.DecrBy(ctx, balanceKey(op.UserID), op.Amount)
				case entity.OpCredit:
					pipe.IncrBy(ctx, balanceKey(op.UserID), op.Amount)
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to pipeline room commit: %w", err)
		}

		return nil
	}

	if err = that.client.Watch(ctx, txFn, watchKeys...); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return apperror.ErrStateConflict
		}
		return err
	}

	return nil
}
