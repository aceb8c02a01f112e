package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const balanceKeyPrefix = "balance:"

// LedgerRepository covers the ledger operations that stand alone: balance
// reads and deposits (starting grants, credit purchases). Debits and credits
// tied to a room transition never go through here; they commit inside the
// room transaction so no intermediate state is observable.
type LedgerRepository interface {
	GetBalance(ctx context.Context, userID string) (int64, error)
	Deposit(ctx context.Context, userID string, amount int64) (int64, error)
}

type dbLedger struct {
	client *redis.Client
}

func NewLedgerRepository(client *redis.Client) LedgerRepository {
	return &dbLedger{
		client: client,
	}
}

func (that *dbLedger) GetBalance(ctx context.Context, userID string) (int64, error) {
	balance, err := that.client.Get(ctx, balanceKey(userID)).Result()

	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	value, err := strconv.ParseInt(balance, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse balance: %w", err)
	}

	return value, nil
}

func (that *dbLedger) Deposit(ctx context.Context, userID string, amount int64) (int64, error) {
	balance, err := that.client.IncrBy(ctx, balanceKey(userID), amount).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to deposit credits: %w", err)
	}

	return balance, nil
}

func balanceKey(userID string) string {
	return balanceKeyPrefix + userID
}

// readBalance reads a balance inside a watched transaction; a missing key
// counts as zero.
func readBalance(ctx context.Context, tx *redis.Tx, userID string) (int64, error) {
	balance, err := tx.Get(ctx, balanceKey(userID)).Int64()

	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	return balance, nil
}
