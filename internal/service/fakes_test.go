package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/stakeplay/tictactoe-arena/internal/apperror"
	"github.com/stakeplay/tictactoe-arena/internal/entity"
)

func errorsIsAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// fakeStore is an in-memory stand-in for the redis-backed room and ledger
// repositories. It honors the same contract: per-room version CAS, debit
// sufficiency checks, and room writes atomic with ledger ops.
type fakeStore struct {
	mu       sync.Mutex
	rooms    map[string]*entity.Room
	balances map[string]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:    make(map[string]*entity.Room),
		balances: make(map[string]int64),
	}
}

func cloneRoom(room *entity.Room) *entity.Room {
	clone := *room
	return &clone
}

func (that *fakeStore) CreateWithDebit(_ context.Context, room *entity.Room, debit entity.LedgerOp) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.rooms[room.ID]; ok {
		return apperror.ErrStateConflict
	}

	if that.balances[debit.UserID] < debit.Amount {
		return apperror.ErrInsufficientCredits
	}

	that.balances[debit.UserID] -= debit.Amount
	that.rooms[room.ID] = cloneRoom(room)

	return nil
}

func (that *fakeStore) GetByID(_ context.Context, id string) (*entity.Room, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, ok := that.rooms[id]
	if !ok {
		return nil, apperror.ErrRoomNotFound
	}

	return cloneRoom(room), nil
}

func (that *fakeStore) List(_ context.Context) ([]*entity.Room, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	rooms := make([]*entity.Room, 0, len(that.rooms))
	for _, room := range that.rooms {
		rooms = append(rooms, cloneRoom(room))
	}

	return rooms, nil
}

func (that *fakeStore) CommitWithLedger(_ context.Context, room *entity.Room, expectedVersion int64, ops []entity.LedgerOp) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	stored, ok := that.rooms[room.ID]
	if !ok {
		return apperror.ErrRoomNotFound
	}

	if stored.Version != expectedVersion {
		return fmt.Errorf("%w: version %d, expected %d", apperror.ErrStateConflict, stored.Version, expectedVersion)
	}

	for _, op := range ops {
		if op.Kind == entity.OpDebit && that.balances[op.UserID] < op.Amount {
			return apperror.ErrInsufficientCredits
		}
	}

	for _, op := range ops {
		switch op.Kind {
		case entity.OpDebit:
			that.balances[op.UserID] -= op.Amount
		case entity.OpCredit:
			that.balances[op.UserID] += op.Amount
		}
	}

	that.rooms[room.ID] = cloneRoom(room)

	return nil
}

func (that *fakeStore) balance(userID string) int64 {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.balances[userID]
}

func (that *fakeStore) setBalance(userID string, amount int64) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.balances[userID] = amount
}

func (that *fakeStore) storedRoom(id string) *entity.Room {
	that.mu.Lock()
	defer that.mu.Unlock()

	return cloneRoom(that.rooms[id])
}

// flakyStore fails a configured number of creates with a transient conflict
// before handing over to the real fake, mimicking a watched balance key being
// touched mid-transaction.
type flakyStore struct {
	*fakeStore

	conflictMu      sync.Mutex
	createConflicts int
}

func (that *flakyStore) CreateWithDebit(ctx context.Context, room *entity.Room, debit entity.LedgerOp) error {
	that.conflictMu.Lock()
	if that.createConflicts > 0 {
		that.createConflicts--
		that.conflictMu.Unlock()
		return apperror.ErrStateConflict
	}
	that.conflictMu.Unlock()

	return that.fakeStore.CreateWithDebit(ctx, room, debit)
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newFakeUsers(users ...*entity.User) *fakeUsers {
	byID := make(map[string]*entity.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}

	return &fakeUsers{users: byID}
}

func (that *fakeUsers) FindByID(_ context.Context, id string) (*entity.User, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	user, ok := that.users[id]
	if !ok {
		return nil, apperror.ErrUserNotFound
	}

	return user, nil
}

func (that *fakeUsers) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, user := range that.users {
		if user.Email == email {
			return user, nil
		}
	}

	return nil, apperror.ErrUserNotFound
}

func (that *fakeUsers) Save(_ context.Context, user *entity.User) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.users[user.ID] = user

	return nil
}

type fakeLedger struct {
	mu       sync.Mutex
	balances map[string]int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: make(map[string]int64)}
}

func (that *fakeLedger) GetBalance(_ context.Context, userID string) (int64, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.balances[userID], nil
}

func (that *fakeLedger) Deposit(_ context.Context, userID string, amount int64) (int64, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.balances[userID] += amount

	return that.balances[userID], nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []*entity.Room
}

func (that *fakePublisher) Publish(_ string, room *entity.Room) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.published = append(that.published, room)
}

func (that *fakePublisher) count() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.published)
}
