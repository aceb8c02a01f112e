package apperror

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")

	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomUnavailable = errors.New("room is not available for joining")
	ErrOwnRoom         = errors.New("cannot join your own room")

	ErrGameNotActive = errors.New("game is not active")
	ErrNotYourTurn   = errors.New("it's not your turn")
	ErrCellOccupied  = errors.New("cell is already occupied")
	ErrInvalidCell   = errors.New("invalid cell index")

	ErrStateConflict    = errors.New("room state changed concurrently")
	ErrReplaySettlement = errors.New("settlement already applied")

	ErrInsufficientCredits = errors.New("not enough credits")

	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)
