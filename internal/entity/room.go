package entity

import (
	"fmt"
	"time"

	"github.com/stakeplay/tictactoe-arena/internal/apperror"
)

const (
	StatusWaiting    = "waiting"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"

	MarkX = "X"
	MarkO = "O"

	WinnerDraw = "draw"

	EmptyCell = ""

	BoardSize = 9
)

var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Room is one wagered match: two player slots, a board and the escrowed stake.
// Player1 always plays X, player2 always plays O. Winner holds a user ID or
// WinnerDraw and is set only when Status is StatusCompleted.
type Room struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	CreatorID   string `json:"creator_id"`
	Player1ID   string `json:"player1_id"`
	Player1Name string `json:"player1_name"`
	Player2ID   string `json:"player2_id,omitempty"`
	Player2Name string `json:"player2_name,omitempty"`

	Status      string            `json:"status"`
	Board       [BoardSize]string `json:"board"`
	CurrentTurn string            `json:"current_turn,omitempty"`
	Winner      string            `json:"winner,omitempty"`

	WagerAmount int64     `json:"wager_amount"`
	Settled     bool      `json:"settled"`
	CreatedAt   time.Time `json:"created_at"`

	// Version increases by exactly one on every accepted mutation and is the
	// compare-and-swap token for commits.
	Version int64 `json:"version"`
}

// RoomSummary is the read-only listing view served to lobbies.
type RoomSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatorName string    `json:"creator_name"`
	Status      string    `json:"status"`
	WagerAmount int64     `json:"wager_amount"`
	Players     int       `json:"players"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewRoom(id, name string, creator *User, wagerAmount int64) *Room {
	return &Room{
		ID:          id,
		Name:        name,
		CreatorID:   creator.ID,
		Player1ID:   creator.ID,
		Player1Name: creator.Username,
		Status:      StatusWaiting,
		CurrentTurn: creator.ID,
		WagerAmount: wagerAmount,
		CreatedAt:   time.Now().UTC(),
		Version:     0,
	}
}

func (that *Room) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Room) IsInProgress() bool {
	return that.Status == StatusInProgress
}

func (that *Room) IsCompleted() bool {
	return that.Status == StatusCompleted
}

// Seat fills the second player slot and starts the match. It can only happen
// once, out of StatusWaiting, and the first move always belongs to player1.
func (that *Room) Seat(joiner *User) error {
	if !that.IsWaiting() {
		return fmt.Errorf("%w: status %s", apperror.ErrRoomUnavailable, that.Status)
	}

	if joiner.ID == that.CreatorID {
		return apperror.ErrOwnRoom
	}

	that.Player2ID = joiner.ID
	that.Player2Name = joiner.Username
	that.Status = StatusInProgress
	that.CurrentTurn = that.Player1ID
	that.Version++

	return nil
}

// ApplyMove validates and applies one move for userID. Any validation failure
// leaves the room untouched. On a terminal move the status flips to
// StatusCompleted and Winner is set; settlement is the caller's concern.
func (that *Room) ApplyMove(userID string, cell int) error {
	if !that.IsInProgress() {
		return fmt.Errorf("%w: status %s", apperror.ErrGameNotActive, that.Status)
	}

	if that.CurrentTurn != userID {
		return apperror.ErrNotYourTurn
	}

	if cell < 0 || cell >= len(that.Board) {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if that.Board[cell] != EmptyCell {
		return apperror.ErrCellOccupied
	}

	mark, err := that.MarkOf(userID)
	if err != nil {
		return err
	}

	that.Board[cell] = mark

	switch result := that.DetermineResult(); result {
	case MarkX, MarkO:
		that.Winner = userID
		that.Status = StatusCompleted
		that.CurrentTurn = ""
	case WinnerDraw:
		that.Winner = WinnerDraw
		that.Status = StatusCompleted
		that.CurrentTurn = ""
	default:
		that.CurrentTurn = that.opponentOf(userID)
	}

	that.Version++

	return nil
}

// DetermineResult evaluates the eight winning lines against the board.
// It returns the winning mark, WinnerDraw on a full board with no winner,
// or an empty string while the game continues.
func (that *Room) DetermineResult() string {
	for _, combo := range WinCombos {
		a, b, c := that.Board[combo[0]], that.Board[combo[1]], that.Board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return a
		}
	}

	for _, cell := range that.Board {
		if cell == EmptyCell {
			return ""
		}
	}

	return WinnerDraw
}

// MarkOf maps a seated player to their mark.
func (that *Room) MarkOf(userID string) (string, error) {
	switch userID {
	case that.Player1ID:
		return MarkX, nil
	case that.Player2ID:
		return MarkO, nil
	default:
		return "", fmt.Errorf("%w: user %s is not seated in room %s", apperror.ErrNotYourTurn, userID, that.ID)
	}
}

func (that *Room) opponentOf(userID string) string {
	if userID == that.Player1ID {
		return that.Player2ID
	}
	return that.Player1ID
}

func (that *Room) Summary() RoomSummary {
	players := 1
	if that.Player2ID != "" {
		players = 2
	}

	return RoomSummary{
		ID:          that.ID,
		Name:        that.Name,
		CreatorName: that.Player1Name,
		Status:      that.Status,
		WagerAmount: that.WagerAmount,
		Players:     players,
		CreatedAt:   that.CreatedAt,
	}
}
