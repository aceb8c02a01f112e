package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/stakeplay/tictactoe-arena/internal/apperror"
	"github.com/stakeplay/tictactoe-arena/internal/entity"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *entity.User `json:"user"`
}

type profileResponse struct {
	User    *entity.User `json:"user"`
	Balance int64        `json:"balance"`
}

type purchaseRequest struct {
	PackageID int `json:"package_id"`
}

type balanceResponse struct {
	Balance int64 `json:"balance"`
}

type createRoomRequest struct {
	Name        string `json:"name"`
	WagerAmount int64  `json:"wager_amount"`
}

type moveRequest struct {
	Cell int `json:"cell"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (that *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

func (that *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		that.writeError(w, apperror.ErrInvalidInput)
		return
	}

	user, err := that.userService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		that.writeError(w, err)
		return
	}

	token, err := that.authService.GenerateToken(user.ID)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (that *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		that.writeError(w, apperror.ErrInvalidInput)
		return
	}

	user, err := that.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		that.writeError(w, err)
		return
	}

	token, err := that.authService.GenerateToken(user.ID)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (that *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	user, balance, err := that.userService.Profile(r.Context(), userID)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, profileResponse{User: user, Balance: balance})
}

func (that *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		that.writeError(w, apperror.ErrInvalidInput)
		return
	}

	balance, err := that.userService.PurchaseCredits(r.Context(), userIDFromContext(r.Context()), req.PackageID)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, balanceResponse{Balance: balance})
}

func (that *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		that.writeError(w, apperror.ErrInvalidInput)
		return
	}

	room, err := that.directory.CreateRoom(r.Context(), userIDFromContext(r.Context()), req.Name, req.WagerAmount)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusCreated, room)
}

func (that *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")

	summaries, err := that.directory.ListRooms(r.Context(), statusFilter)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, summaries)
}

func (that *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]

	room, err := that.directory.GetRoom(r.Context(), roomID)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, room)
}

func (that *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]

	room, err := that.directory.JoinRoom(r.Context(), roomID, userIDFromContext(r.Context()))
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, room)
}

func (that *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		that.writeError(w, apperror.ErrInvalidInput)
		return
	}

	roomID := mux.Vars(r)["roomID"]

	room, err := that.directory.ApplyMove(r.Context(), roomID, userIDFromContext(r.Context()), req.Cell)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, room)
}

func (that *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		that.logger.Error("failed to encode response", "error", err)
	}
}

func (that *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		that.logger.Error("request failed", "error", err)
	}

	that.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrInvalidInput),
		errors.Is(err, apperror.ErrInvalidCell):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrInsufficientCredits):
		return http.StatusPaymentRequired
	case errors.Is(err, apperror.ErrNotYourTurn),
		errors.Is(err, apperror.ErrOwnRoom):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrRoomNotFound),
		errors.Is(err, apperror.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrRoomUnavailable),
		errors.Is(err, apperror.ErrStateConflict),
		errors.Is(err, apperror.ErrCellOccupied),
		errors.Is(err, apperror.ErrGameNotActive),
		errors.Is(err, apperror.ErrReplaySettlement),
		errors.Is(err, apperror.ErrUserExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
