package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/stakeplay/tictactoe-arena/internal/entity"
)

type directory interface {
	CreateRoom(ctx context.Context, userID, name string, wagerAmount int64) (*entity.Room, error)
	ListRooms(ctx context.Context, statusFilter string) ([]entity.RoomSummary, error)
	JoinRoom(ctx context.Context, roomID, userID string) (*entity.Room, error)
	ApplyMove(ctx context.Context, roomID, userID string, cell int) (*entity.Room, error)
	GetRoom(ctx context.Context, roomID string) (*entity.Room, error)
}

type userService interface {
	Register(ctx context.Context, username, email, password string) (*entity.User, error)
	Login(ctx context.Context, email, password string) (*entity.User, error)
	Profile(ctx context.Context, userID string) (*entity.User, int64, error)
	PurchaseCredits(ctx context.Context, userID string, packageID int) (int64, error)
}

type authService interface {
	GenerateToken(userID string) (string, error)
	ParseToken(token string) (string, error)
}

type Server struct {
	logger *slog.Logger

	directory   directory
	userService userService
	authService authService

	roomStream http.Handler
}

// New builds the REST server. roomStream is mounted under /ws/rooms/{roomID}
// so the push transport shares the HTTP port.
func New(logger *slog.Logger, directory directory, userService userService, authService authService, roomStream http.Handler) *Server {
	return &Server{
		logger:      logger.With("component", "rest"),
		directory:   directory,
		userService: userService,
		authService: authService,
		roomStream:  roomStream,
	}
}

// Start - starts the HTTP server and shuts it down when ctx is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	router := that.buildRouter()

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      cors(router),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) buildRouter() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/ping", that.handlePing).Methods(http.MethodGet)

	public := router.PathPrefix("/api").Subrouter()
	public.HandleFunc("/auth/register", that.handleRegister).Methods(http.MethodPost)
	public.HandleFunc("/auth/login", that.handleLogin).Methods(http.MethodPost)

	secured := router.PathPrefix("/api").Subrouter()
	secured.Use(that.authMiddleware)
	secured.HandleFunc("/me", that.handleProfile).Methods(http.MethodGet)
	secured.HandleFunc("/credits/purchase", that.handlePurchase).Methods(http.MethodPost)
	secured.HandleFunc("/rooms", that.handleCreateRoom).Methods(http.MethodPost)
	secured.HandleFunc("/rooms", that.handleListRooms).Methods(http.MethodGet)
	secured.HandleFunc("/rooms/{roomID}", that.handleGetRoom).Methods(http.MethodGet)
	secured.HandleFunc("/rooms/{roomID}/join", that.handleJoinRoom).Methods(http.MethodPost)
	secured.HandleFunc("/rooms/{roomID}/move", that.handleMove).Methods(http.MethodPost)

	if that.roomStream != nil {
		router.Handle("/ws/rooms/{roomID}", that.roomStream).Methods(http.MethodGet)
	}

	return router
}
