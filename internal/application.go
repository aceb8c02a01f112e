package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/stakeplay/tictactoe-arena/internal/config"
	"github.com/stakeplay/tictactoe-arena/internal/pubsub"
	"github.com/stakeplay/tictactoe-arena/internal/repository"
	"github.com/stakeplay/tictactoe-arena/internal/repository/storage"
	"github.com/stakeplay/tictactoe-arena/internal/repository/storage/sqlite"
	"github.com/stakeplay/tictactoe-arena/internal/service"
	"github.com/stakeplay/tictactoe-arena/internal/usecase"
	"github.com/stakeplay/tictactoe-arena/transport/rest"
	"github.com/stakeplay/tictactoe-arena/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.New(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	sqliteStorage, err := sqlite.New(conf.SQLiteStoragePath)
	if err != nil {
		return fmt.Errorf("could not open sqlite storage: %w", err)
	}

	defer func() {
		if err = sqliteStorage.Close(); err != nil {
			log.Error("could not close sqlite storage", "error", err)
		}
	}()

	if err = sqliteStorage.Init(ctx); err != nil {
		return fmt.Errorf("could not init sqlite storage: %w", err)
	}

	roomRepo := repository.NewRoomRepository(redisStorage.Connection)
	ledgerRepo := repository.NewLedgerRepository(redisStorage.Connection)
	userRepo := repository.NewUserRepository(sqliteStorage.Connection)

	broker := pubsub.NewBroker()

	escrowService := service.NewEscrowService()
	roomService := service.NewRoomService(logger, roomRepo, userRepo, broker, conf.CommitRetries)
	gameplayService := service.NewGameplayService(logger, roomRepo, escrowService, broker, conf.CommitRetries)
	userService := service.NewUserService(logger, userRepo, ledgerRepo, conf.StartingCredits)
	authService := service.NewAuthService(conf.JWTSecretKey, conf.TokenTTL)

	directory := usecase.NewDirectory(roomService, gameplayService)

	roomStream := websocket.New(logger, roomService, broker)
	restServer := rest.New(logger, directory, userService, authService, roomStream)

	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := restServer.Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
