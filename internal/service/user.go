package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/stakeplay/tictactoe-arena/internal/apperror"
	"github.com/stakeplay/tictactoe-arena/internal/entity"
)

// creditPackages mirrors the purchasable bundles from the storefront. The
// payment itself is mocked; a purchase is a plain ledger deposit.
var creditPackages = map[int]int64{
	1: 100,
	2: 500,
	3: 1000,
	4: 2500,
}

type UserService interface {
	Register(ctx context.Context, username, email, password string) (*entity.User, error)
	Login(ctx context.Context, email, password string) (*entity.User, error)
	Profile(ctx context.Context, userID string) (*entity.User, int64, error)
	PurchaseCredits(ctx context.Context, userID string, packageID int) (int64, error)
}

type userRepo interface {
	Save(ctx context.Context, user *entity.User) error
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByID(ctx context.Context, id string) (*entity.User, error)
}

type ledgerRepo interface {
	GetBalance(ctx context.Context, userID string) (int64, error)
	Deposit(ctx context.Context, userID string, amount int64) (int64, error)
}

type registerRequest struct {
	Username string `validate:"required,min=3,max=24"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=72"`
}

type userService struct {
	logger *slog.Logger

	userRepo   userRepo
	ledgerRepo ledgerRepo

	startingCredits int64
}

func NewUserService(logger *slog.Logger, userRepo userRepo, ledgerRepo ledgerRepo, startingCredits int64) UserService {
	return &userService{
		logger:          logger.With("component", "user-service"),
		userRepo:        userRepo,
		ledgerRepo:      ledgerRepo,
		startingCredits: startingCredits,
	}
}

// Register creates an account and grants the starting credits to its ledger
// balance.
func (that *userService) Register(ctx context.Context, username, email, password string) (*entity.User, error) {
	req := registerRequest{Username: username, Email: email, Password: password}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", apperror.ErrInvalidInput, err)
	}

	_, err := that.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, apperror.ErrUserExists
	}
	if !errors.Is(err, apperror.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entity.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	if err = that.userRepo.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	if _, err = that.ledgerRepo.Deposit(ctx, user.ID, that.startingCredits); err != nil {
		return nil, fmt.Errorf("failed to grant starting credits: %w", err)
	}

	that.logger.Info("user registered", "userID", user.ID)

	return user, nil
}

func (that *userService) Login(ctx context.Context, email, password string) (*entity.User, error) {
	user, err := that.userRepo.FindByEmail(ctx, email)
	if errors.Is(err, apperror.ErrUserNotFound) {
		return nil, apperror.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	match, err := comparePassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		return nil, apperror.ErrInvalidCredentials
	}

	return user, nil
}

func (that *userService) Profile(ctx context.Context, userID string) (*entity.User, int64, error) {
	user, err := that.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get user by id: %w", err)
	}

	balance, err := that.ledgerRepo.GetBalance(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get balance: %w", err)
	}

	return user, balance, nil
}

func (that *userService) PurchaseCredits(ctx context.Context, userID string, packageID int) (int64, error) {
	amount, ok := creditPackages[packageID]
	if !ok {
		return 0, fmt.Errorf("%w: unknown credit package %d", apperror.ErrInvalidInput, packageID)
	}

	if _, err := that.userRepo.FindByID(ctx, userID); err != nil {
		return 0, fmt.Errorf("failed to get user by id: %w", err)
	}

	balance, err := that.ledgerRepo.Deposit(ctx, userID, amount)
	if err != nil {
		return 0, fmt.Errorf("failed to deposit credits: %w", err)
	}

	that.logger.Info("credits purchased", "userID", userID, "amount", amount)

	return balance, nil
}
