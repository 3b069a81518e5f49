package application

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/sngm3741/delicious-stores/api/internal/directory/domain"
)

// accountService implements AccountService.
type accountService struct {
	users    UserRepository
	stores   StoreRepository
	validate Validator
	cost     int
}

// NewAccountService creates the account use-cases. cost is the bcrypt work factor;
// zero selects bcrypt.DefaultCost.
func NewAccountService(users UserRepository, stores StoreRepository, validate Validator, cost int) AccountService {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &accountService{users: users, stores: stores, validate: validate, cost: cost}
}

func (s *accountService) Register(ctx context.Context, cmd RegisterCommand) (*domain.User, error) {
	cmd.Name = strings.TrimSpace(cmd.Name)
	cmd.Email = domain.NormalizeEmail(cmd.Email)
	if err := s.validate.Struct(cmd); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), s.cost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Email:        cmd.Email,
		Name:         cmd.Name,
		PasswordHash: string(hash),
		Hearts:       []string{},
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *accountService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (s *accountService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *accountService) UpdateAccount(ctx context.Context, id string, cmd UpdateAccountCommand) (*domain.User, error) {
	cmd.Name = strings.TrimSpace(cmd.Name)
	cmd.Email = domain.NormalizeEmail(cmd.Email)
	if err := s.validate.Struct(cmd); err != nil {
		return nil, err
	}
	return s.users.UpdateProfile(ctx, id, cmd.Name, cmd.Email)
}

func (s *accountService) ToggleHeart(ctx context.Context, userID, storeID string) (*domain.User, bool, error) {
	if _, err := s.stores.FindByID(ctx, storeID); err != nil {
		return nil, false, err
	}
	user, err := s.users.ToggleHeart(ctx, userID, storeID)
	if err != nil {
		return nil, false, err
	}
	return user, user.HasHeart(storeID), nil
}
