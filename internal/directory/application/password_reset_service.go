package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sngm3741/delicious-stores/api/internal/directory/domain"
)

const (
	defaultResetTokenTTL = time.Hour
	resetTokenBytes      = 20
	resetTemplate        = "password-reset"
	resetSubject         = "Password Reset"
)

// passwordResetCommand is validated the same way as the registration passwords.
type passwordResetCommand struct {
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password-confirm" validate:"required,eqfield=Password"`
}

// passwordResetService implements PasswordResetService.
type passwordResetService struct {
	users    UserRepository
	mailer   Mailer
	validate Validator
	ttl      time.Duration
	cost     int
	now      func() time.Time
	token    func() (string, error)
}

// NewPasswordResetService wires the forgot/reset flow. ttl defaults to one hour.
func NewPasswordResetService(users UserRepository, mailer Mailer, validate Validator, ttl time.Duration, cost int) PasswordResetService {
	if ttl <= 0 {
		ttl = defaultResetTokenTTL
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &passwordResetService{
		users:    users,
		mailer:   mailer,
		validate: validate,
		ttl:      ttl,
		cost:     cost,
		now:      time.Now,
		token:    newResetToken,
	}
}

func (s *passwordResetService) Forgot(ctx context.Context, email, baseURL string) error {
	user, err := s.users.FindByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token, err := s.token()
	if err != nil {
		return err
	}
	expires := s.now().Add(s.ttl).UTC()
	if err := s.users.SetResetToken(ctx, user.ID, token, expires); err != nil {
		return err
	}

	resetURL := strings.TrimRight(baseURL, "/") + "/account/reset/" + token
	return s.mailer.Send(ctx, MailMessage{
		To:       user.Email,
		Subject:  resetSubject,
		Template: resetTemplate,
		Data: map[string]any{
			"Name":     user.Name,
			"ResetURL": resetURL,
		},
	})
}

func (s *passwordResetService) Validate(ctx context.Context, token string) (*domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidResetToken
	}
	user, err := s.users.FindByResetToken(ctx, token, s.now())
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidResetToken
	}
	return user, err
}

func (s *passwordResetService) Reset(ctx context.Context, token, password, confirm string) (*domain.User, error) {
	if err := s.validate.Struct(passwordResetCommand{Password: password, PasswordConfirm: confirm}); err != nil {
		return nil, err
	}
	user, err := s.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}
	return s.users.UpdatePassword(ctx, user.ID, string(hash))
}

func (s *passwordResetService) SweepExpired(ctx context.Context) (int64, error) {
	return s.users.ClearExpiredResetTokens(ctx, s.now())
}

func newResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
