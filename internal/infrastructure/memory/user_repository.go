package memory

import (
	"context"
	"time"

	"github.com/sngm3741/delicious-stores/api/internal/directory/domain"
)

// UserRepository is the in-memory application.UserRepository.
type UserRepository struct {
	db *DB
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if r.emailTakenLocked(user.Email, "") {
		return domain.ErrDuplicateEmail
	}
	user.ID = newID()
	r.db.users[user.ID] = cloneUser(*user)
	return nil
}

func (r *UserRepository) emailTakenLocked(email, excludeID string) bool {
	for id, u := range r.db.users {
		if id != excludeID && u.Email == email {
			return true
		}
	}
	return false
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneUser(u)
	return &out, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if u.Email == email {
			out := cloneUser(u)
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *UserRepository) UpdateProfile(_ context.Context, id, name, email string) (*domain.User, error) {
	return r.mutate(id, func(u *domain.User) error {
		if r.emailTakenLocked(email, id) {
			return domain.ErrDuplicateEmail
		}
		u.Name = name
		u.Email = email
		return nil
	})
}

func (r *UserRepository) SetResetToken(_ context.Context, id, token string, expires time.Time) error {
	_, err := r.mutate(id, func(u *domain.User) error {
		u.ResetPasswordToken = token
		u.ResetPasswordExpires = &expires
		return nil
	})
	return err
}

func (r *UserRepository) FindByResetToken(_ context.Context, token string, now time.Time) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if u.ResetTokenValid(token, now) {
			out := cloneUser(u)
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *UserRepository) UpdatePassword(_ context.Context, id, passwordHash string) (*domain.User, error) {
	return r.mutate(id, func(u *domain.User) error {
		u.PasswordHash = passwordHash
		u.ResetPasswordToken = ""
		u.ResetPasswordExpires = nil
		return nil
	})
}

func (r *UserRepository) ToggleHeart(_ context.Context, userID, storeID string) (*domain.User, error) {
	return r.mutate(userID, func(u *domain.User) error {
		hearts := make([]string, 0, len(u.Hearts)+1)
		removed := false
		for _, id := range u.Hearts {
			if id == storeID {
				removed = true
				continue
			}
			hearts = append(hearts, id)
		}
		if !removed {
			hearts = append(hearts, storeID)
		}
		u.Hearts = hearts
		return nil
	})
}

func (r *UserRepository) ClearExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var cleared int64
	for id, u := range r.db.users {
		if u.ResetPasswordExpires != nil && !now.Before(*u.ResetPasswordExpires) {
			u.ResetPasswordToken = ""
			u.ResetPasswordExpires = nil
			r.db.users[id] = u
			cleared++
		}
	}
	return cleared, nil
}

func (r *UserRepository) mutate(id string, fn func(u *domain.User) error) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	u = cloneUser(u)
	if err := fn(&u); err != nil {
		return nil, err
	}
	r.db.users[id] = u
	out := cloneUser(u)
	return &out, nil
}
