package application

import (
	"context"
	"time"

	"github.com/sngm3741/delicious-stores/api/internal/directory/domain"
)

// StoreRepository is the persistence port for stores and their read models.
type StoreRepository interface {
	Create(ctx context.Context, store *domain.Store) error
	Update(ctx context.Context, store *domain.Store) error
	FindByID(ctx context.Context, id string) (*domain.Store, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Store, error)
	FindByIDs(ctx context.Context, ids []string) ([]domain.Store, error)
	// SlugFamily returns the slugs matching base optionally followed by a numeric
	// suffix, ignoring the store identified by excludeID.
	SlugFamily(ctx context.Context, base, excludeID string) ([]string, error)
	List(ctx context.Context, skip, limit int) ([]domain.Store, int, error)
	ListByTag(ctx context.Context, tag string) ([]domain.Store, error)
	Search(ctx context.Context, query string, limit int) ([]domain.Store, error)
	Near(ctx context.Context, lng, lat, maxDistance float64, limit int) ([]domain.Store, error)
	TagCounts(ctx context.Context) ([]domain.TagCount, error)
	TopStores(ctx context.Context, minReviews, limit int) ([]domain.RankedStore, error)
}

// UserRepository is the persistence port for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id, name, email string) (*domain.User, error)
	SetResetToken(ctx context.Context, id, token string, expires time.Time) error
	// FindByResetToken only matches tokens whose expiry is after now.
	FindByResetToken(ctx context.Context, token string, now time.Time) (*domain.User, error)
	// UpdatePassword stores the new hash and clears the reset token pair.
	UpdatePassword(ctx context.Context, id, passwordHash string) (*domain.User, error)
	// ToggleHeart removes storeID from hearts when present and adds it otherwise.
	ToggleHeart(ctx context.Context, userID, storeID string) (*domain.User, error)
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// ReviewRepository is the persistence port for reviews.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	ListByStore(ctx context.Context, storeID string) ([]domain.Review, error)
}

// TagCache keeps the tag aggregation between store writes. Get reports the
// generation it observed; Set only stores tags while that generation is still
// current, so an Invalidate racing a read leaves the cache empty.
type TagCache interface {
	Get(ctx context.Context) (tags []domain.TagCount, generation int64, ok bool)
	Set(ctx context.Context, generation int64, tags []domain.TagCount)
	Invalidate(ctx context.Context)
}

// Validator checks tagged command structs and reports failures as *domain.ValidationError.
type Validator interface {
	Struct(s any) error
}

// Mailer dispatches a rendered template to a single recipient.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

// MailMessage names a template and the data it is rendered with.
type MailMessage struct {
	To       string
	Subject  string
	Template string
	Data     map[string]any
}

// StoreListing is one page of the store index.
type StoreListing struct {
	Stores []domain.Store
	Page   int
	Pages  int
	Count  int
}

// StoreDetail is a store together with its reviews, newest first.
type StoreDetail struct {
	Store   domain.Store
	Reviews []domain.Review
}

// TagListing is the tag filter page.
type TagListing struct {
	Tag    string
	Tags   []domain.TagCount
	Stores []domain.Store
}

// UpsertStoreCommand holds the editable fields of a store.
type UpsertStoreCommand struct {
	Name        string `validate:"notblank"`
	Description string
	Tags        []string
	Lng         *float64
	Lat         *float64
	Address     string
	Photo       string
}

// RegisterCommand holds a sign-up submission.
type RegisterCommand struct {
	Name            string `json:"name" validate:"notblank"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password-confirm" validate:"required,eqfield=Password"`
}

// UpdateAccountCommand holds the editable account fields.
type UpdateAccountCommand struct {
	Name  string `json:"name" validate:"notblank"`
	Email string `json:"email" validate:"required,email"`
}

// AddReviewCommand holds a review submission.
type AddReviewCommand struct {
	Text   string `json:"text" validate:"notblank"`
	Rating int    `json:"rating" validate:"min=1,max=5"`
}

// StoreService describes store use-cases.
type StoreService interface {
	List(ctx context.Context, page int) (*StoreListing, error)
	BySlug(ctx context.Context, slug string) (*StoreDetail, error)
	ByTag(ctx context.Context, tag string) (*TagListing, error)
	Tags(ctx context.Context) ([]domain.TagCount, error)
	Create(ctx context.Context, user domain.User, cmd UpsertStoreCommand) (*domain.Store, error)
	EditForm(ctx context.Context, user domain.User, id string) (*domain.Store, error)
	Update(ctx context.Context, user domain.User, id string, cmd UpsertStoreCommand) (*domain.Store, error)
	Search(ctx context.Context, query string) ([]domain.Store, error)
	Near(ctx context.Context, lng, lat float64) ([]domain.Store, error)
	Top(ctx context.Context) ([]domain.RankedStore, error)
	Hearted(ctx context.Context, user domain.User) ([]domain.Store, error)
}

// AccountService describes registration, login and profile use-cases.
type AccountService interface {
	Register(ctx context.Context, cmd RegisterCommand) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	UpdateAccount(ctx context.Context, id string, cmd UpdateAccountCommand) (*domain.User, error)
	ToggleHeart(ctx context.Context, userID, storeID string) (*domain.User, bool, error)
}

// PasswordResetService describes the forgot/reset flow.
type PasswordResetService interface {
	Forgot(ctx context.Context, email, baseURL string) error
	Validate(ctx context.Context, token string) (*domain.User, error)
	Reset(ctx context.Context, token, password, confirm string) (*domain.User, error)
	SweepExpired(ctx context.Context) (int64, error)
}

// ReviewService describes review use-cases.
type ReviewService interface {
	Add(ctx context.Context, user domain.User, storeID string, cmd AddReviewCommand) (*domain.Review, error)
}
